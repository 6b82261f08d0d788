package entity

import "github.com/shopspring/decimal"

// ChainTransaction — входящая транзакция на депозитный адрес во внешнем леджере.
type ChainTransaction struct {
	LogicalTime int64
	Hash        string
	Success     bool
	Source      string
	Destination string
	Amount      decimal.Decimal
	Comment     string
}
