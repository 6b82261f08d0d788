package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID             int64           `json:"id" db:"id"`
	Username       string          `json:"username" db:"username"`
	FirstName      string          `json:"first_name" db:"first_name"`
	Balance        decimal.Decimal `json:"balance" db:"balance"`
	Commission     decimal.Decimal `json:"commission" db:"commission"`
	DepositComment string          `json:"deposit_comment" db:"deposit_comment"`
	IsBanned       bool            `json:"is_banned" db:"is_banned"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
