package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawRequest struct {
	ID          int64           `json:"id" db:"id"`
	UserID      int64           `json:"user_id" db:"user_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Wallet      string          `json:"wallet" db:"wallet"`
	IsCompleted bool            `json:"is_completed" db:"is_completed"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}
