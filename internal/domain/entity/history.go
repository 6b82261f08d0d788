package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"gift_market/internal/domain/value"
)

// HistoryRecord — строка журнала экономических событий, только добавление.
type HistoryRecord struct {
	ID        int64             `json:"id" db:"id"`
	UserID    int64             `json:"user_id" db:"user_id"`
	Type      value.HistoryType `json:"type" db:"type"`
	Price     decimal.Decimal   `json:"price" db:"price"`
	Gift      string            `json:"gift,omitempty" db:"gift"`
	ModelName string            `json:"model_name,omitempty" db:"model_name"`
	ListingID int64             `json:"listing_id,omitempty" db:"listing_id"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}
