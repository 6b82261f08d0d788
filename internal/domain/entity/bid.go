package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid — неизменяемая запись о принятой ставке.
type Bid struct {
	ID        int64           `json:"id" db:"id"`
	ListingID int64           `json:"gift_id" db:"gift_id"`
	BuyerID   int64           `json:"buyer_id" db:"buyer_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
