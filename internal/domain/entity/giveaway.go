package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"gift_market/internal/domain/value"
)

// Giveaway — розыгрыш зарезервированных подарков.
// ReferrerIDs параллелен ParticipantIDs: i-й элемент — кто пригласил i-го
// участника (0, если никто).
type Giveaway struct {
	ID              int64              `json:"id"`
	CreatorID       int64              `json:"creator_id"`
	Type            value.GiveawayType `json:"type"`
	GiftIDs         []int64            `json:"gifts_ids"`
	Channels        []string           `json:"channels_usernames"`
	QuantityMembers int                `json:"quantity_members"`
	EndTime         time.Time          `json:"end_time"`
	Price           decimal.Decimal    `json:"price"`
	ParticipantIDs  []int64            `json:"participants_ids"`
	ReferrerIDs     []int64            `json:"referrers_ids"`
	WinnerIDs       []int64            `json:"winners_ids"`
	IsCompleted     bool               `json:"is_completed"`
	CreatedAt       time.Time          `json:"created_at"`
}

func (g Giveaway) HasParticipant(userID int64) bool {
	for _, id := range g.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (g Giveaway) IsFull() bool {
	return g.QuantityMembers > 0 && len(g.ParticipantIDs) >= g.QuantityMembers
}

func (g Giveaway) Ended(now time.Time) bool {
	return !now.Before(g.EndTime)
}
