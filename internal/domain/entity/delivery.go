package entity

// Delivery — задание на передачу подарка получателю вне транзакции.
type Delivery struct {
	ListingID   int64  `json:"listing_id"`
	RecipientID int64  `json:"recipient_id"`
	GiftRef     string `json:"gift_ref"`
}

func NewDelivery(l Listing) Delivery {
	return Delivery{
		ListingID:   l.ID,
		RecipientID: l.BuyerID,
		GiftRef:     l.GiftRef(),
	}
}
