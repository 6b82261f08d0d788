package value

// OrderStatus — состояние ордера в эскроу-цикле.
type OrderStatus string

const (
	StatusOnMarket        OrderStatus = "on_market"
	StatusBuy             OrderStatus = "buy"
	StatusSellerAccept    OrderStatus = "seller_accept"
	StatusGiftTransferred OrderStatus = "gift_transferred"
	StatusGiftReceived    OrderStatus = "gift_received"
)

func (s OrderStatus) String() string {
	return string(s)
}

// Cancellable сообщает, есть ли из статуса ребро отмены назад в ON_MARKET.
func (s OrderStatus) Cancellable() bool {
	return s == StatusBuy || s == StatusSellerAccept
}
