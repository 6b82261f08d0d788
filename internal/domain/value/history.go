package value

type HistoryType string

const (
	HistoryBuy        HistoryType = "buy"
	HistorySell       HistoryType = "sell"
	HistoryBid        HistoryType = "bid"
	HistoryAuctionWon HistoryType = "auction_won"
	HistoryDeposit    HistoryType = "deposit"
	HistoryWithdraw   HistoryType = "withdraw"
)

// Audience — адресат служебного уведомления.
type Audience string

const (
	AudienceAdmins   Audience = "admins"
	AudienceOwners   Audience = "owners"
	AudienceDeposits Audience = "deposits"
)
