package errcodes

import "git.appkode.ru/pub/go/failure"

const (
	InternalServerError failure.ErrorCode = "InternalServerError"
	TimeoutExceeded     failure.ErrorCode = "TimeoutExceeded"
	Forbidden           failure.ErrorCode = "Forbidden"
	ValidationError     failure.ErrorCode = "ValidationError"
	NotFound            failure.ErrorCode = "NotFound"
	Unauthorized        failure.ErrorCode = "Unauthorized"
	TooManyRequests     failure.ErrorCode = "TooManyRequests"
	InvalidUserID       failure.ErrorCode = "InvalidUserID"
	InvalidPaging       failure.ErrorCode = "InvalidPaging"
	InvalidURL          failure.ErrorCode = "InvalidURL"

	// Маркетплейс
	OrderNotFound     failure.ErrorCode = "OrderNotFound"     // ордер отсутствует или уже перешёл в другой статус
	UserNotFound      failure.ErrorCode = "UserNotFound"      // пользователь не логинился
	GiveawayNotFound  failure.ErrorCode = "GiveawayNotFound"  // розыгрыш отсутствует
	WithdrawNotFound  failure.ErrorCode = "WithdrawNotFound"  // заявка на вывод уже исполнена
	AlreadyExist      failure.ErrorCode = "AlreadyExist"      // подарок уже выставлен
	StaleState        failure.ErrorCode = "StaleState"        // проиграли гонку за строку
	NotEnoughBalance  failure.ErrorCode = "NotEnoughBalance"  // недостаточно средств
	NotAccess         failure.ErrorCode = "NotAccess"         // чужой ордер или SLA ещё идёт
	AuctionBid        failure.ErrorCode = "AuctionBid"        // ставка не принята
	InvalidImageURL   failure.ErrorCode = "InvalidImageUrl"   // картинка не с нашего хоста
	InvalidOrder      failure.ErrorCode = "InvalidOrder"      // неверные параметры ордера/аукциона
	NotUsername       failure.ErrorCode = "NotUsername"       // у покупателя нет username
	InvalidWallet     failure.ErrorCode = "InvalidWallet"     // адрес кошелька не парсится
	InvalidAmount     failure.ErrorCode = "InvalidAmount"     // сумма вне допустимого диапазона
	GiveawayClosed    failure.ErrorCode = "GiveawayClosed"    // розыгрыш завершён или заполнен
	GiveawayJoined    failure.ErrorCode = "GiveawayJoined"    // пользователь уже участвует
	GiveawaySubscribe failure.ErrorCode = "GiveawaySubscribe" // не выполнены условия подписки
	LedgerUnavailable failure.ErrorCode = "LedgerUnavailable" // блокчейн-фид или кошелёк недоступны
	DeliveryFailed    failure.ErrorCode = "DeliveryFailed"    // не удалось передать подарок
)
