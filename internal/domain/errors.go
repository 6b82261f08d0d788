package domain

import (
	"errors"
	"fmt"

	"git.appkode.ru/pub/go/failure"

	"gift_market/pkg/errcodes"
)

// Kind классифицирует доменные ошибки независимо от конкретного кода.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindInsufficientFunds
	KindForbidden
	KindInvalidInput
	KindExternalFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindForbidden:
		return "forbidden"
	case KindInvalidInput:
		return "invalid_input"
	case KindExternalFailure:
		return "external_failure"
	default:
		return "internal"
	}
}

//nolint:gochecknoglobals
var kindByCode = map[failure.ErrorCode]Kind{
	errcodes.NotFound:          KindNotFound,
	errcodes.OrderNotFound:     KindNotFound,
	errcodes.UserNotFound:      KindNotFound,
	errcodes.GiveawayNotFound:  KindNotFound,
	errcodes.WithdrawNotFound:  KindNotFound,
	errcodes.AlreadyExist:      KindConflict,
	errcodes.StaleState:        KindConflict,
	errcodes.GiveawayJoined:    KindConflict,
	errcodes.NotEnoughBalance:  KindInsufficientFunds,
	errcodes.Forbidden:         KindForbidden,
	errcodes.NotAccess:         KindForbidden,
	errcodes.AuctionBid:        KindForbidden,
	errcodes.GiveawayClosed:    KindForbidden,
	errcodes.GiveawaySubscribe: KindForbidden,
	errcodes.ValidationError:   KindInvalidInput,
	errcodes.InvalidImageURL:   KindInvalidInput,
	errcodes.InvalidOrder:      KindInvalidInput,
	errcodes.NotUsername:       KindInvalidInput,
	errcodes.InvalidWallet:     KindInvalidInput,
	errcodes.InvalidAmount:     KindInvalidInput,
	errcodes.InvalidUserID:     KindInvalidInput,
	errcodes.LedgerUnavailable: KindExternalFailure,
	errcodes.DeliveryFailed:    KindExternalFailure,
}

// AppError представляет доменную ошибку приложения.
type AppError struct {
	Code    failure.ErrorCode
	Message string
	cause   error
}

// Error реализует интерфейс error.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap возвращает обёрнутую ошибку для errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Kind возвращает класс ошибки по её коду.
func (e *AppError) Kind() Kind {
	return kindByCode[e.Code]
}

// NewError создаёт новую доменную ошибку.
func NewError(code failure.ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// WrapError оборачивает существующую ошибку с доменным контекстом.
func WrapError(err error, code failure.ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   err,
	}
}

// IsAppError проверяет, является ли ошибка доменной.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetCode извлекает код ошибки, если это AppError.
func GetCode(err error) (failure.ErrorCode, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return "", false
}

// HasCode сообщает, что в цепочке есть AppError с данным кодом.
func HasCode(err error, code failure.ErrorCode) bool {
	got, ok := GetCode(err)
	return ok && got == code
}

// KindOf возвращает класс ошибки; не-доменные ошибки считаются внутренними.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind()
	}
	return KindInternal
}
