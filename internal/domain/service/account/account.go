// Package account отвечает за вход, профиль, историю и заявки на вывод.
package account

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"gift_market/internal/domain"
	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/ledger"
	"gift_market/internal/domain/value"
	"gift_market/pkg/contextx"
	"gift_market/pkg/errcodes"
	"gift_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	depositCommentLength = 8
	createAttempts       = 5
	defaultHistoryLimit  = 50
)

type WalletValidator interface {
	ValidateAddress(addr string) error
}

type Notifier interface {
	Notify(ctx context.Context, audience value.Audience, text string) error
	NotifyUser(ctx context.Context, userID int64, text string) error
}

type Service struct {
	store         ledger.Store
	wallets       WalletValidator
	notifier      Notifier
	botName       string
	broadcastRate rate.Limit
}

func NewService(store ledger.Store, wallets WalletValidator, notifier Notifier, botName string) *Service {
	return &Service{
		store:         store,
		wallets:       wallets,
		notifier:      notifier,
		botName:       botName,
		broadcastRate: defaultBroadcastRate,
	}
}

type LoginInput struct {
	UserID    int64
	Username  string
	FirstName string
	// StartParam — реферальная нагрузка из ссылки приглашения.
	StartParam string
}

// Login создаёт пользователя при первом входе и обновляет имена при
// последующих. Реферер привязывается только при создании.
func (s *Service) Login(ctx context.Context, in LoginInput) (entity.User, error) {
	if in.UserID <= 0 {
		return entity.User{}, domain.NewError(errcodes.InvalidUserID, "invalid user id")
	}

	referrerID := DecodeReferral(in.StartParam)

	var (
		user    entity.User
		created bool
		err     error
	)

	for range createAttempts {
		user, created, err = s.login(ctx, in, referrerID)
		if !domain.HasCode(err, errcodes.AlreadyExist) {
			break
		}
	}
	if err != nil {
		return entity.User{}, fmt.Errorf("login: %w", err)
	}

	if created {
		logger(ctx).Info("user registered",
			slog.Int64(logx.FieldUserID, user.ID),
			slog.Int64(logx.FieldReferrerID, referrerID),
		)
	}

	return user, nil
}

func (s *Service) login(ctx context.Context, in LoginInput, referrerID int64) (entity.User, bool, error) {
	var (
		user    entity.User
		created bool
	)

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		user, err = tx.GetUser(ctx, in.UserID)
		switch {
		case err == nil:
			if user.Username == in.Username && user.FirstName == in.FirstName {
				return nil
			}
			user.Username, user.FirstName = in.Username, in.FirstName
			return tx.UpdateUserNames(ctx, user.ID, in.Username, in.FirstName)
		case !domain.HasCode(err, errcodes.UserNotFound):
			return err
		}

		user = entity.User{
			ID:             in.UserID,
			Username:       in.Username,
			FirstName:      in.FirstName,
			Balance:        decimal.Zero,
			Commission:     decimal.Zero,
			DepositComment: lo.RandomString(depositCommentLength, lo.NumbersCharset),
		}
		if err := tx.CreateUser(ctx, &user); err != nil {
			return err
		}
		created = true

		if referrerID == 0 || referrerID == user.ID {
			return nil
		}
		if _, err := tx.GetUser(ctx, referrerID); err != nil {
			if domain.HasCode(err, errcodes.UserNotFound) {
				return nil
			}
			return err
		}

		return tx.AddReferral(ctx, referrerID, user.ID)
	})

	return user, created, err
}

// EncodeReferral и DecodeReferral — нагрузка реферальной ссылки (base64url без паддинга).
func EncodeReferral(userID int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(userID, 10)))
}

// DecodeReferral возвращает 0 для пустой или повреждённой нагрузки.
func DecodeReferral(payload string) int64 {
	if payload == "" {
		return 0
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return 0
	}

	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}

	return id
}

type Profile struct {
	User           entity.User
	ReferralLink   string
	CountReferrals int
}

func (s *Service) Profile(ctx context.Context, userID int64) (Profile, error) {
	var p Profile

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		if p.User, err = tx.GetUser(ctx, userID); err != nil {
			return err
		}
		p.CountReferrals, err = tx.CountReferrals(ctx, userID)
		return err
	})
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}

	p.ReferralLink = fmt.Sprintf("https://t.me/%s/market?startapp=%s", s.botName, EncodeReferral(userID))

	return p, nil
}

// RequestWithdraw списывает сумму сразу; перевод выполняет сверка с леджером.
func (s *Service) RequestWithdraw(ctx context.Context, userID int64, amount decimal.Decimal, wallet string) (entity.WithdrawRequest, error) {
	amount = amount.Truncate(value.MoneyPrecision)
	if !amount.IsPositive() {
		return entity.WithdrawRequest{}, domain.NewError(errcodes.InvalidAmount, "amount must be positive")
	}

	if err := s.wallets.ValidateAddress(wallet); err != nil {
		return entity.WithdrawRequest{}, domain.WrapError(err, errcodes.InvalidWallet, "invalid wallet address")
	}

	var (
		user entity.User
		req  = entity.WithdrawRequest{UserID: userID, Amount: amount, Wallet: wallet}
	)

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		if user, err = tx.GetUser(ctx, userID); err != nil {
			return err
		}
		if user.IsBanned {
			return domain.NewError(errcodes.NotAccess, "user is banned")
		}
		if _, err := tx.DebitBalance(ctx, userID, amount); err != nil {
			return err
		}
		return tx.CreateWithdrawRequest(ctx, &req)
	})
	if err != nil {
		return entity.WithdrawRequest{}, fmt.Errorf("request withdraw: %w", err)
	}

	logger(ctx).Info("withdraw requested",
		slog.Int64(logx.FieldWithdrawID, req.ID),
		slog.Int64(logx.FieldUserID, userID),
		logx.Money(logx.FieldAmount, amount),
	)

	text := fmt.Sprintf("Withdraw request #%d: @%s (id %d) %s TON to %s", req.ID, user.Username, userID, amount, wallet)
	if err := s.notifier.Notify(ctx, value.AudienceDeposits, text); err != nil {
		logger(ctx).Warn("notify deposits channel", logx.Error(err))
	}

	return req, nil
}

func (s *Service) History(ctx context.Context, userID int64, limit int) ([]entity.HistoryRecord, error) {
	var records []entity.HistoryRecord

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		records, err = tx.ListHistory(ctx, userID, pageLimit(limit))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	return records, nil
}

func (s *Service) Activity(ctx context.Context, limit int) ([]entity.HistoryRecord, error) {
	var records []entity.HistoryRecord

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		records, err = tx.ListActivity(ctx, pageLimit(limit))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}

	return records, nil
}

func pageLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	return min(limit, value.MaxPageLimit)
}

// SetBanned блокирует или разблокирует пользователя. Заблокированный
// пользователь не может выводить средства.
func (s *Service) SetBanned(ctx context.Context, userID int64, banned bool) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.SetUserBanned(ctx, userID, banned)
	})
	if err != nil {
		return fmt.Errorf("set banned: %w", err)
	}

	logger(ctx).Info("user ban changed", slog.Int64(logx.FieldUserID, userID), slog.Bool("banned", banned))

	return nil
}

// Credit — ручное пополнение администратором; пишется в историю как депозит.
func (s *Service) Credit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	amount = amount.Truncate(value.MoneyPrecision)
	if !amount.IsPositive() {
		return decimal.Zero, domain.NewError(errcodes.InvalidAmount, "amount must be positive")
	}

	var balance decimal.Decimal

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		if balance, err = tx.AddBalance(ctx, userID, amount); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, &entity.HistoryRecord{
			UserID: userID,
			Type:   value.HistoryDeposit,
			Price:  amount,
		})
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("credit: %w", err)
	}

	logger(ctx).Info("manual credit",
		slog.Int64(logx.FieldUserID, userID),
		logx.Money(logx.FieldAmount, amount),
		logx.Money("balance", balance),
	)

	return balance, nil
}
