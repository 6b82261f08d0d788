package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"git.appkode.ru/pub/go/failure"
	"github.com/shopspring/decimal"

	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/service/account"
	"gift_market/pkg/errcodes"
	"gift_market/pkg/httpx/reply"
	"gift_market/pkg/httpx/req"
	"gift_market/pkg/rest"
	"gift_market/pkg/telegramauth"
)

type accountService interface {
	Login(ctx context.Context, in account.LoginInput) (entity.User, error)
	Profile(ctx context.Context, userID int64) (account.Profile, error)
	History(ctx context.Context, userID int64, limit int) ([]entity.HistoryRecord, error)
	Activity(ctx context.Context, limit int) ([]entity.HistoryRecord, error)
	RequestWithdraw(ctx context.Context, userID int64, amount decimal.Decimal, wallet string) (entity.WithdrawRequest, error)
}

type tokenIssuer interface {
	Issue(userID int64) (string, time.Time, error)
}

// InitDataOptions — параметры проверки initData Mini App.
type InitDataOptions struct {
	BotToken string
	MaxAge   time.Duration
}

type UserServer struct {
	accountService accountService
	tokens         tokenIssuer
	initData       InitDataOptions
	depositAddress string
	now            func() time.Time
}

func NewUserServer(
	accountService accountService,
	tokens tokenIssuer,
	initData InitDataOptions,
	depositAddress string,
) UserServer {
	return UserServer{
		accountService: accountService,
		tokens:         tokens,
		initData:       initData,
		depositAddress: depositAddress,
		now:            time.Now,
	}
}

func (s UserServer) postV1Login(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.LoginRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	data, err := telegramauth.Parse(request.InitData, s.initData.BotToken, s.initData.MaxAge, s.now())
	if err != nil {
		reply.Fail(ctx, w, http.StatusUnauthorized, err, errcodes.Unauthorized, "invalid init data")
		return nil
	}

	if _, err := s.accountService.Login(ctx, account.LoginInput{
		UserID:     data.User.ID,
		Username:   data.User.Username,
		FirstName:  data.User.FirstName,
		StartParam: data.StartParam,
	}); err != nil {
		return fmt.Errorf("accountService.Login: %w", err)
	}

	profile, err := s.accountService.Profile(ctx, data.User.ID)
	if err != nil {
		return fmt.Errorf("accountService.Profile: %w", err)
	}

	token, expiresAt, err := s.tokens.Issue(data.User.ID)
	if err != nil {
		return fmt.Errorf("tokens.Issue: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, rest.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Profile:     newRESTProfile(profile),
	})

	return nil
}

func (s UserServer) getV1Me(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	uid, err := userID(r)
	if err != nil {
		return err
	}

	profile, err := s.accountService.Profile(ctx, uid)
	if err != nil {
		return fmt.Errorf("accountService.Profile: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTProfile(profile))

	return nil
}

func (s UserServer) getV1History(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	uid, err := userID(r)
	if err != nil {
		return err
	}

	limit, err := parseInt(r.URL.Query().Get("limit"))
	if err != nil {
		return failure.NewInvalidArgumentErrorFromError(
			fmt.Errorf("limit: %w", err),
			failure.WithCode(errcodes.InvalidPaging),
		)
	}

	records, err := s.accountService.History(ctx, uid, limit)
	if err != nil {
		return fmt.Errorf("accountService.History: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTHistory(records))

	return nil
}

func (s UserServer) getV1Activity(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	limit, err := parseInt(r.URL.Query().Get("limit"))
	if err != nil {
		return failure.NewInvalidArgumentErrorFromError(
			fmt.Errorf("limit: %w", err),
			failure.WithCode(errcodes.InvalidPaging),
		)
	}

	records, err := s.accountService.Activity(ctx, limit)
	if err != nil {
		return fmt.Errorf("accountService.Activity: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTHistory(records))

	return nil
}

func (s UserServer) postV1Withdraw(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	uid, err := userID(r)
	if err != nil {
		return err
	}

	var request rest.WithdrawRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	withdraw, err := s.accountService.RequestWithdraw(ctx, uid, request.Amount, request.Wallet)
	if err != nil {
		return fmt.Errorf("accountService.RequestWithdraw: %w", err)
	}

	reply.JSON(ctx, w, http.StatusCreated, rest.Withdraw{
		ID:        withdraw.ID,
		Amount:    withdraw.Amount,
		Wallet:    withdraw.Wallet,
		CreatedAt: withdraw.CreatedAt,
	})

	return nil
}

func (s UserServer) getV1DepositAddress(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	uid, err := userID(r)
	if err != nil {
		return err
	}

	profile, err := s.accountService.Profile(ctx, uid)
	if err != nil {
		return fmt.Errorf("accountService.Profile: %w", err)
	}

	if s.depositAddress == "" {
		return errors.New("deposit address is not configured")
	}

	reply.JSON(ctx, w, http.StatusOK, rest.DepositAddress{
		Address: s.depositAddress,
		Comment: profile.User.DepositComment,
	})

	return nil
}
