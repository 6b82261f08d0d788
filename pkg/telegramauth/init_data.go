// Package telegramauth decodes Telegram Mini App init data on top of the
// signature check shipped with telego.
//
// See https://core.telegram.org/bots/webapps#validating-data-received-via-the-mini-app
package telegramauth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	tu "github.com/mymmrac/telego/telegoutil"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

var (
	ErrSignature = errors.New("init data: signature mismatch")
	ErrExpired   = errors.New("init data: expired")
	ErrNoUser    = errors.New("init data: user is missing")
)

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

type InitData struct {
	User       User
	StartParam string
	AuthDate   time.Time
}

// Parse checks the signature of raw init data with the bot token and decodes it.
// maxAge <= 0 disables the auth_date check.
func Parse(raw, botToken string, maxAge time.Duration, now time.Time) (InitData, error) {
	params, err := tu.ValidateWebAppData(botToken, raw)
	if err != nil {
		return InitData{}, fmt.Errorf("%w: %w", ErrSignature, err)
	}

	var data InitData

	if v := params.Get(tu.WebAppAuthDate); v != "" {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return InitData{}, fmt.Errorf("parse auth_date: %w", err)
		}
		data.AuthDate = time.Unix(sec, 0)
	}

	if maxAge > 0 && now.Sub(data.AuthDate) > maxAge {
		return InitData{}, ErrExpired
	}

	userJSON := params.Get(tu.WebAppUser)
	if userJSON == "" {
		return InitData{}, ErrNoUser
	}

	if err := json.Unmarshal([]byte(userJSON), &data.User); err != nil {
		return InitData{}, fmt.Errorf("json.Unmarshal(user): %w", err)
	}

	if data.User.ID <= 0 {
		return InitData{}, ErrNoUser
	}

	data.StartParam = params.Get(tu.WebAppStartParam)

	return data, nil
}
