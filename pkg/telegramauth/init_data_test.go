package telegramauth_test

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gift_market/pkg/telegramauth"
	"gift_market/pkg/tests"
)

const botToken = "1234567890:test-token"

func signed(t *testing.T, authDate time.Time, user string, mutate func(url.Values)) string {
	t.Helper()

	params := url.Values{}
	params.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	params.Set("query_id", "AAH")
	if user != "" {
		params.Set("user", user)
	}
	params.Set("start_param", "NDI")

	raw := tests.SignInitData(params, botToken)
	if mutate == nil {
		return raw
	}

	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	mutate(values)

	return values.Encode()
}

func TestParse(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := `{"id":42,"first_name":"Alice","username":"alice"}`

	testCases := []struct {
		name    string
		raw     string
		maxAge  time.Duration
		wantErr error
	}{
		{
			name:   "Valid",
			raw:    signed(t, now.Add(-time.Minute), user, nil),
			maxAge: time.Hour,
		},
		{
			name:   "Age check disabled",
			raw:    signed(t, now.Add(-48*time.Hour), user, nil),
			maxAge: 0,
		},
		{
			name:    "Expired",
			raw:     signed(t, now.Add(-2*time.Hour), user, nil),
			maxAge:  time.Hour,
			wantErr: telegramauth.ErrExpired,
		},
		{
			name:    "Tampered user",
			raw:     signed(t, now, user, func(v url.Values) { v.Set("user", `{"id":1}`) }),
			wantErr: telegramauth.ErrSignature,
		},
		{
			name:    "No hash",
			raw:     signed(t, now, user, func(v url.Values) { v.Del("hash") }),
			wantErr: telegramauth.ErrSignature,
		},
		{
			name:    "Tampered query id",
			raw:     signed(t, now, user, func(v url.Values) { v.Set("query_id", "AAI") }),
			wantErr: telegramauth.ErrSignature,
		},
		{
			name:    "Other bot token",
			raw:     tests.SignInitData(url.Values{"user": {user}}, "0987654321:other-token"),
			wantErr: telegramauth.ErrSignature,
		},
		{
			name:    "Malformed query",
			raw:     "%zz",
			wantErr: telegramauth.ErrSignature,
		},
		{
			name:    "No user",
			raw:     signed(t, now, "", nil),
			wantErr: telegramauth.ErrNoUser,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			data, err := telegramauth.Parse(tc.raw, botToken, tc.maxAge, now)
			if tc.wantErr != nil {
				rq.ErrorIs(err, tc.wantErr)
				return
			}

			rq.NoError(err)
			rq.Equal(int64(42), data.User.ID)
			rq.Equal("alice", data.User.Username)
			rq.Equal("NDI", data.StartParam)
		})
	}
}
