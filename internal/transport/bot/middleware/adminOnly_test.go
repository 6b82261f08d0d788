package middleware_test

import (
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/require"

	"gift_market/internal/transport/bot/middleware"
)

func TestIsAdmin(t *testing.T) {
	admins := []int64{10, 20}

	testCases := []struct {
		name   string
		update telego.Update
		want   bool
	}{
		{
			name:   "Admin message",
			update: telego.Update{Message: &telego.Message{From: &telego.User{ID: 20}}},
			want:   true,
		},
		{
			name:   "Stranger message",
			update: telego.Update{Message: &telego.Message{From: &telego.User{ID: 30}}},
		},
		{
			name:   "Channel post without sender",
			update: telego.Update{Message: &telego.Message{}},
		},
		{
			name:   "Admin callback",
			update: telego.Update{CallbackQuery: &telego.CallbackQuery{From: telego.User{ID: 10}}},
			want:   true,
		},
		{
			name:   "Other update",
			update: telego.Update{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, middleware.IsAdmin(admins, tc.update))
		})
	}
}
