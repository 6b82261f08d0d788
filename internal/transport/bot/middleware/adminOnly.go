package middleware

import (
	"slices"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
)

// AdminOnly молча отбрасывает обновления не от администраторов.
func AdminOnly(admins []int64) th.Handler {
	return func(ctx *th.Context, update telego.Update) error {
		if !IsAdmin(admins, update) {
			return nil
		}

		return ctx.Next(update)
	}
}

func IsAdmin(admins []int64, update telego.Update) bool {
	var from *telego.User

	switch {
	case update.Message != nil:
		from = update.Message.From
	case update.CallbackQuery != nil:
		from = &update.CallbackQuery.From
	}

	return from != nil && slices.Contains(admins, from.ID)
}
