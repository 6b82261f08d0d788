package middlewarex

import (
	"log/slog"
	"net/http"
	"strings"

	"gift_market/pkg/contextx"
	"gift_market/pkg/errcodes"
	"gift_market/pkg/httpx/reply"
	"gift_market/pkg/logx"
)

type TokenParser interface {
	ParseUserID(token string) (int64, error)
}

// Auth пропускает запрос только с валидным Bearer-токеном и кладёт
// id пользователя в контекст и в логгер запроса.
func Auth(tokens TokenParser) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				reply.Fail(ctx, w, http.StatusUnauthorized, nil, errcodes.Unauthorized, "missing access token")
				return
			}

			userID, err := tokens.ParseUserID(token)
			if err != nil {
				reply.Fail(ctx, w, http.StatusUnauthorized, err, errcodes.Unauthorized, "invalid access token")
				return
			}

			ctx = contextx.WithUserID(ctx, contextx.UserID(userID))
			ctx = contextx.WithLogger(ctx, logger(ctx).With(slog.Int64(logx.FieldUserID, userID)))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
