package middlewarex

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"gift_market/pkg/errcodes"
	"gift_market/pkg/httpx/reply"
	"gift_market/pkg/logx"
)

// Recovery turns a handler panic into a 500 with the usual error body, so the
// client still gets a supportId to quote.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			if rec == http.ErrAbortHandler { //nolint:errorlint,goerr113
				panic(rec)
			}

			logger(ctx).Error(
				"panic in handler",
				slog.Any(logx.FieldError, rec),
				slog.String(logx.FieldStack, string(debug.Stack())),
			)

			reply.Fail(ctx, w, http.StatusInternalServerError, fmt.Errorf("panic: %v", rec), errcodes.InternalServerError, "")
		}()

		next.ServeHTTP(w, r)
	})
}
