package middlewarex

import (
	"net"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"gift_market/pkg/contextx"
	"gift_market/pkg/errcodes"
	"gift_market/pkg/httpx/reply"
)

const visitorTTL = 3 * time.Minute

// RateLimit ограничивает частоту запросов на пользователя, а для
// анонимных запросов на IP. Неактивные посетители вытесняются из кэша.
func RateLimit(limit rate.Limit, burst int) func(next http.Handler) http.Handler {
	visitors := cache.New(visitorTTL, time.Minute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := visitorKey(r)

			var limiter *rate.Limiter
			if v, ok := visitors.Get(key); ok {
				limiter = v.(*rate.Limiter) //nolint:forcetypeassert
			} else {
				limiter = rate.NewLimiter(limit, burst)
			}
			visitors.SetDefault(key, limiter)

			if !limiter.Allow() {
				reply.Fail(ctx, w, http.StatusTooManyRequests, nil, errcodes.TooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func visitorKey(r *http.Request) string {
	if userID, err := contextx.UserIDFromContext(r.Context()); err == nil {
		return "user:" + userID.String()
	}

	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
