package middlewarex

import (
	"net/http"

	"gift_market/pkg/contextx"
)

const headerNameTraceID = "X-Trace-Id"

// TraceID takes the trace id from the request header or generates a new one,
// and echoes it back so clients can quote it to support.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := contextx.TraceID(r.Header.Get(headerNameTraceID))
		if traceID == "" {
			traceID = contextx.NewTraceID()
		}

		ctx := contextx.WithTraceID(r.Context(), traceID)

		w.Header().Set(headerNameTraceID, traceID.String())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
