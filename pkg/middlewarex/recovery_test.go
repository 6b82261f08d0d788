package middlewarex_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"gift_market/pkg/contextx"
	"gift_market/pkg/middlewarex"
)

func TestRecovery(t *testing.T) {
	rq := require.New(t)

	testCases := []struct {
		name       string
		handler    http.HandlerFunc
		statusCode int
		body       string
	}{
		{
			name:       "No panic",
			handler:    okHandler,
			statusCode: http.StatusOK,
		},
		{
			name: "Panic",
			handler: func(http.ResponseWriter, *http.Request) {
				panic("boom")
			},
			statusCode: http.StatusInternalServerError,
			body:       `{"code":"InternalServerError","message":"Internal Server Error","supportId":"trace-1"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(*testing.T) {
			ctx := contextx.WithTraceID(context.Background(), "trace-1")

			r := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
			w := httptest.NewRecorder()

			middlewarex.Recovery(tc.handler).ServeHTTP(w, r)

			rq.Equal(tc.statusCode, w.Code)

			if tc.body != "" {
				rq.JSONEq(tc.body, w.Body.String())
			}
		})
	}
}
