package middlewarex_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"gift_market/pkg/contextx"
	"gift_market/pkg/logx"
	"gift_market/pkg/middlewarex"
)

func TestRequestLogging(t *testing.T) {
	testCases := []struct {
		name        string
		method      string
		contentType string
		body        string
		maxLen      int
		logged      *string
	}{
		{
			name:   "No body",
			method: http.MethodGet,
			maxLen: 64,
		},
		{
			name:        "JSON body masked",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"init_data":"x","password":"qwerty"}`,
			maxLen:      64,
			logged:      ptr(`{"init_data":"[MASKED]","password":"[MASKED]"}`),
		},
		{
			name:        "Long body truncated",
			method:      http.MethodPost,
			contentType: "application/json; charset=utf-8",
			body:        `{"price":"12.5","type":"PlushPepe"}`,
			maxLen:      10,
			logged:      ptr(`{"price":"`),
		},
		{
			name:        "Multipart skipped",
			method:      http.MethodPost,
			contentType: "multipart/form-data; boundary=x",
			body:        "--x--",
			maxLen:      64,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			var buf bytes.Buffer

			ctx := contextx.WithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

			var received string

			h := middlewarex.RequestLogging(logx.NewSensitiveDataMasker(), tc.maxLen)(
				http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
					b, err := io.ReadAll(r.Body)
					rq.NoError(err)
					received = string(b)
				}),
			)

			var body io.Reader = http.NoBody
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			}

			req := httptest.NewRequest(tc.method, "/v1/market/listings?limit=5", body).WithContext(ctx)
			req.Header.Set("Content-Type", tc.contentType)
			req.Header.Set("Authorization", "Bearer secret-token")

			h.ServeHTTP(httptest.NewRecorder(), req)

			// Обработчик получает тело целиком независимо от усечения в логе.
			rq.Equal(tc.body, received)
			rq.NotContains(buf.String(), "secret-token")

			var entry map[string]any
			rq.NoError(jsoniter.Unmarshal(buf.Bytes(), &entry))
			rq.Equal(logx.FieldHTTPRequest, entry["msg"])
			rq.Equal(tc.method, entry[logx.FieldHTTPMethod])
			rq.Equal("/v1/market/listings", entry[logx.FieldURL])
			rq.Equal("192.0.2.1", entry[logx.FieldIP])

			if tc.logged == nil {
				rq.NotContains(entry, logx.FieldRequestBody)
				return
			}
			rq.Equal(*tc.logged, entry[logx.FieldRequestBody])
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}
