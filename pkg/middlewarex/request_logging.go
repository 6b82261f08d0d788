package middlewarex

import (
	"bytes"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"gift_market/pkg/logx"
)

// RequestLogging пишет в лог метод, путь, адрес клиента и начало тела запроса.
// Тело читается не больше logFieldMaxLen байт, обработчик получает его целиком.
// Заголовки не логируются: в них токен доступа.
func RequestLogging(
	sensitiveDataMasker logx.SensitiveDataMaskerInterface,
	logFieldMaxLen int,
) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attrs := []any{
				slog.String(logx.FieldHTTPMethod, r.Method),
				slog.String(logx.FieldURL, r.URL.Path),
				slog.String(logx.FieldIP, clientIP(r)),
				slog.Int64(logx.FieldContentLength, r.ContentLength),
			}

			if loggableBody(r) {
				head, err := peekBody(r, logFieldMaxLen)
				attrs = append(attrs,
					slog.String(logx.FieldRequestBody, string(sensitiveDataMasker.Mask(head))),
					logx.Error(err),
				)
			}

			logger(r.Context()).Info(logx.FieldHTTPRequest, attrs...)

			next.ServeHTTP(w, r)
		})
	}
}

func loggableBody(r *http.Request) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return false
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	return mediaType != "multipart/form-data" && mediaType != "application/octet-stream"
}

// peekBody читает до n байт тела и возвращает их обратно в начало r.Body.
func peekBody(r *http.Request, n int) ([]byte, error) {
	head, err := io.ReadAll(io.LimitReader(r.Body, int64(n)))

	r.Body = struct {
		io.Reader
		io.Closer
	}{
		Reader: io.MultiReader(bytes.NewReader(head), r.Body),
		Closer: r.Body,
	}

	return head, err
}
