package modules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"gift_market/pkg/logx"
)

// HTTPServer поднимает публичный API и плавно останавливает его по отмене ctx:
// новые keep-alive соединения не принимаются, текущие запросы дорабатывают
// не дольше ShutdownTimeout.
type HTTPServer struct {
	ShutdownTimeout time.Duration
}

func (h HTTPServer) Run(
	ctx context.Context,
	g *errgroup.Group,
	httpServer *http.Server,
) {
	g.Go(func() error {
		// Адрес в логе фактический, в том числе для ":0".
		ln, err := net.Listen("tcp", httpServer.Addr)
		if err != nil {
			return fmt.Errorf("net.Listen: %w", err)
		}

		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			<-ctx.Done()
			h.shutdown(ctx, httpServer)
		}()

		addr := slog.String(logx.FieldAddress, ln.Addr().String())
		logger(ctx).Info("http server started", addr)

		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("httpServer.Serve: %w", err)
		}

		<-stopped
		logger(ctx).Info("http server stopped", addr)

		return nil
	})
}

func (h HTTPServer) shutdown(ctx context.Context, httpServer *http.Server) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.ShutdownTimeout)
	defer cancel()

	start := time.Now()
	httpServer.SetKeepAlivesEnabled(false)

	if err := httpServer.Shutdown(ctx); err != nil {
		logger(ctx).Error("server.Shutdown", logx.Error(err))
		return
	}

	logger(ctx).Debug("http server drained", slog.Int64(logx.FieldDurationMs, time.Since(start).Milliseconds()))
}
