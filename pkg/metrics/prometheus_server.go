package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gift_market/pkg/contextx"
	"gift_market/pkg/logx"
)

const httpServerReadHeaderTimeout = 5 * time.Second

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type PrometheusServer struct {
	listenAddress string
	gatherer      prometheus.Gatherer
}

// NewPrometheusServer exposes the default registry plus the given collectors,
// which are registered in a private registry so repeated servers never clash.
func NewPrometheusServer(
	listenAddress string,
	collectors ...prometheus.Collector,
) PrometheusServer {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors...)

	return PrometheusServer{
		listenAddress: listenAddress,
		gatherer:      prometheus.Gatherers{prometheus.DefaultGatherer, registry},
	}
}

// NewBuildInfo returns a constant gauge labelled with the application name and version.
func NewBuildInfo(name, version string) prometheus.Collector {
	info := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "app_build_info",
		Help:        "Application name and version.",
		ConstLabels: prometheus.Labels{"name": name, "version": version},
	})
	info.Set(1)

	return info
}

func (p PrometheusServer) Run(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{
		//nolint:exhaustruct
		ErrorLog:      slog.NewLogLogger(logger(ctx).Handler(), slog.LevelError),
		ErrorHandling: promhttp.ContinueOnError,
	}))

	httpServer := &http.Server{
		//nolint:exhaustruct
		Addr:              p.listenAddress,
		Handler:           mux,
		ReadHeaderTimeout: httpServerReadHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		<-ctx.Done()

		if err := httpServer.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger(ctx).Error("httpServer.Shutdown", logx.Error(err))
		}
	}()

	logger(ctx).Info("prometheus server started", slog.String(logx.FieldAddress, p.listenAddress))

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("httpServer.ListenAndServe: %w", err)
	}

	logger(ctx).Info("prometheus server stopped")

	return nil
}
