package modules

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"gift_market/pkg/metrics"
	"gift_market/pkg/probe"
)

// ProbeServer отдаёт /healthz и /ready для оркестратора. /ready опрашивает Checks.
type ProbeServer struct {
	Name          string
	Version       string
	ListenAddress string
	Checks        map[string]probe.Check
	// CheckTimeout ограничивает одну проверку готовности, 0 — значение по умолчанию.
	CheckTimeout time.Duration
}

func (p ProbeServer) Run(ctx context.Context, g *errgroup.Group) {
	server := probe.NewServer(p.ListenAddress, probe.Options{
		Name:         p.Name,
		Version:      p.Version,
		Checks:       p.Checks,
		CheckTimeout: p.CheckTimeout,
	})

	goServe(ctx, g, "probe", server.Run)
}

// MetricServer публикует метрики Prometheus вместе с app_build_info.
type MetricServer struct {
	Name          string
	Version       string
	ListenAddress string
}

func (m MetricServer) Run(ctx context.Context, g *errgroup.Group) {
	server := metrics.NewPrometheusServer(m.ListenAddress, metrics.NewBuildInfo(m.Name, m.Version))

	goServe(ctx, g, "metrics", server.Run)
}

// goServe запускает служебный сервер в группе; его остановка по ctx не считается ошибкой.
func goServe(ctx context.Context, g *errgroup.Group, name string, serve func(ctx context.Context) error) {
	g.Go(func() error {
		if err := serve(ctx); err != nil {
			return fmt.Errorf("%s server: %w", name, err)
		}
		return nil
	})
}
