package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	jsoniter "github.com/json-iterator/go"

	"gift_market/pkg/contextx"
	"gift_market/pkg/logx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

const (
	httpServerReadHeaderTimeout = 5 * time.Second
	defaultCheckTimeout         = 2 * time.Second
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// Check reports whether a dependency is ready to serve traffic.
type Check func(ctx context.Context) error

type Server struct {
	listenAddress string
	options       Options
	state         []byte
	checkTimeout  time.Duration
}

type Options struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	// Checks are run by /ready; a failing check makes the endpoint return 503.
	Checks map[string]Check `json:"-"`
	// CheckTimeout bounds each check. Zero means two seconds.
	CheckTimeout time.Duration `json:"-"`
}

type readyState struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Failed  []string `json:"failed"`
}

func NewServer(
	listenAddress string,
	options Options,
) Server {
	stateJSON, _ := json.Marshal(options) //nolint:errcheck,errchkjson

	checkTimeout := options.CheckTimeout
	if checkTimeout <= 0 {
		checkTimeout = defaultCheckTimeout
	}

	return Server{
		listenAddress: listenAddress,
		options:       options,
		state:         stateJSON,
		checkTimeout:  checkTimeout,
	}
}

func (s Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handlerHealthz)
	mux.HandleFunc("/ready", s.handlerReady)

	httpServer := &http.Server{
		//nolint:exhaustruct
		Addr:              s.listenAddress,
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

	logger(ctx).Info("probe server started", slog.String(logx.FieldAddress, s.listenAddress))

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("httpServer.ListenAndServe: %w", err)
	}

	logger(ctx).Info("probe server stopped")

	return nil
}

func (s Server) handlerHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write(s.state) //nolint:errcheck
}

func (s Server) handlerReady(w http.ResponseWriter, r *http.Request) {
	failed := s.failedChecks(r.Context())
	if len(failed) == 0 {
		w.WriteHeader(http.StatusOK)
		w.Write(s.state) //nolint:errcheck

		return
	}

	body, _ := json.Marshal(readyState{ //nolint:errcheck,errchkjson
		Name:    s.options.Name,
		Version: s.options.Version,
		Failed:  failed,
	})

	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write(body) //nolint:errcheck
}

func (s Server) failedChecks(ctx context.Context) []string {
	var failed []string

	for name, check := range s.options.Checks {
		checkCtx, cancel := context.WithTimeout(ctx, s.checkTimeout)
		err := check(checkCtx)
		cancel()

		if err != nil {
			logger(ctx).Warn("readiness check failed", slog.String("check", name), logx.Error(err))
			failed = append(failed, name)
		}
	}

	sort.Strings(failed)

	return failed
}
