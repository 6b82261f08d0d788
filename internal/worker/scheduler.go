// Package worker запускает фоновые проходы площадки по расписанию.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"

	"gift_market/internal/metrics"
	"gift_market/pkg/contextx"
	"gift_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

var (
	ErrAlreadyRunning = errors.New("scheduler is already running")
	ErrUnknownJob     = errors.New("unknown job")
)

// Job — периодический проход. Interval меньше секунды округляется до секунды.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	jobs []Job

	mu         sync.Mutex
	cron       *cron.Cron
	cancelFunc context.CancelFunc
	isRunning  bool
}

func NewScheduler(jobs ...Job) *Scheduler {
	return &Scheduler{
		jobs: jobs,
	}
}

// Start планирует все задачи. Пока предыдущий запуск задачи не завершён,
// следующий пропускается.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	log := cronLogger{ctx: runCtx}

	c := cron.New(cron.WithChain(
		cron.Recover(log),
		cron.SkipIfStillRunning(log),
	))

	for _, job := range s.jobs {
		spec := "@every " + job.Interval.String()
		if _, err := c.AddFunc(spec, func() { _ = s.run(runCtx, job) }); err != nil {
			cancel()
			return fmt.Errorf("schedule %s: %w", job.Name, err)
		}
	}

	c.Start()

	s.cron = c
	s.cancelFunc = cancel
	s.isRunning = true

	logger(ctx).Info("scheduler started", slog.Any("jobs", s.Jobs()))

	return nil
}

// Stop снимает задачи с расписания и ждёт завершения уже запущенных.
func (s *Scheduler) Stop() {
	s.mu.Lock()

	if !s.isRunning {
		s.mu.Unlock()
		return
	}

	c, cancel := s.cron, s.cancelFunc
	s.cron = nil
	s.cancelFunc = nil
	s.isRunning = false
	s.mu.Unlock()

	<-c.Stop().Done()
	cancel()

	logger(context.Background()).Info("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *Scheduler) Jobs() []string {
	return lo.Map(s.jobs, func(j Job, _ int) string { return j.Name })
}

// RunJob выполняет задачу вне расписания и возвращает её ошибку.
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	job, ok := lo.Find(s.jobs, func(j Job) bool { return j.Name == name })
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	return s.run(ctx, job)
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	ctx, traceID := contextx.EnsureTraceID(ctx)
	ctx = contextx.WithLogger(ctx, logger(ctx).With(
		slog.String(logx.FieldJob, job.Name),
		logx.Stringer(logx.FieldTraceID, traceID),
	))

	timer := prometheus.NewTimer(metrics.JobDuration.WithLabelValues(job.Name))
	defer timer.ObserveDuration()

	if err := job.Run(ctx); err != nil {
		logger(ctx).Error("job failed", logx.Error(err))
		return err
	}

	return nil
}

// cronLogger пишет служебные сообщения cron в slog.
type cronLogger struct {
	ctx context.Context //nolint:containedctx
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	logger(l.ctx).Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger(l.ctx).Error("cron: "+msg, append(keysAndValues, logx.Error(err))...)
}
