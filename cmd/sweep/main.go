package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lmittmann/tint"

	"gift_market/internal/application"
	"gift_market/internal/config"
	"gift_market/pkg/contextx"
	"gift_market/pkg/logx"
)

// go run ./cmd/sweep -job deposits
//
// Однократно выполняет фоновую задачу, например после простоя.
func main() {
	job := flag.String("job", "", "job to run: "+strings.Join(application.Jobs(), ", "))
	flag.Parse()

	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelDebug}))
	slog.SetDefault(log)

	if *job == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ctx = contextx.WithLogger(ctx, log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load", logx.Error(err))
		os.Exit(1)
	}

	if err := application.RunJob(ctx, cfg, *job); err != nil {
		log.Error(fmt.Sprintf("job %s failed", *job), logx.Error(err))
		os.Exit(1)
	}

	log.Info("job done", slog.String(logx.FieldJob, *job))
}
