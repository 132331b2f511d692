package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/lottery-points-platform/internal/lottery/outbox"
	"github.com/radieske/lottery-points-platform/internal/shared/config"
	"github.com/radieske/lottery-points-platform/internal/shared/db"
	"github.com/radieske/lottery-points-platform/internal/shared/kafka"
	"github.com/radieske/lottery-points-platform/internal/shared/logger"
	"github.com/radieske/lottery-points-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "outbox-relay"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer conn.Close()

	// o tópico vem de cada linha do outbox
	writer := kafka.NewRoutingWriter(cfg.KafkaBrokers)
	defer writer.Close()

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, metrics.Check{Name: "db", Fn: conn.PingContext})

	log.Info("outbox-relay started", zap.Duration("interval", cfg.OutboxInterval))
	outbox.NewRelay(conn, writer, log, cfg.OutboxInterval).Run(ctx)

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}
