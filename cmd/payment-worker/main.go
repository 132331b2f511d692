package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/lottery-points-platform/internal/lottery/ledger"
	"github.com/radieske/lottery-points-platform/internal/lottery/repo"
	"github.com/radieske/lottery-points-platform/internal/lottery/rules"
	"github.com/radieske/lottery-points-platform/internal/payments"
	"github.com/radieske/lottery-points-platform/internal/shared/config"
	"github.com/radieske/lottery-points-platform/internal/shared/db"
	"github.com/radieske/lottery-points-platform/internal/shared/kafka"
	"github.com/radieske/lottery-points-platform/internal/shared/logger"
	"github.com/radieske/lottery-points-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "payment-worker"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gameRules, err := rules.Load(cfg.RulesFile)
	if err != nil {
		log.Fatal("load rules", zap.Error(err))
	}

	// Conexão com o banco onde o Ledger aplica os pagamentos
	conn, err := db.Connect(cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer conn.Close()
	store := repo.NewStore(conn, log, cfg.TxTimeout)

	// Kafka consumer: notificações do provedor de pagamentos
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicPaymentSettled, cfg.PaymentGroupID)
	defer reader.Close()

	// DLQ para pagamentos rejeitados ou que esgotaram as tentativas
	var dlq *kafkago.Writer
	if cfg.TopicPaymentSettledDLQ != "" {
		dlq = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPaymentSettledDLQ)
		defer dlq.Close()
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, metrics.Check{Name: "db", Fn: conn.PingContext})

	p := &payments.Processor{
		Log:      log,
		Reader:   reader,
		Ledger:   ledger.New(store, gameRules, log),
		OnResult: metrics.RecordPayment,
	}
	if dlq != nil {
		p.DLQ = dlq
	}

	log.Info("payment-worker started",
		zap.String("consume", cfg.TopicPaymentSettled),
		zap.String("dlq", cfg.TopicPaymentSettledDLQ))

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("payment worker stopped", zap.Error(err))
	}

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}
