package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/lottery-points-platform/internal/lottery/betbook"
	"github.com/radieske/lottery-points-platform/internal/lottery/draw"
	httpapi "github.com/radieske/lottery-points-platform/internal/lottery/http"
	"github.com/radieske/lottery-points-platform/internal/lottery/ledger"
	"github.com/radieske/lottery-points-platform/internal/lottery/live"
	"github.com/radieske/lottery-points-platform/internal/lottery/repo"
	"github.com/radieske/lottery-points-platform/internal/lottery/report"
	"github.com/radieske/lottery-points-platform/internal/lottery/results"
	"github.com/radieske/lottery-points-platform/internal/lottery/rules"
	"github.com/radieske/lottery-points-platform/internal/lottery/scheduler"
	"github.com/radieske/lottery-points-platform/internal/lottery/settlement"
	"github.com/radieske/lottery-points-platform/internal/shared/cache"
	"github.com/radieske/lottery-points-platform/internal/shared/config"
	"github.com/radieske/lottery-points-platform/internal/shared/db"
	"github.com/radieske/lottery-points-platform/internal/shared/logger"
	"github.com/radieske/lottery-points-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "lottery-api"
	}

	// Inicializa logger estruturado
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gameRules, err := rules.Load(cfg.RulesFile)
	if err != nil {
		log.Fatal("load rules", zap.Error(err))
	}

	conn, err := db.Connect(cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer conn.Close()
	if cfg.DBDriver == db.DriverSQLite {
		// banco embutido: o schema sobe junto com a API
		if err := db.Migrate(ctx, conn); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
	}
	store := repo.NewStore(conn, log, cfg.TxTimeout)

	checks := []metrics.Check{{Name: "db", Fn: conn.PingContext}}

	// Redis guarda o último resultado e faz o broadcast; sem REDIS_ADDR
	// a API segue sem resultados ao vivo
	var (
		rdb      *redis.Client
		notifier *results.Redis
	)
	if cfg.RedisAddr != "" {
		rdb, err = cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer rdb.Close()
		notifier = results.NewRedis(rdb, results.DefaultTTL)
		notifier.Channel = cfg.RedisResultsChannel
		checks = append(checks, metrics.Check{Name: "redis", Fn: cache.Ping(rdb)})
	}

	engineOpts := []draw.Option{}
	if notifier != nil {
		engineOpts = append(engineOpts, draw.WithNotifier(notifier))
	}
	engine := draw.NewEngine(store, gameRules, settlement.NewProcessor(gameRules, log), log, engineOpts...)

	api := &httpapi.API{
		Log:         log,
		Book:        betbook.New(store, gameRules, log),
		Ledger:      ledger.New(store, gameRules, log),
		Engine:      engine,
		Reporter:    report.New(store),
		AdminToken:  cfg.AdminToken,
		CORSOrigins: cfg.CORSOrigins,
	}
	if notifier != nil {
		api.Hub = live.NewHub(func(*http.Request) bool { return true }, notifier, log)
		live.StartRedisSubscriber(ctx, rdb, notifier.Channel, api.Hub, log)
	}

	if cfg.SchedulerEnabled {
		go scheduler.New(engine, gameRules, log, cfg.SchedulerInterval).Start(ctx)
		log.Info("draw scheduler enabled", zap.Int("draw_hour", gameRules.DrawHour()))
	}

	// Servidor de métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, checks...)

	// Servidor HTTP público
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api srv", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}
