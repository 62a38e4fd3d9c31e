// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	awsx "passport-workers/internal/common/aws"
	"passport-workers/internal/common/camunda"
	"passport-workers/internal/common/config"
	"passport-workers/internal/common/database"
	"passport-workers/internal/common/logger"
	"passport-workers/internal/common/observability"
	"passport-workers/internal/narrative"
	"passport-workers/internal/scoring"
	"passport-workers/internal/server"
	"passport-workers/pkg/registry"
)

// connectRetry is more patient than the default: the databases often come
// up after the workers under docker compose.
var connectRetry = &camunda.RetryConfig{
	MaxRetries: 10,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting passport worker manager",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)

	// --- Zeebe ---
	zb, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: cfg.Camunda.UsePlaintext,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		RetryConfig:            connectRetry,
	})
	if err != nil {
		zapLog.Fatal("zeebe client failed", zap.Error(err))
	}
	zapLog.Info("zeebe client connected", zap.String("gateway", cfg.Camunda.BrokerAddress))

	// --- PostgreSQL ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres init failed", zap.Error(err))
	}
	if err := camunda.Retry(ctx, connectRetry, "postgres ping", pg.Ping); err != nil {
		zapLog.Fatal("postgres unreachable", zap.Error(err))
	}
	if err := pg.Migrate(ctx); err != nil {
		zapLog.Fatal("postgres migration failed", zap.Error(err))
	}

	// --- Redis ---
	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Fatal("redis init failed", zap.Error(err))
	}
	if err := camunda.Retry(ctx, connectRetry, "redis ping", rdb.Ping); err != nil {
		zapLog.Fatal("redis unreachable", zap.Error(err))
	}

	// --- Elasticsearch ---
	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		zapLog.Fatal("elasticsearch init failed", zap.Error(err))
	}
	if err := camunda.Retry(ctx, connectRetry, "elasticsearch ping", es.Ping); err != nil {
		zapLog.Fatal("elasticsearch unreachable", zap.Error(err))
	}
	if err := es.EnsureIndex(ctx, cfg.Database.Elasticsearch.PassportIndex); err != nil {
		zapLog.Fatal("passport index setup failed", zap.Error(err))
	}
	zapLog.Info("datastores ready")

	// --- Scoring ---
	prices, err := scoring.NewPricePoints(cfg.Pricing.Generate, cfg.Pricing.Share, cfg.Pricing.PDF, cfg.Pricing.Currency)
	if err != nil {
		zapLog.Fatal("invalid pricing", zap.Error(err))
	}
	augmenter, err := narrative.New(ctx, cfg.APIs.GenAI)
	if err != nil {
		zapLog.Fatal("narrative provider init failed", zap.Error(err))
	}
	if augmenter == nil {
		zapLog.Info("narrative augmentation disabled")
	}

	deps := &dependencies{
		cfg:       cfg,
		engine:    scoring.NewEngine(),
		augmenter: augmenter,
		prices:    prices,
		db:        pg.DB,
		redis:     rdb.Client,
		es:        es.Client,
		log:       log,
	}

	// --- Notifications ---
	if cfg.Notifications.Email.Enabled {
		mailer, err := awsx.NewMailer(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.Email.FromEmail)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		deps.mailer = mailer
	}
	if cfg.Notifications.SMS.Enabled {
		texter, err := awsx.NewTexter(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.SMS.SenderID)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		deps.texter = texter
	}

	checkRegistry(cfg.App.RegistryPath, zapLog)

	workers := startWorkers(zb.GetClient(), deps, obs)
	zapLog.Info("workers started", zap.Int("count", len(workers)))

	// --- HTTP ---
	srv := server.New(cfg.Server.Address, deps.engine, augmenter, map[string]server.Check{
		"postgres":      pg.Ping,
		"redis":         rdb.Ping,
		"elasticsearch": es.Ping,
		"zeebe":         zb.HealthCheck,
	}, log)
	go func() {
		zapLog.Info("http server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil {
			zapLog.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("http server shutdown", zap.Error(err))
	}
	if err := zb.Close(); err != nil {
		zapLog.Warn("zeebe client close", zap.Error(err))
	}
	if err := errors.Join(rdb.Close(), pg.Close()); err != nil {
		zapLog.Warn("datastore close", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("observability shutdown", zap.Error(err))
	}

	zapLog.Info("worker manager stopped")
}

// checkRegistry warns about workers whose task type is missing from the
// activity registry. A broken registry never blocks startup.
func checkRegistry(path string, zapLog *zap.Logger) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		zapLog.Warn("activity registry unavailable", zap.String("path", path), zap.Error(err))
		return
	}
	for _, taskType := range missingFromRegistry(reg) {
		zapLog.Warn("worker not in activity registry", zap.String("taskType", taskType))
	}
}

func missingFromRegistry(reg *registry.ActivityRegistry) []string {
	var missing []string
	for _, r := range registrations() {
		if _, err := reg.Find(r.taskType); err != nil {
			missing = append(missing, r.taskType)
		}
	}
	return missing
}
