// cmd/worker-manager/workers.go
package main

import (
	"database/sql"
	"time"

	"passport-workers/internal/common/camunda"
	"passport-workers/internal/common/config"
	"passport-workers/internal/common/logger"
	"passport-workers/internal/common/observability"
	"passport-workers/internal/scoring"

	apn "passport-workers/internal/workers/passport/augment-passport-narrative"
	cpe "passport-workers/internal/workers/passport/check-passport-entitlement"
	gcp "passport-workers/internal/workers/passport/generate-credit-passport"
	gph "passport-workers/internal/workers/passport/get-passport-history"
	ip "passport-workers/internal/workers/passport/index-passport"
	sp "passport-workers/internal/workers/passport/search-passports"
	spn "passport-workers/internal/workers/passport/send-passport-notification"
	spr "passport-workers/internal/workers/passport/store-passport-record"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
)

// dependencies are shared by every handler. Optional senders stay nil
// interfaces when their channel is disabled.
type dependencies struct {
	cfg       *config.Config
	engine    *scoring.Engine
	augmenter scoring.NarrativeAugmenter
	prices    scoring.PricePoints
	db        *sql.DB
	redis     redis.Cmdable
	es        *elasticsearch.Client
	mailer    spn.EmailSender
	texter    spn.SMSSender
	log       logger.Logger
}

type registration struct {
	taskType string
	build    func(d *dependencies, timeout time.Duration) camunda.JobHandler
}

func registrations() []registration {
	return []registration{
		{gcp.TaskType, func(d *dependencies, timeout time.Duration) camunda.JobHandler {
			return gcp.NewHandler(&gcp.Config{Timeout: timeout}, d.engine, d.log)
		}},
		{apn.TaskType, func(d *dependencies, timeout time.Duration) camunda.JobHandler {
			return apn.NewHandler(&apn.Config{Timeout: timeout}, d.engine, d.augmenter, d.log)
		}},
		{cpe.TaskType, func(d *dependencies, timeout time.Duration) camunda.JobHandler {
			return cpe.NewHandler(&cpe.Config{
				Timeout:  timeout,
				CacheTTL: time.Duration(d.cfg.Passport.PaymentCacheTTL) * time.Second,
				Prices:   d.prices,
			}, d.db, d.redis, d.log)
		}},
		{spr.TaskType, func(d *dependencies, timeout time.Duration) camunda.JobHandler {
			return spr.NewHandler(&spr.Config{
				Timeout:      timeout,
				HistoryLimit: d.cfg.Passport.HistoryLimit,
			}, d.db, d.redis, d.log)
		}},
		{gph.TaskType, func(d *dependencies, timeout time.Duration) camunda.JobHandler {
			return gph.NewHandler(&gph.Config{
				Timeout:      timeout,
				CacheTTL:     time.Duration(d.cfg.Passport.HistoryCacheTTL) * time.Second,
				HistoryLimit: d.cfg.Passport.HistoryLimit,
			}, d.db, d.redis, d.log)
		}},
		{ip.TaskType, func(d *dependencies, timeout time.Duration) camunda.JobHandler {
			return ip.NewHandler(&ip.Config{
				Timeout: timeout,
				Index:   d.cfg.Database.Elasticsearch.PassportIndex,
			}, d.es, d.log)
		}},
		{sp.TaskType, func(d *dependencies, timeout time.Duration) camunda.JobHandler {
			return sp.NewHandler(&sp.Config{
				Timeout: timeout,
				Index:   d.cfg.Database.Elasticsearch.PassportIndex,
			}, d.es, d.log)
		}},
		{spn.TaskType, func(d *dependencies, timeout time.Duration) camunda.JobHandler {
			return spn.NewHandler(&spn.Config{
				EmailEnabled: d.cfg.Notifications.Email.Enabled,
				SMSEnabled:   d.cfg.Notifications.SMS.Enabled,
				PortalURL:    d.cfg.Notifications.PortalURL,
				Timeout:      timeout,
			}, d.db, d.mailer, d.texter, d.log)
		}},
	}
}

func startWorkers(client zbc.Client, d *dependencies, obs *observability.Observability) []*camunda.Worker {
	var workers []*camunda.Worker
	for _, r := range registrations() {
		if !config.IsWorkerEnabled(d.cfg, r.taskType) {
			d.log.Info("worker disabled", map[string]interface{}{"taskType": r.taskType})
			continue
		}
		wcfg := config.GetWorkerConfig(d.cfg, r.taskType)
		timeout := config.GetDuration(wcfg.Timeout)

		handler := camunda.Instrument(r.taskType, r.build(d, timeout), obs)
		workers = append(workers, camunda.NewWorker(client, r.taskType, camunda.WorkerOptions{
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       timeout,
		}, handler, d.log))
	}
	return workers
}
