package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/notice-engine/internal/api/http"
	"github.com/spec-kit/notice-engine/internal/api/http/handlers"
	"github.com/spec-kit/notice-engine/internal/channel"
	"github.com/spec-kit/notice-engine/internal/config"
	"github.com/spec-kit/notice-engine/internal/events"
	"github.com/spec-kit/notice-engine/internal/lock"
	"github.com/spec-kit/notice-engine/internal/observability"
	"github.com/spec-kit/notice-engine/internal/persistence"
	"github.com/spec-kit/notice-engine/internal/queue"
	"github.com/spec-kit/notice-engine/internal/repository"
	"github.com/spec-kit/notice-engine/internal/scheduler"
	"github.com/spec-kit/notice-engine/internal/service"
	"github.com/spec-kit/notice-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	dispatcher := events.NewInMemoryDispatcher()

	pool := pg.PoolHandle()
	noticeRepo := repository.NewNoticeRepository(pool)
	commRepo := repository.NewCommunicationRepository(pool)
	alertRepo := repository.NewAlertRepository(pool)
	riskRepo := repository.NewRiskRepository(pool)
	tenantRepo := repository.NewTenantRepository(pool)
	contractRepo := repository.NewContractRepository(pool)
	invoiceRepo := repository.NewInvoiceRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	batchRepo := repository.NewBatchRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	senders := channel.NewRegistry(
		channel.NewSMSSender(cfg.Channels, logger),
		channel.NewEmailSender(cfg.Channels, logger),
		channel.NewWhatsAppSender(cfg.Channels, logger),
		channel.NewLetterSender(cfg.Channels, logger),
	)

	alertService := service.NewAlertService(alertRepo, dispatcher, metrics, logger)
	deliveryService := service.NewDeliveryService(cfg.Delivery, service.DeliveryDependencies{
		CommRepo:     commRepo,
		NoticeRepo:   noticeRepo,
		ContractRepo: contractRepo,
		TenantRepo:   tenantRepo,
		TemplateRepo: templateRepo,
		BatchRepo:    batchRepo,
		Senders:      senders,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	deadlineScanner := service.NewDeadlineScanner(cfg.Scanner, noticeRepo, alertService, logger)
	anomalyDetector := service.NewAnomalyDetector(cfg.Scanner, noticeRepo, alertService, logger)
	riskService := service.NewRiskService(riskRepo, alertService, logger)
	billingService := service.NewBillingService(cfg.Billing, contractRepo, invoiceRepo,
		lock.NewRedisLocker(redis.Client), dispatcher, metrics, logger)
	service.NewAuditHandler(auditRepo, logger).Register(dispatcher)

	jobQueue := queue.New(redis.Client, cfg.Queue, metrics, logger)
	worker.RegisterHandlers(jobQueue, worker.Dependencies{
		Billing:   billingService,
		Delivery:  deliveryService,
		Deadlines: deadlineScanner,
		Anomalies: anomalyDetector,
		Risk:      riskService,
		RiskBatch: cfg.Scanner.RiskBatchSize,
	})
	jobQueue.Start(ctx)
	defer jobQueue.Stop()

	sched := scheduler.New(logger)
	sched.AddMonthly("monthly-billing", 1, 2, func(ctx context.Context) error {
		_, err := jobQueue.Enqueue(ctx, worker.JobGenerateInvoices, map[string]string{
			"month": worker.NextBillingPeriod(time.Now()),
		})
		return err
	})
	sched.AddInterval("alert-scan", time.Duration(cfg.Scanner.IntervalMinutes)*time.Minute, func(ctx context.Context) error {
		_, err := jobQueue.Enqueue(ctx, worker.JobRunScan, nil)
		return err
	})
	sched.AddInterval("risk-scoring", 24*time.Hour, func(ctx context.Context) error {
		_, err := jobQueue.Enqueue(ctx, worker.JobAssessRisk, nil)
		return err
	})
	sched.AddInterval("delivery-retries", time.Minute, func(ctx context.Context) error {
		return deliveryService.ProcessDueRetries(ctx)
	})
	sched.AddInterval("scheduled-batches", time.Minute, func(ctx context.Context) error {
		return deliveryService.ProcessScheduledBatches(ctx)
	})
	sched.Start(ctx)
	defer sched.Stop()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Notices:    handlers.NewNoticesHandler(contractRepo),
		Alerts:     handlers.NewAlertsHandler(alertService),
		Deliveries: handlers.NewDeliveriesHandler(deliveryService, jobQueue),
		Batches:    handlers.NewBatchesHandler(jobQueue),
		Jobs:       handlers.NewJobsHandler(jobQueue),
		Registry:   registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
