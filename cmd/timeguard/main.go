package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/timeguard/timeguard/internal/app"
	"github.com/timeguard/timeguard/internal/compliance"
	"github.com/timeguard/timeguard/internal/ledger"
	ledgerhttp "github.com/timeguard/timeguard/internal/ledger/http"
	"github.com/timeguard/timeguard/internal/observability"
	"github.com/timeguard/timeguard/internal/platform/cache"
	"github.com/timeguard/timeguard/internal/platform/db"
	"github.com/timeguard/timeguard/internal/timeentries"
	"github.com/timeguard/timeguard/internal/timesheets"
	"github.com/timeguard/timeguard/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	ledgerRepo := ledger.NewRepository(dbpool)
	auditLedger := ledger.NewLedger(ledgerRepo, logger, metrics)
	verifier := ledger.NewVerifier(ledgerRepo, logger)

	entryRepo := timeentries.NewRepository(dbpool)
	aggregator := timeentries.NewAggregator(entryRepo)

	rulesCache := cache.NewVersioned(redisClient, "timeguard:compliance", cfg.RulesCacheTTL)
	ruleSource := compliance.NewRuleSource(compliance.NewRuleStore(dbpool), rulesCache, logger)
	engine := compliance.NewEngine(aggregator, compliance.NewMessages(cfg.ComplianceLang))
	complianceService := compliance.NewService(ruleSource, engine, compliance.NewRecorder(auditLedger), logger)
	complianceHandler := compliance.NewHandler(logger, complianceService)

	timesheetService := timesheets.NewService(entryRepo, complianceService, auditLedger, logger)
	timesheetHandler := timesheets.NewHandler(logger, timesheetService)

	auditHandler := ledgerhttp.NewHandler(logger, verifier, auditLedger, cfg.ExportMaxRange)

	inspector := asynq.NewInspector(cfg.AsynqRedis())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(cfg.AsynqRedis())
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		ComplianceHandler: complianceHandler,
		TimesheetsHandler: timesheetHandler,
		AuditHandler:      auditHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
		Database:          dbpool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
