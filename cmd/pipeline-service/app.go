package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq" // PostgreSQL driver

	"renos/internal/api"
	"renos/internal/approval"
	"renos/internal/compose"
	"renos/internal/config"
	"renos/internal/constants"
	"renos/internal/dispatch"
	"renos/internal/guard"
	"renos/internal/lead"
	"renos/internal/llm"
	"renos/internal/logger"
	"renos/internal/pipeline"
	"renos/internal/pricing"
	"renos/internal/route"
	"renos/internal/store"
	"renos/pkg/bootstrap"
	"renos/pkg/breaker"
	"renos/pkg/health"
	"renos/pkg/metrics"
	"renos/pkg/middleware"
	"renos/pkg/ratelimit"
)

type App struct {
	config      *config.Config
	logger      logger.Logger
	base        *bootstrap.Base
	dbConnector *bootstrap.DatabaseConnector
	db          *sql.DB
	redisClient *redis.Client
	breakers    *breaker.Registry
	service     *pipeline.Service
	workflow    *approval.Workflow
	server      *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		config:      cfg,
		logger:      log,
		base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.base.InitBroker("pipeline-service"); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initPipeline(); err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	if err := a.initServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db

	if a.config.Database.RunMigrations {
		if err := store.Migrate(db, a.logger); err != nil {
			return err
		}
	}

	redisClient, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redisClient = redisClient
	return nil
}

func (a *App) initPipeline() error {
	if a.config.Breaker.Enabled {
		a.breakers = breaker.NewRegistry(breaker.Config{
			FailureThreshold: a.config.Breaker.FailureThreshold,
			RecoveryTimeout:  a.config.Breaker.RecoveryTimeout,
			CallTimeout:      a.config.Breaker.CallTimeout,
			MaxAttempts:      a.config.Breaker.MaxAttempts,
			RetryInterval:    a.config.Breaker.RetryInterval,
		})
	}

	pipelineCfg := a.config.Pipeline

	extractor, err := lead.NewExtractor(pipelineCfg.Extractor, a.logger)
	if err != nil {
		return fmt.Errorf("failed to build extractor: %w", err)
	}

	provider, err := llm.NewProvider(a.config.LLM)
	if err != nil {
		return fmt.Errorf("failed to build llm provider: %w", err)
	}

	pg := store.NewPostgresStore(a.db, a.logger)
	cacheTTL := time.Duration(pipelineCfg.Guards.Duplicate.LookbackDays) * 24 * time.Hour
	quotes := store.NewCachedQuotes(a.redisClient, pg, cacheTTL, a.logger)

	busy := pipeline.GuardBusyLookup(a.breakers, compose.OpenCalendar{})
	scheduler := compose.NewScheduler(pipelineCfg.Composer, busy)
	composer := compose.NewComposer(pipelineCfg.Composer,
		pipeline.GuardLLM(a.breakers, provider),
		pricing.NewCalculator(pipelineCfg.Pricing),
		scheduler,
		a.logger)

	auditor := pipeline.NewAuditor(a.base.Producer, a.auditTopic(), a.logger)

	quoteLookup, customerLookup := pipeline.GuardLookups(a.breakers, quotes, pg)
	guards := guard.NewChain(a.logger,
		guard.NewDuplicateGuard(pipelineCfg.Guards.Duplicate, quoteLookup, customerLookup, a.logger),
		guard.NewConflictGuard(pipelineCfg.Guards.Conflict, auditor, a.logger),
		guard.NewCompletenessGuard(),
	)

	mailer := pipeline.GuardMailer(a.breakers, dispatch.NewSMTPMailer(pipelineCfg.Dispatch.Mail))
	gateway := dispatch.NewGateway(pipelineCfg.Dispatch, mailer, dispatch.NewJournalLabeler(a.logger), a.logger)

	a.workflow = approval.NewWorkflow(pipelineCfg.Approval, approval.NewMemoryStore(), gateway, a.logger)

	recorder := &quoteRecorder{leads: pg, quotes: quotes}
	a.service = pipeline.NewService(extractor, composer, guards, route.NewRouter(pipelineCfg.Routing, a.logger), a.workflow, recorder, auditor, a.logger)
	return nil
}

func (a *App) initServer() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.config.Server.RateLimit.Enabled {
		rateLimitConfig := ratelimit.DefaultConfig()
		rateLimitConfig.RPS = a.config.Server.RateLimit.RPS
		rateLimitConfig.Burst = a.config.Server.RateLimit.Burst
		router.Use(ratelimit.RateLimitMiddleware(rateLimitConfig))
	}

	api.NewHandler(a.workflow, a.breakers, a.logger).RegisterRoutes(router)

	metrics.RegisterPipelineMetrics()
	metrics.RegisterCircuitBreakerMetrics()
	metrics.RegisterBrokerMetrics()

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	// Quote lookups fall back to postgres when the cache is gone.
	healthRegistry.RegisterOptional(health.NewRedisChecker(a.redisClient))
	healthRegistry.Register(health.NewKafkaChecker(a.config.Broker.Kafka.Brokers))

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.config.Server.WriteTimeoutSeconds * time.Second,
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfowCtx(ctx, "HTTP server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		topic := a.inputTopic()
		a.logger.InfowCtx(ctx, "Consuming inbound messages", "topic", topic)
		if err := a.base.Consumer.Consume(ctx, topic, a.service.Process); err != nil && ctx.Err() == nil {
			return fmt.Errorf("consumer error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Errorw("HTTP server shutdown failed", "error", err)
		}
		return nil
	})

	runErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	if err := a.base.Shutdown(shutdownCtx, func(ctx context.Context) []error {
		return a.dbConnector.ShutdownDatabases(ctx, a.redisClient, a.db)
	}); err != nil {
		a.logger.Errorw("Shutdown finished with errors", "error", err)
	}

	return runErr
}

func (a *App) inputTopic() string {
	if topic := a.config.Broker.Kafka.InputTopic; topic != "" {
		return topic
	}
	return constants.DefaultInputTopic
}

func (a *App) auditTopic() string {
	if topic := a.config.Broker.Kafka.AuditTopic; topic != "" {
		return topic
	}
	return constants.DefaultAuditTopic
}

// quoteRecorder joins the lead table and the cached quote store behind
// the pipeline's Recorder interface.
type quoteRecorder struct {
	leads  *store.PostgresStore
	quotes *store.CachedQuotes
}

func (r *quoteRecorder) RecordLead(ctx context.Context, rec *store.LeadRecord) error {
	return r.leads.RecordLead(ctx, rec)
}

func (r *quoteRecorder) RecordQuoteSent(ctx context.Context, rec *store.QuoteRecord) error {
	return r.quotes.RecordQuoteSent(ctx, rec)
}
