// Package app assembles repositories, services and the HTTP router from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-core/internal/repository"
	"github.com/noah-isme/sma-scheduling-core/internal/service"
	"github.com/noah-isme/sma-scheduling-core/pkg/cache"
	"github.com/noah-isme/sma-scheduling-core/pkg/config"
	"github.com/noah-isme/sma-scheduling-core/pkg/database"
	"github.com/noah-isme/sma-scheduling-core/pkg/jobs"
)

// App holds the wired scheduling core.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB

	Metrics     *service.MetricsService
	Catalog     *service.CatalogService
	Assignments *service.AssignmentService
	Workloads   *service.WorkloadService
	Audit       *service.AuditRecorder
	Ledger      *service.HourLedger
	Consistency *service.ConsistencyService

	cacheRepo    *repository.CacheRepository
	cacheEnabled bool
	queue        *jobs.Queue
}

// New opens the configured database and cache, applies migrations when DB_AUTO_MIGRATE is
// set and wires every service.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, workload cache disabled", zap.Error(err))
		redisClient = nil
	}

	return Wire(cfg, logger, db, redisClient), nil
}

// Wire builds the service graph on an open database. redisClient may be nil.
func Wire(cfg *config.Config, logger *zap.Logger, db *sqlx.DB, redisClient *redis.Client) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := validator.New()
	metrics := service.NewMetricsService()

	catalogRepo := repository.NewCatalogRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logger)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Workload.CacheTTL, logger, redisClient != nil)
	workloads := service.NewWorkloadService(instructorRepo, cacheSvc, cfg.Workload.CacheTTL, logger)
	ledger := service.NewHourLedger(instructorRepo, metrics, logger)
	audit := service.NewAuditRecorder(auditRepo, logger)
	validatorSvc := service.NewConflictValidator(catalogRepo, instructorRepo, assignmentRepo, logger)

	assignments := service.NewAssignmentService(
		db,
		assignmentRepo,
		validatorSvc,
		ledger,
		audit,
		catalogRepo,
		instructorRepo,
		workloads,
		metrics,
		validate,
		logger,
		service.AssignmentServiceConfig{
			MaxRetries:     cfg.Assignments.MaxRetries,
			RetryBaseDelay: cfg.Assignments.RetryBaseDelay,
			RetryMaxDelay:  cfg.Assignments.RetryMaxDelay,
		},
	)

	consistency := service.NewConsistencyService(
		db,
		catalogRepo,
		assignmentRepo,
		ledger,
		instructorRepo,
		workloads,
		metrics,
		logger,
		service.ConsistencyServiceConfig{Interval: cfg.Consistency.Interval},
	)

	return &App{
		Config:       cfg,
		Logger:       logger,
		DB:           db,
		Metrics:      metrics,
		Catalog:      service.NewCatalogService(catalogRepo, instructorRepo, validate, logger),
		Assignments:  assignments,
		Workloads:    workloads,
		Audit:        audit,
		Ledger:       ledger,
		Consistency:  consistency,
		cacheRepo:    cacheRepo,
		cacheEnabled: redisClient != nil,
	}
}

// StartBackground launches the consistency audit queue and its ticker when enabled.
func (a *App) StartBackground(ctx context.Context) {
	if !a.Config.Consistency.Enabled {
		return
	}
	worker := service.NewConsistencyWorker(a.Consistency, a.Config.Consistency.Reconcile)
	a.queue = jobs.NewQueue("consistency-audit", worker.Handle, jobs.QueueConfig{
		Workers:    a.Config.Consistency.Workers,
		MaxRetries: 2,
		Logger:     a.Logger,
	})
	a.queue.Start(ctx)
	a.Consistency.SetQueue(a.queue)
	a.Consistency.StartSchedule(ctx)
	a.Logger.Info("consistency audit scheduled", zap.Duration("interval", a.Config.Consistency.Interval))
}

// Close stops background work and releases connections.
func (a *App) Close() {
	if a.queue != nil {
		a.queue.Stop()
	}
	if err := a.cacheRepo.Close(); err != nil {
		a.Logger.Warn("failed to close redis", zap.Error(err))
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Warn("failed to close database", zap.Error(err))
	}
}
