package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/noah-isme/rchan-moderation-api/api/swagger"
	"github.com/noah-isme/rchan-moderation-api/internal/dto"
	"github.com/noah-isme/rchan-moderation-api/internal/handler"
	"github.com/noah-isme/rchan-moderation-api/internal/repository"
	"github.com/noah-isme/rchan-moderation-api/internal/router"
	"github.com/noah-isme/rchan-moderation-api/internal/service"
	"github.com/noah-isme/rchan-moderation-api/pkg/cache"
	"github.com/noah-isme/rchan-moderation-api/pkg/config"
	"github.com/noah-isme/rchan-moderation-api/pkg/database"
	"github.com/noah-isme/rchan-moderation-api/pkg/jobs"
	"github.com/noah-isme/rchan-moderation-api/pkg/logger"
	"github.com/noah-isme/rchan-moderation-api/pkg/mailer"
	"github.com/noah-isme/rchan-moderation-api/pkg/middleware/ratelimit"
	"github.com/noah-isme/rchan-moderation-api/pkg/storage"
)

// @title r-chan Moderation API
// @version 1.0.0
// @description Anonymous posting board backend with a moderation workflow and audit ledger
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if len(applied) > 0 {
		logr.Info("migrations applied", zap.Strings("versions", applied))
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	metrics := service.NewMetricsService()
	validate := dto.NewValidator()

	var (
		cacheRepo  service.CacheRepository
		cacheStore *repository.CacheRepository
	)
	if redisClient != nil {
		cacheStore = repository.NewCacheRepository(redisClient, logr)
		defer cacheStore.Close()
		cacheRepo = cacheStore
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Sections.CacheTTL, logr, cacheRepo != nil)

	txManager := repository.NewTxManager(db)
	adminRepo := repository.NewAdminUserRepository(db)
	resetRepo := repository.NewPasswordResetRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	postRepo := repository.NewPostRepository(db)
	repostRepo := repository.NewRepostRepository(db)
	logRepo := repository.NewModerationLogRepository(db)

	mediaStore, err := storage.NewLocalStorage(cfg.Storage.Dir)
	if err != nil {
		return fmt.Errorf("init media storage: %w", err)
	}
	exportStore, err := storage.NewLocalStorage(cfg.Exports.Dir)
	if err != nil {
		return fmt.Errorf("init export storage: %w", err)
	}

	notifier := service.NewNotificationService(mailer.NewSMTPSender(cfg.Mail), metrics, cfg.Codes.Expiration, logr)
	mailQueue := jobs.NewQueue("notifications", notifier.Handle, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
		OnDrop:     notifier.Dropped,
	})
	mailQueue.Start(ctx)
	defer mailQueue.Stop()
	notifier.UseQueue(mailQueue)

	logs := service.NewModerationLogService(logRepo, metrics, logr)
	files := service.NewFileService(mediaStore, cfg.Storage, logr)
	policy := service.NewApprovalPolicy(service.NewContentValidator(cfg.Moderation.RestrictedWords))
	sections := service.NewSectionService(sectionRepo, cacheSvc, cfg.Sections.CacheTTL, logr)

	posts := service.NewPostService(service.PostServiceDeps{
		Repo:      postRepo,
		Reposts:   repostRepo,
		Sections:  sections,
		Files:     files,
		Logs:      logs,
		Policy:    policy,
		Tx:        txManager,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
	})
	reposts := service.NewRepostService(service.RepostServiceDeps{
		Repo:      repostRepo,
		Posts:     postRepo,
		Files:     files,
		Logs:      logs,
		Policy:    policy,
		Tx:        txManager,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
	})
	users := service.NewAdminUserService(service.AdminUserServiceDeps{
		Repo:       adminRepo,
		Resets:     resetRepo,
		Logs:       logs,
		Notifier:   notifier,
		Tx:         txManager,
		Validator:  validate,
		Logger:     logr,
		CodeExpiry: cfg.Codes.Expiration,
	})
	resets := service.NewPasswordResetService(service.PasswordResetServiceDeps{
		Users:     adminRepo,
		Codes:     resetRepo,
		Cache:     cacheSvc,
		Notifier:  notifier,
		Tx:        txManager,
		Config:    cfg.Codes,
		Validator: validate,
		Logger:    logr,
	})
	auth := service.NewAuthService(adminRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	exports := service.NewLogExportService(
		logRepo,
		exportStore,
		storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		service.LogExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.SignedURLTTL},
		logr,
		nil,
		nil,
	)

	if created, err := sections.Initialize(ctx); err != nil {
		logr.Warn("section initialization failed", zap.Error(err))
	} else if len(created) > 0 {
		logr.Info("sections seeded", zap.Int("count", len(created)))
	}

	checks := map[string]handler.Pinger{"postgres": db}
	if cacheStore != nil {
		checks["redis"] = handler.PingFunc(cacheStore.Ping)
	}

	engine := router.New(router.Deps{
		Config:   cfg,
		Logger:   logr,
		Tokens:   auth,
		Observer: metrics,
		Limiter:  ratelimit.New(cfg.RateLimit.PublicPerMinute),
	}, router.Handlers{
		Auth:          handler.NewAuthHandler(auth),
		PasswordReset: handler.NewPasswordResetHandler(resets),
		Users:         handler.NewAdminUserHandler(users),
		Posts:         handler.NewPostHandler(posts),
		Reposts:       handler.NewRepostHandler(reposts),
		Sections:      handler.NewSectionHandler(sections),
		Logs:          handler.NewModerationLogHandler(logs),
		Exports:       handler.NewExportHandler(exports),
		Files:         handler.NewFileHandler(files),
		Metrics:       handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		jobs.RunEvery(gctx, "password-reset-cleanup", cfg.Codes.CleanupInterval, logr, func(ctx context.Context) error {
			_, err := resets.CleanupExpired(ctx)
			return err
		})
		return nil
	})
	g.Go(func() error {
		jobs.RunEvery(gctx, "export-cleanup", cfg.Exports.CleanupInterval, logr, exports.Cleanup)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logr.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
