package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"minco/internal/aggregator"
	"minco/internal/config"
	cronrunner "minco/internal/cron"
	"minco/internal/db"
	"minco/internal/handler"
	"minco/internal/ledger"
	"minco/internal/logger"
	"minco/internal/notify"
	gormrepository "minco/internal/repository/gorm"
	"minco/internal/service"
	"minco/internal/store"
)

func main() {
	cfgPath := os.Getenv("CAPITAL_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("CAPITAL_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Backends in priority order: redis (fast), sqlite (durable), file
	// (overflow). Any subset may be configured; the ledger degrades to
	// in-memory only when none are.
	var backends []store.Backend

	if cfg.Store.Redis.Enabled {
		rdb := store.NewRedis(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		}, cfg.Store.Redis.Key)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx); err != nil {
			logger.Warn("redis unreachable at startup, keeping backend anyway", zap.Error(err))
		}
		cancel()
		backends = append(backends, rdb)
	}

	var dbConn *db.DB
	if cfg.Store.DB.Path != "" {
		dbConn, err = db.Open(cfg.Store.DB)
		if err != nil {
			logger.Fatal("db open failed", zap.Error(err))
		}
		defer db.Close(dbConn)
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}
		backends = append(backends, store.NewDB(dbConn.Gorm, "capital:ledger"))
	}

	if cfg.Store.File.Enabled {
		backends = append(backends, store.NewFile(cfg.Store.File.Path))
	}
	if len(backends) == 0 {
		logger.Warn("no persistence backends configured, ledger is memory only")
	}

	initialEquity := decimal.NewFromFloat(cfg.Ledger.InitialEquity)
	multi := &store.Multi{
		Backends:      backends,
		Logger:        logger,
		InitialEquity: initialEquity,
	}

	capitalSvc := &service.CapitalService{
		Store:         multi,
		Logger:        logger,
		InitialEquity: initialEquity,
		Goals:         ledger.LadderFromFloats(cfg.Ledger.Goals),
		SaveInterval:  cfg.Ledger.SaveInterval,
	}

	var repo *gormrepository.Store
	if dbConn != nil {
		repo = gormrepository.New(dbConn.Gorm)
	}

	var forwarder aggregator.Forwarder
	if cfg.Aggregator.ForwardURL != "" {
		forwarder = &aggregator.HTTPForwarder{
			URL:     cfg.Aggregator.ForwardURL,
			Secret:  cfg.Auth.Secret,
			Timeout: cfg.Aggregator.ForwardTimeout,
		}
	} else {
		forwarder = &aggregator.ServiceForwarder{Capital: capitalSvc}
	}
	agg := &aggregator.Aggregator{
		Debounce: cfg.Aggregator.Debounce,
		FeedTTL:  cfg.Aggregator.FeedTTL,
		Forward:  forwarder,
		Logger:   logger,
	}

	var telegram *notify.TelegramSender
	if cfg.Telegram.AckEnabled && cfg.Telegram.BotToken != "" {
		telegram = &notify.TelegramSender{BotToken: cfg.Telegram.BotToken}
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn}
	healthHandler.Register(engine)
	capitalHandler := &handler.CapitalHandler{
		Capital: capitalSvc,
		Repo:    repo,
		Secret:  cfg.Auth.Secret,
	}
	capitalHandler.Register(engine)
	liveSyncHandler := &handler.LiveSyncHandler{
		Capital:       capitalSvc,
		Logger:        logger,
		InitialEquity: initialEquity,
	}
	liveSyncHandler.Register(engine)
	webhookHandler := &handler.WebhookHandler{
		Aggregator: agg,
		Telegram:   telegram,
		Logger:     logger,
	}
	webhookHandler.Register(engine)
	aggHandler := &handler.AggregatorHandler{Aggregator: agg}
	aggHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)

		_, err = cronRunner.Add("ledger flush", cfg.Cron.Flush, func(ctx context.Context) {
			capitalSvc.Flush(ctx)
		})
		if err != nil {
			logger.Warn("cron register flush failed", zap.Error(err))
		}

		// A read is enough to roll the day over and persist the boundary.
		_, err = cronRunner.Add("day rollover", cfg.Cron.Rollover, func(ctx context.Context) {
			capitalSvc.Read(ctx)
		})
		if err != nil {
			logger.Warn("cron register rollover failed", zap.Error(err))
		}

		if repo != nil {
			archiver := &service.HistoryArchiver{
				Capital: capitalSvc,
				Repo:    repo,
				Logger:  logger,
			}
			_, err = cronRunner.Add("history archive", cfg.Cron.HistoryArchive, func(ctx context.Context) {
				if err := archiver.RunOnce(ctx); err != nil {
					logger.Warn("history archive failed", zap.Error(err))
				}
			})
			if err != nil {
				logger.Warn("cron register history archive failed", zap.Error(err))
			}
		}

		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	// Last chance to land the in-memory ledger on a backend.
	if !capitalSvc.Flush(shutdownCtx) {
		logger.Warn("final flush failed, latest state may be lost")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
