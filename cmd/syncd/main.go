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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"shopsync/internal/client/shopify"
	"shopsync/internal/config"
	cronrunner "shopsync/internal/cron"
	"shopsync/internal/db"
	"shopsync/internal/handler"
	"shopsync/internal/logger"
	gormrepository "shopsync/internal/repository/gorm"
	"shopsync/internal/service"

	_ "shopsync/docs"
)

func main() {
	cfgPath := os.Getenv("SS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("SS_ENV_ONLY"); envOnlyRaw != "" {
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

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	shopifyHTTP := &http.Client{Timeout: cfg.Shopify.Timeout}
	shopifyClient := shopify.NewClient(shopifyHTTP, cfg.Shopify.Shop, cfg.Shopify.AccessToken, cfg.Shopify.APIVersion, cfg.Shopify.MinRequestInterval)
	store := gormrepository.New(dbConn.Gorm)

	syncService := &service.SyncService{
		Store:  store,
		Source: shopifyClient,
		Logger: logger,
		Config: cfg.Sync,
	}
	anonymizeService := &service.AnonymizeService{
		Store:  store,
		Logger: logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	syncHandler := &handler.SyncHandler{Service: syncService, Logger: logger}
	syncHandler.Register(engine)
	webhookHandler := &handler.WebhookHandler{
		Anonymizer: anonymizeService,
		Secret:     cfg.Webhook.Secret,
		Timeout:    cfg.Webhook.Timeout,
		Logger:     logger,
	}
	webhookHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.AddWithTimeout(cfg.Cron.Sync, cfg.Sync.CycleTimeout, func(ctx context.Context) {
			report, err := syncService.RunCycle(ctx, nil)
			if err != nil {
				logger.Warn("cron sync cycle failed", zap.Error(err))
				return
			}
			for _, res := range report.Results {
				logger.Info("cron sync cycle result",
					zap.String("resource", res.Resource),
					zap.String("status", res.Status),
					zap.Int("pages", res.Pages),
					zap.Int("records", res.Records),
				)
			}
		})
		if err != nil {
			logger.Warn("cron register sync failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)

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
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
