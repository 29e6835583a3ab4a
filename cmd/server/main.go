package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkboard/internal/config"
	"github.com/inkboard/internal/db"
	"github.com/inkboard/internal/handler"
	"github.com/inkboard/internal/logger"
	"github.com/inkboard/internal/metrics"
	"github.com/inkboard/internal/router"
	"github.com/inkboard/internal/service"
	"github.com/joho/godotenv"
)

func main() {
	// .env 不存在时忽略，环境变量优先
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New("inkboard", "info").WithError(err).Fatal("failed to load config")
	}

	log := logger.New("inkboard", cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	if err := db.EnsureUser(db.DB, cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
		log.WithError(err).Fatal("failed to ensure admin user")
	}

	m := metrics.New()
	cache := service.NewResultCache(cfg.CacheSize).WithObserver(m.CacheHit, m.CacheMiss)
	store := service.NewViewStore(db.DB)
	analytics := service.NewAnalyticsService(store, cache, cfg.Location)

	syncer := service.NewSyncService(nil, store, cache, m, log)
	if cfg.RemoteSyncEnabled() {
		client := service.NewViewClient(cfg.ViewsAPIBaseURL, cfg.ViewsAPIToken, cfg.ViewsAPITimeout, log)
		client.SetLocation(cfg.Location)
		syncer = service.NewSyncService(client, store, cache, m, log)
	} else {
		log.Warn("VIEWS_API_BASE_URL not set, serving local snapshot only")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go syncer.Run(ctx, cfg.SyncInterval)

	api := handler.NewAPI(db.DB, analytics, syncer, store, log)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.SetupRouter(api, cfg.SessionSecret, log, m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
		os.Exit(1)
	}
	log.Info("server exited")
}
