package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tesla_parts_api/internal/config"
	"tesla_parts_api/internal/controller"
	"tesla_parts_api/internal/middleware"
	"tesla_parts_api/internal/repository"
	"tesla_parts_api/internal/router"
	"tesla_parts_api/internal/service"
	"tesla_parts_api/internal/task"
)

// ==================== 依赖容器 ====================

// App 依赖容器
type App struct {
	Config     *config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	Repos      *Repositories
	Services   *Services
	Dispatcher *task.Dispatcher
}

// Repositories 仓库集合
type Repositories struct {
	Catalog *repository.CatalogUnitOfWork
	Order   repository.OrderRepository
	Setting repository.SettingRepository
	Page    repository.PageRepository
	SEO     repository.SEORepository
	User    repository.UserRepository
}

// Services 服务集合
type Services struct {
	Storage *service.StorageService
	Pricing *service.PricingService
	Catalog *service.CatalogService
	Product *service.ProductService
	Order   *service.OrderService
	User    *service.UserService
	Setting *service.SettingService
	Page    *service.PageService
	SEO     *service.SEOService
	Sitemap *service.SitemapService
}

// NewApp 初始化所有依赖
func NewApp(cfg *config.Config, db *gorm.DB, log *zap.Logger) (*App, error) {
	middleware.SetJWTConfig(&middleware.JWTConfig{
		SecretKey:      cfg.Auth.JWTSecret,
		AccessTokenTTL: cfg.Auth.AccessTokenTTL,
		Issuer:         "tesla-parts",
	})

	// -------- Repo 层 --------
	repos := &Repositories{
		Catalog: repository.NewCatalogUnitOfWork(db),
		Order:   repository.NewOrderRepository(db),
		Setting: repository.NewSettingRepository(db),
		Page:    repository.NewPageRepository(db),
		SEO:     repository.NewSEORepository(db),
		User:    repository.NewUserRepository(db),
	}

	// -------- 基础服务 --------
	storageSvc, err := service.NewStorageService(storageConfig(cfg), log)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	pricing := service.NewPricingService(repos.Setting, log)
	dispatcher := task.NewDispatcher(30*time.Second, log)
	notifier := service.NewTelegramNotifier(service.TelegramConfig{
		BotToken: cfg.Telegram.BotToken,
		ChatID:   cfg.Telegram.ChatID,
		APIBase:  cfg.Telegram.APIBase,
	}, repos.Setting, nil, log)

	// -------- 业务服务 --------
	services := &Services{
		Storage: storageSvc,
		Pricing: pricing,
		Catalog: service.NewCatalogService(repos.Catalog, pricing, storageSvc, log),
		Product: service.NewProductService(repos.Catalog, pricing, storageSvc, cfg.Site.PlaceholderImg, log),
		Order:   service.NewOrderService(repos.Order, pricing, notifier, dispatcher, log),
		User:    service.NewUserService(repos.User, log),
		Setting: service.NewSettingService(repos.Setting, log),
		Page:    service.NewPageService(repos.Page, log),
		SEO:     service.NewSEOService(repos.SEO, log),
		Sitemap: service.NewSitemapService(cfg.Site.URL, repos.SEO, repos.Page, repos.Catalog.Categories, repos.Catalog.Products),
	}

	return &App{
		Config:     cfg,
		DB:         db,
		Log:        log,
		Repos:      repos,
		Services:   services,
		Dispatcher: dispatcher,
	}, nil
}

func storageConfig(cfg *config.Config) service.StorageConfig {
	s := cfg.Storage
	return service.StorageConfig{
		Provider:   s.Provider,
		BasePath:   s.BasePath,
		BackendURL: s.BackendURL,
		LocalDir:   s.LocalDir,
		Bucket:     s.Bucket,
		Region:     s.Region,
		AccessKey:  s.AccessKey,
		SecretKey:  s.SecretKey,
		CDNDomain:  s.CDNDomain,
		CloudName:  s.CloudinaryCloudName,
		APIKey:     s.CloudinaryAPIKey,
		APISecret:  s.CloudinaryAPISecret,
	}
}

// Engine 组装路由
func (a *App) Engine() *gin.Engine {
	gin.SetMode(a.Config.Server.Mode)

	staticDir := ""
	if a.Config.Storage.Provider == "local" {
		staticDir = a.Config.Storage.LocalDir
	}
	r := router.NewEngine(a.Log, router.Options{
		CORSOrigins: a.Config.Server.CORSOrigins,
		StaticDir:   staticDir,
	})

	h := router.Handlers{
		Auth:    controller.NewAuthController(a.Services.User),
		Catalog: controller.NewCatalogController(a.Services.Catalog),
		Product: controller.NewProductController(a.Services.Product),
		Order:   controller.NewOrderController(a.Services.Order),
		Setting: controller.NewSettingController(a.Services.Setting),
		Page:    controller.NewPageController(a.Services.Page),
		SEO:     controller.NewSEOController(a.Services.SEO),
		Sitemap: controller.NewSitemapController(a.Services.Sitemap),
	}
	router.InitRoutes(r, h, middleware.RequireAdmin(a.Services.User, a.Config.Auth.AdminSecret))
	return r
}

// ==================== 服务启动 ====================

// Serve 启动 HTTP 服务与定时任务，收到退出信号后优雅关闭
func (a *App) Serve(ctx context.Context) error {
	if err := a.Services.SEO.EnsureDefaults(ctx); err != nil {
		a.Log.Warn("ensure default seo failed", zap.Error(err))
	}

	backfill := task.NewOrderBackfillTask(a.Services.Order, a.Config.Task.OrderBackfillSpec, a.Log)
	if err := backfill.Start(); err != nil {
		return err
	}
	defer backfill.Stop()

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	a.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Log.Error("server forced to shutdown", zap.Error(err))
	}
	// 等待未完成的通知
	if err := a.Dispatcher.Shutdown(shutdownCtx); err != nil {
		a.Log.Warn("background jobs not drained", zap.Error(err))
	}
	a.Log.Info("server exited")
	return nil
}

// Close 释放数据库连接并刷新日志
func (a *App) Close() {
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.Log.Sync()
}
