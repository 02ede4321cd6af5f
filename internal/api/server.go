package api

import (
	"context"
	"fmt"

	_ "croissants/docs"
	"croissants/internal/app/config"
	"croissants/internal/app/form"
	"croissants/internal/app/handler"
	"croissants/internal/app/middleware"
	"croissants/internal/app/repository"
	"croissants/internal/app/storage"
	"croissants/internal/pkg"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func StartServer() error {
	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}
	pkg.ConfigureLogger(cfg)

	repo, err := repository.New(cfg.API.BaseURL, cfg.API.Timeout)
	if err != nil {
		return fmt.Errorf("ошибка инициализации клиента API: %w", err)
	}

	store, err := newStore(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("ошибка инициализации хранилища сессий: %w", err)
	}

	return NewApp(cfg, repo, store).RunApp()
}

// NewApp собирает приложение: контроллер формы, обработчики и middleware
func NewApp(cfg *config.Config, api form.API, store storage.Store, opts ...form.Option) *pkg.Application {
	controller := form.NewController(api, store, opts...)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.New())
	r.Use(middleware.SessionMiddleware(cfg.Session.CookieName, cfg.Session.TTL))
	r.Use(middleware.Logger())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	return pkg.NewApp(cfg, r, handler.NewHandler(controller, store), handler.NewAPIHandler(controller, store))
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if !cfg.Redis.Enabled() {
		logrus.Warn("REDIS_HOST is not set, sessions are kept in memory")
		return storage.NewMemoryStore(cfg.Session.TTL, cfg.Session.SubmitLockTTL), nil
	}
	return storage.NewRedisStore(ctx, cfg.Redis, cfg.Session.TTL, cfg.Session.SubmitLockTTL)
}
