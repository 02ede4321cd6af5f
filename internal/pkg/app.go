package pkg

import (
	"fmt"
	"os"

	"croissants/internal/app/config"
	"croissants/internal/app/handler"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Application struct {
	Config     *config.Config
	Router     *gin.Engine
	Handler    *handler.Handler
	APIHandler *handler.APIHandler
}

func NewApp(c *config.Config, r *gin.Engine, h *handler.Handler, api *handler.APIHandler) *Application {
	return &Application{
		Config:     c,
		Router:     r,
		Handler:    h,
		APIHandler: api,
	}
}

// Mount регистрирует шаблоны и маршруты формы и API
func (a *Application) Mount() error {
	if err := a.Handler.RegisterTemplates(a.Router); err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	a.Handler.RegisterRoutes(a.Router)
	a.APIHandler.RegisterAPIRoutes(a.Router, a.Config.CORSOrigins)
	return nil
}

func (a *Application) RunApp() error {
	logrus.Info("Server start up")

	if err := a.Mount(); err != nil {
		return err
	}

	serverAddress := fmt.Sprintf("%s:%d", a.Config.ServiceHost, a.Config.ServicePort)
	logrus.Infof("Starting server on %s", serverAddress)

	if err := a.Router.Run(serverAddress); err != nil {
		return err
	}

	logrus.Info("Server down")
	return nil
}

// ConfigureLogger настраивает logrus по конфигу
func ConfigureLogger(cfg *config.Config) {
	logrus.SetOutput(os.Stdout)

	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Warnf("unknown log level %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
