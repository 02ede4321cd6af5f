package handler

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes регистрирует JSON API формы
func (h *APIHandler) RegisterAPIRoutes(router *gin.Engine, allowedOrigins []string) {
	api := router.Group("/api")
	api.Use(cors.New(corsConfig(allowedOrigins)))

	api.GET("/state", h.GetState)

	// ============ Черновик ============
	draft := api.Group("/draft")
	{
		draft.PUT("/:field", h.UpdateDraftField)
		draft.POST("/floor/blur", h.NormalizeFloor)
	}

	api.PUT("/building/:id", h.SelectBuilding)

	// ============ Заявки ============
	requests := api.Group("/requests")
	{
		requests.POST("", h.SubmitRequest)
		requests.DELETE("/:id", h.DeleteRequest)
	}

	// Ping эндпоинт для проверки
	router.GET("/ping", h.Ping)
}

// corsConfig: "*" открывает API для всех без cookies,
// явный список origin разрешает cookie сессии
func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.MaxAge = 12 * time.Hour

	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// Ping проверяет работоспособность API
// @Summary Проверка работоспособности
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /ping [get]
func (h *APIHandler) Ping(ctx *gin.Context) {
	ctx.JSON(200, gin.H{"message": "pong"})
}
