package handlers

import (
	"power_windows/internal/logger"
	"power_windows/internal/metrics"
	"power_windows/internal/models"
	"power_windows/internal/protocol"
	"power_windows/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	metrics  *metrics.Metrics
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies. m may be nil.
func NewHandler(services *service.Service, m *metrics.Metrics, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{services: services, metrics: m, log: log}
}

func (h *Handler) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.metricsMiddleware)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	return router
}

// InitDoorRoutes builds the door node router: the command endpoints the hub
// calls, plus local diagnostics.
func (h *Handler) InitDoorRoutes() *gin.Engine {
	router := h.newRouter()

	for _, kind := range []models.CommandKind{
		models.CommandOpenContinuous,
		models.CommandCloseContinuous,
		models.CommandOpenFully,
		models.CommandCloseFully,
		models.CommandStop,
	} {
		router.POST(protocol.PathFor(kind), h.doorCommand(kind))
	}
	router.POST(protocol.ConfigureThresholdsPath, h.configureThresholds)

	router.GET("/state", h.getDoorState)
	router.GET("/logs", h.getLogs)
	router.GET("/ws", h.wsConnect)

	return router
}

// InitHubRoutes builds the hub router: operator auth and the protected API.
func (h *Handler) InitHubRoutes() *gin.Engine {
	router := h.newRouter()

	auth := router.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}

	api := router.Group("/api/v1", h.operatorMiddleware)
	{
		api.GET("/doors", h.listDoors)
		api.POST("/doors/:door/command", h.sendDoorCommand)
		api.GET("/config", h.getThresholds)
		api.POST("/config", h.pushThresholds)
		api.GET("/logs", h.getLogs)
	}

	return router
}
