package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/helpdesk-dispatch/backend/internal/config"
	"github.com/helpdesk-dispatch/backend/internal/http/handlers"
	"github.com/helpdesk-dispatch/backend/internal/http/middleware"
	"github.com/helpdesk-dispatch/backend/internal/service"

	_ "github.com/helpdesk-dispatch/backend/docs"
)

type Deps struct {
	Store      handlers.Reader
	Dispatcher handlers.Dispatcher
	Blender    service.PriorityBlender
	Gatherer   prometheus.Gatherer
}

func Router(cfg config.Config, deps Deps, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:      deps.Store,
		Dispatcher: deps.Dispatcher,
		Blender:    deps.Blender,
		Validator:  validator.New(),
		Logger:     logger,
	}

	r.GET("/healthz", h.Healthz)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.Use(middleware.Timeout(cfg.RequestTimeout))
	{
		api.GET("/tickets/:id", h.TicketDetails)
		api.GET("/tickets/:id/escalations", h.TicketEscalations)
		api.GET("/technicians", h.TechniciansList)
		api.GET("/runs/latest", h.RunsLatest)
		api.GET("/priority", h.Priority)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/tickets/:id/assign", h.Assign)
		admin.POST("/tickets/:id/escalate", h.Escalate)
		admin.POST("/process", h.Process)
		admin.GET("/debug/decision", h.DebugDecision)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
