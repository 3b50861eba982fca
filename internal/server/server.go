package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/stayware/callguard/internal/alert"
	alertdomain "github.com/stayware/callguard/internal/alert/domain"
	"github.com/stayware/callguard/internal/auditlog"
	"github.com/stayware/callguard/internal/clock"
	"github.com/stayware/callguard/internal/cloudmetrics"
	"github.com/stayware/callguard/internal/config"
	"github.com/stayware/callguard/internal/dedup"
	"github.com/stayware/callguard/internal/delivery"
	"github.com/stayware/callguard/internal/dispatch"
	dispatchdomain "github.com/stayware/callguard/internal/dispatch/domain"
	"github.com/stayware/callguard/internal/enrichment"
	"github.com/stayware/callguard/internal/events"
	"github.com/stayware/callguard/internal/exemption"
	"github.com/stayware/callguard/internal/localtime"
	"github.com/stayware/callguard/internal/notifyq"
	"github.com/stayware/callguard/internal/observability"
	obsmiddleware "github.com/stayware/callguard/internal/observability/logger"
	obsmetrics "github.com/stayware/callguard/internal/observability/metrics"
	obstracing "github.com/stayware/callguard/internal/observability/tracing"
	"github.com/stayware/callguard/internal/pipeline"
	pipelinedomain "github.com/stayware/callguard/internal/pipeline/domain"
	"github.com/stayware/callguard/internal/property"
	propertydomain "github.com/stayware/callguard/internal/property/domain"
	"github.com/stayware/callguard/internal/providers"
)

var Module = fx.Module("http.server",
	config.Module,
	cloudmetrics.Module,
	fx.Provide(registerGin),
	auditlog.Module,
	events.Module,
	property.Module,
	exemption.Module,
	localtime.Module,
	dedup.Module,
	enrichment.Module,
	notifyq.Module,
	dispatch.Module,
	alert.Module,
	pipeline.Module,
	providers.Module,
	delivery.Module,
	clock.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	genID       *snowflake.Node
	pipelineSvc pipelinedomain.Service
	alertSvc    alertdomain.Service
	propertySvc propertydomain.Service
	dispatchSvc dispatchdomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	GenID       *snowflake.Node
	PipelineSvc pipelinedomain.Service
	AlertSvc    alertdomain.Service
	PropertySvc propertydomain.Service
	DispatchSvc dispatchdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		genID:       p.GenID,
		pipelineSvc: p.PipelineSvc,
		alertSvc:    p.AlertSvc,
		propertySvc: p.PropertySvc,
		dispatchSvc: p.DispatchSvc,
	}

	svc.registerIngestRoutes()
	svc.registerAlertRoutes()
	svc.registerPropertyRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerIngestRoutes() {
	v1 := s.engine.Group("/v1")

	// The PBX integration posts every emergency call event here.
	v1.POST("/call-events", s.ProcessCallEvent)
}

func (s *Server) registerAlertRoutes() {
	v1 := s.engine.Group("/v1")

	v1.GET("/alerts", s.ListAlerts)
	v1.GET("/alerts/:id", s.GetAlertByID)
	v1.POST("/alerts/:id/ack", s.AcknowledgeAlert)
}

func (s *Server) registerPropertyRoutes() {
	v1 := s.engine.Group("/v1")

	v1.GET("/properties/:id/channels", s.GetPropertyChannels)
	v1.PUT("/properties/:id/channels", s.PutPropertyChannels)
}
