package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-substitution-api/internal/middleware"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/internal/service"
	"github.com/noah-isme/sma-substitution-api/pkg/config"
	"github.com/noah-isme/sma-substitution-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-substitution-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-substitution-api/pkg/middleware/requestid"
)

type handlers struct {
	absences *handler.AbsenceHandler
	coverage *handler.CoverageHandler
	plans    *handler.PlanHandler
	metrics  *handler.MetricsHandler
}

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, tokens tokenValidator, h handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics, "/metrics"))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(tokens))

	read := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleTeacher)
	write := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)

	absences := api.Group("/absences")
	absences.GET("", read, h.absences.List)
	absences.POST("", write, h.absences.Report)
	absences.GET("/:id", read, h.absences.Get)
	absences.DELETE("/:id", write, h.absences.Delete)
	absences.POST("/:id/confirm", write, h.absences.Confirm)
	absences.GET("/:id/affected", read, h.absences.Affected)
	absences.GET("/:id/lessons/:lessonId/candidates", read, h.coverage.LessonCandidates)
	absences.GET("/:id/duties/:dutyId/candidates", read, h.coverage.DutyCandidates)
	absences.GET("/:id/substitutions", read, h.coverage.List)
	absences.POST("/:id/substitutions", write, h.coverage.Assign)
	absences.POST("/:id/supervision-substitutions", write, h.coverage.AssignSupervision)
	absences.POST("/:id/auto-assign", write, h.coverage.AutoAssign)

	api.GET("/lessons/:lessonId/candidates", read, h.coverage.RankLesson)
	api.GET("/duties/:dutyId/candidates", read, h.coverage.RankDuty)
	api.DELETE("/substitutions/:id", write, h.coverage.Remove)
	api.DELETE("/supervision-substitutions/:id", write, h.coverage.RemoveSupervision)
	api.GET("/substitution-plan", read, h.plans.Export)

	return r
}
