package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-substitution-api/api/swagger"
	"github.com/noah-isme/sma-substitution-api/internal/handler"
	"github.com/noah-isme/sma-substitution-api/internal/repository"
	"github.com/noah-isme/sma-substitution-api/internal/service"
	"github.com/noah-isme/sma-substitution-api/pkg/cache"
	"github.com/noah-isme/sma-substitution-api/pkg/config"
	"github.com/noah-isme/sma-substitution-api/pkg/database"
	"github.com/noah-isme/sma-substitution-api/pkg/export"
	"github.com/noah-isme/sma-substitution-api/pkg/jobs"
	"github.com/noah-isme/sma-substitution-api/pkg/logger"
	"github.com/noah-isme/sma-substitution-api/pkg/mail"
)

// @title SMA Substitution API
// @version 1.0.0
// @description Absence-driven substitution coverage: affected items, candidate ranking and assignment.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		logr.Warn("redis disabled: ranking cache and auto-assign lock are off")
	}

	metrics := service.NewMetricsService()
	svc := buildServices(cfg, logr, db, redisClient, metrics)

	svc.queue.Start(ctx)
	defer svc.queue.Stop()

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	router := newRouter(cfg, logr, metrics, svc.tokens, handlers{
		absences: handler.NewAbsenceHandler(svc.absences),
		coverage: handler.NewCoverageHandler(svc.lessonRanker, svc.dutyRanker, svc.coordinator),
		plans:    handler.NewPlanHandler(svc.plans),
		metrics:  handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type services struct {
	tokens       *service.TokenService
	absences     *service.AbsenceService
	lessonRanker *service.CandidateRanker
	dutyRanker   *service.SupervisionCandidateRanker
	coordinator  *service.AssignmentCoordinator
	plans        *service.SubstitutionPlanService
	queue        *jobs.Queue
}

func buildServices(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client, metrics *service.MetricsService) services {
	validate := validator.New()

	absenceRepo := repository.NewAbsenceRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	lessonRepo := repository.NewScheduledLessonRepository(db)
	dutyRepo := repository.NewSupervisionDutyRepository(db)
	availabilityRepo := repository.NewTeacherAvailabilityRepository(db)
	substitutionRepo := repository.NewSubstitutionRepository(db)
	supervisionRepo := repository.NewSupervisionSubstitutionRepository(db)
	lockRepo := repository.NewLockRepository(redisClient)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
	}
	rankingCache := service.NewCacheService(cacheRepo, metrics, cfg.Substitution.RankingCacheTTL, logr, cfg.Substitution.RankingCacheEnabled)

	resolver := service.NewAffectedItemResolver(absenceRepo, timetableRepo, lessonRepo, dutyRepo, substitutionRepo, supervisionRepo, logr)
	tracker := service.NewCoverageStatusTracker(absenceRepo, resolver, logr)

	rankerDeps := service.RankerDeps{
		Absences:      absenceRepo,
		Calendar:      absenceRepo,
		Teachers:      teacherRepo,
		Timetables:    timetableRepo,
		Lessons:       lessonRepo,
		Duties:        dutyRepo,
		Availability:  availabilityRepo,
		Substitutions: substitutionRepo,
		Supervisions:  supervisionRepo,
		Cache:         rankingCache,
		CacheTTL:      cfg.Substitution.RankingCacheTTL,
		Logger:        logr,
	}
	lessonRanker := service.NewCandidateRanker(rankerDeps)
	dutyRanker := service.NewSupervisionCandidateRanker(rankerDeps)

	var mailer interface {
		Send(ctx context.Context, msg mail.Message) error
	} = mail.NewLogMailer(logr)
	if cfg.Mail.Enabled {
		mailer = mail.NewSMTPMailer(cfg.Mail, logr)
	}
	dispatcher := service.NewNotificationDispatcher(mailer, substitutionRepo, supervisionRepo, metrics, logr)
	queue := jobs.NewQueue("notifications", dispatcher.Deliver, jobs.QueueConfig{
		Workers:    cfg.Mail.Workers,
		MaxRetries: cfg.Mail.MaxRetries,
		RetryDelay: cfg.Mail.RetryDelay,
		Logger:     logr,
	})
	dispatcher.UseQueue(queue)

	coordinator := service.NewAssignmentCoordinator(service.CoordinatorDeps{
		Absences:      absenceRepo,
		Teachers:      teacherRepo,
		Timetables:    timetableRepo,
		Lessons:       lessonRepo,
		Duties:        dutyRepo,
		Substitutions: substitutionRepo,
		Supervisions:  supervisionRepo,
		Resolver:      resolver,
		Ranker:        lessonRanker,
		Tracker:       tracker,
		Notifier:      dispatcher,
		Lock:          lockRepo,
		Cache:         rankingCache,
		Metrics:       metrics,
		Validator:     validate,
		Logger:        logr,
	}, service.CoordinatorConfig{
		DefaultMinScore: cfg.Substitution.AutoAssignMinScore,
		LockTTL:         cfg.Substitution.AutoAssignLockTTL,
		PayRate:         cfg.Substitution.PayRate,
	})

	return services{
		tokens:       service.NewTokenService(cfg.JWT.Secret),
		absences:     service.NewAbsenceService(absenceRepo, teacherRepo, resolver, rankingCache, validate, logr),
		lessonRanker: lessonRanker,
		dutyRanker:   dutyRanker,
		coordinator:  coordinator,
		plans:        service.NewSubstitutionPlanService(substitutionRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr),
		queue:        queue,
	}
}
