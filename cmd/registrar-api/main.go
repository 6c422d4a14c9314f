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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/shs-registrar-api/internal/handler"
	"github.com/noah-isme/shs-registrar-api/internal/repository"
	"github.com/noah-isme/shs-registrar-api/internal/service"
	"github.com/noah-isme/shs-registrar-api/pkg/cache"
	"github.com/noah-isme/shs-registrar-api/pkg/config"
	"github.com/noah-isme/shs-registrar-api/pkg/database"
	"github.com/noah-isme/shs-registrar-api/pkg/jobs"
	"github.com/noah-isme/shs-registrar-api/pkg/logger"
)

// @title SHS Registrar API
// @version 1.0.0
// @description Senior high school enrollment lifecycle and school year transitions
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()
	coordinator := database.NewCoordinator(db, database.CoordinatorConfig{
		MaxAttempts:    cfg.Tx.MaxAttempts,
		BaseDelay:      cfg.Tx.BaseDelay,
		AttemptTimeout: cfg.Tx.AttemptTimeout,
		Isolation:      database.IsolationFor(cfg.Database.Driver),
		Logger:         logr.Named("tx"),
		Observer:       metricsSvc,
	})

	var (
		cacheRepo   service.CacheRepository
		redisClient *redis.Client
	)
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, "shs-registrar", logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	schoolYearRepo := repository.NewSchoolYearRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	assignmentRepo := repository.NewTeacherAssignmentRepository(db)

	enrollmentSvc := service.NewEnrollmentService(studentRepo, sectionRepo, coordinator, cacheSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, schoolYearRepo, enrollmentSvc, coordinator, cacheSvc, validate, logr)
	reEnrollSvc := service.NewReEnrollmentService(studentRepo, schoolYearRepo, enrollmentSvc, coordinator, cacheSvc, validate, logr)
	schoolYearSvc := service.NewSchoolYearService(schoolYearRepo, coordinator, cacheSvc, validate, logr)
	transitionSvc := service.NewTransitionService(studentRepo, schoolYearRepo, coordinator, cacheSvc, metricsSvc, validate, logr)
	sectionSvc := service.NewSectionService(sectionRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	assignmentSvc := service.NewTeacherAssignmentService(teacherRepo, subjectRepo, sectionRepo, assignmentRepo, coordinator, cfg.Assignments.SubjectQuota, validate, logr)
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})

	const transitionRetries = 3
	jobStore := service.NewTransitionJobStore()
	worker := service.NewTransitionWorker(jobStore, transitionSvc, transitionRetries, logr)
	queue := jobs.NewQueue("school-year-transition", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Transition.Workers,
		MaxRetries: transitionRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
		Observer:   metricsSvc,
	})
	queue.Start(ctx)
	defer queue.Stop()
	jobSvc := service.NewTransitionJobService(jobStore, queue, validate, logr)

	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if redisClient != nil {
		checks["cache"] = cache.Probe(redisClient)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(cfg, logr, routerDeps{
		auth:        authSvc,
		metrics:     metricsSvc,
		students:    studentSvc,
		enrollments: enrollmentSvc,
		reEnroll:    reEnrollSvc,
		schoolYears: schoolYearSvc,
		transitions: transitionSvc,
		jobs:        jobSvc,
		sections:    sectionSvc,
		subjects:    subjectSvc,
		teachers:    teacherSvc,
		assignments: assignmentSvc,
		checks:      checks,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
