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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/school-timetable-api/api/swagger"
	"github.com/noah-isme/school-timetable-api/internal/handler"
	"github.com/noah-isme/school-timetable-api/internal/middleware"
	"github.com/noah-isme/school-timetable-api/internal/repository"
	"github.com/noah-isme/school-timetable-api/internal/service"
	"github.com/noah-isme/school-timetable-api/pkg/cache"
	"github.com/noah-isme/school-timetable-api/pkg/config"
	"github.com/noah-isme/school-timetable-api/pkg/database"
	"github.com/noah-isme/school-timetable-api/pkg/jobs"
	"github.com/noah-isme/school-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/school-timetable-api/pkg/storage"
)

// @title School Timetable API
// @version 0.1.0
// @description Class scheduling with conflict detection and weekly timetable projections
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	userRepo := repository.NewUserRepository(db)
	termRepo := repository.NewTermRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	groupRepo := repository.NewClassGroupRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	slotRepo := repository.NewTimeSlotRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	scheduleRepo := repository.NewClassScheduleRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	refSvc := service.NewReferenceService(termRepo, teacherRepo, roomRepo, groupRepo, slotRepo)
	timetableSvc := service.NewTimetableService(timetableRepo, cacheRepo, refSvc, metricsSvc, cfg.Timetable.CacheTTL, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, availabilityRepo, refSvc, timetableSvc, metricsSvc, validate, logr)
	reconcileSvc := service.NewReconciliationService(scheduleRepo, scheduleSvc, metricsSvc, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var queue *jobs.Queue
	if cfg.Reconcile.Enabled {
		queue = jobs.NewQueue("reconcile", reconcileSvc.HandleJob, jobs.QueueConfig{
			Workers:    cfg.Reconcile.Workers,
			MaxRetries: cfg.Reconcile.MaxRetries,
			RetryDelay: cfg.Reconcile.RetryDelay,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
	}

	var enqueuer service.ReconcileQueue
	if queue != nil {
		enqueuer = queue
	}
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, refSvc, enqueuer, validate, logr)

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(timetableSvc, exportStore, signer, validate, logr)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: "school-timetable-api",
	})

	handlers := &handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Terms:        handler.NewTermHandler(service.NewTermService(termRepo, validate, logr)),
		Teachers:     handler.NewTeacherHandler(service.NewTeacherService(teacherRepo, validate, logr)),
		Rooms:        handler.NewRoomHandler(service.NewRoomService(roomRepo, validate, logr)),
		ClassGroups:  handler.NewClassGroupHandler(service.NewClassGroupService(groupRepo, validate, logr)),
		Subjects:     handler.NewSubjectHandler(service.NewSubjectService(subjectRepo, validate, logr)),
		TimeSlots:    handler.NewTimeSlotHandler(service.NewTimeSlotService(slotRepo, validate, logr)),
		Availability: handler.NewAvailabilityHandler(availabilitySvc),
		Schedules:    handler.NewScheduleHandler(scheduleSvc),
		Timetables:   handler.NewTimetableHandler(timetableSvc, exportSvc),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handlers.Register(r, cfg.APIPrefix, authSvc)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
