package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/amirulmuuminin/tahfidz-exam-api/api/swagger"
	"github.com/amirulmuuminin/tahfidz-exam-api/internal/handler"
	"github.com/amirulmuuminin/tahfidz-exam-api/internal/middleware"
	"github.com/amirulmuuminin/tahfidz-exam-api/internal/repository"
	"github.com/amirulmuuminin/tahfidz-exam-api/internal/service"
	"github.com/amirulmuuminin/tahfidz-exam-api/pkg/cache"
	"github.com/amirulmuuminin/tahfidz-exam-api/pkg/config"
	"github.com/amirulmuuminin/tahfidz-exam-api/pkg/database"
	"github.com/amirulmuuminin/tahfidz-exam-api/pkg/jobs"
	"github.com/amirulmuuminin/tahfidz-exam-api/pkg/logger"
	corsmiddleware "github.com/amirulmuuminin/tahfidz-exam-api/pkg/middleware/cors"
	reqidmiddleware "github.com/amirulmuuminin/tahfidz-exam-api/pkg/middleware/requestid"
)

// @title Tahfidz Exam API
// @version 0.1.0
// @description Oral juz exam slot scheduling for tahfidz classes
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, falling back to process-local cache and locks", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	bookingRepo := repository.NewBookingRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	examinerRepo := repository.NewExaminerRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	locker := repository.NewSlotLocker(redisClient, cfg.Engine.SlotLockTTL)

	searchSvc := service.NewSlotSearchService(classRepo, examinerRepo, bookingRepo, cacheRepo, metrics, cfg.Engine, validate, logr)
	bookingSvc := service.NewBookingService(bookingRepo, examinerRepo, locker, metrics, cfg.Engine, validate, logr)
	problemSvc := service.NewProblemService(bookingRepo, examinerRepo, metrics, cfg.Engine, cfg.Detector, validate, logr)
	exportSvc := service.NewProblemExportService(problemSvc, nil, nil, logr)
	classSvc := service.NewClassService(classRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, classRepo, validate, logr)
	examinerSvc := service.NewExaminerService(examinerRepo, cacheRepo, validate, logr)

	slotHandler := handler.NewSlotHandler(searchSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	problemHandler := handler.NewProblemHandler(problemSvc, exportSvc)
	classHandler := handler.NewClassHandler(classSvc, studentSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	examinerHandler := handler.NewExaminerHandler(examinerSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/slots/nearest", slotHandler.Nearest)

		api.GET("/bookings", bookingHandler.List)
		api.POST("/bookings", bookingHandler.Create)
		api.POST("/bookings/multi-part", bookingHandler.CreateMultiPart)
		api.GET("/bookings/:id", bookingHandler.Get)
		api.PATCH("/bookings/:id/complete", bookingHandler.Complete)
		api.DELETE("/bookings/:id", bookingHandler.Delete)

		api.GET("/problems", problemHandler.List)
		api.POST("/problems/scan", problemHandler.Scan)
		api.GET("/problems/export", problemHandler.Export)

		api.GET("/classes", classHandler.List)
		api.POST("/classes", classHandler.Create)
		api.GET("/classes/:id", classHandler.Get)
		api.PUT("/classes/:id", classHandler.Update)
		api.DELETE("/classes/:id", classHandler.Delete)
		api.GET("/classes/:id/students", classHandler.Students)

		api.GET("/students", studentHandler.List)
		api.POST("/students", studentHandler.Create)
		api.GET("/students/:id", studentHandler.Get)
		api.PUT("/students/:id", studentHandler.Update)
		api.DELETE("/students/:id", studentHandler.Delete)

		api.GET("/examiners", examinerHandler.List)
		api.POST("/examiners", examinerHandler.Create)
		api.GET("/examiners/:id", examinerHandler.Get)
		api.PUT("/examiners/:id", examinerHandler.Update)
		api.DELETE("/examiners/:id", examinerHandler.Delete)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Detector.Enabled {
		startDetector(ctx, cfg, problemSvc, logr)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// startDetector schedules periodic problem sweeps on a worker queue.
func startDetector(ctx context.Context, cfg *config.Config, problems *service.ProblemService, logr *zap.Logger) {
	queue := jobs.NewQueue("problem-detector", func(ctx context.Context, job jobs.Job) error {
		_, err := problems.Detect(ctx, "", "")
		return err
	}, jobs.QueueConfig{
		Workers:    cfg.Detector.Workers,
		MaxRetries: cfg.Detector.MaxRetries,
		RetryDelay: cfg.Detector.RetryDelay,
		Logger:     logr,
	})
	queue.Start(ctx)

	go func() {
		ticker := time.NewTicker(cfg.Detector.Interval)
		defer ticker.Stop()
		defer queue.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case tick := <-ticker.C:
				if err := queue.Enqueue(jobs.Job{Type: "sweep", Payload: tick}); err != nil {
					logr.Warn("failed to enqueue detector sweep", zap.Error(err))
				}
			}
		}
	}()
}
