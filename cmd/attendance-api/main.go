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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/hard4j/bvp-attendance-api/api/swagger"
	"github.com/hard4j/bvp-attendance-api/internal/handler"
	"github.com/hard4j/bvp-attendance-api/internal/middleware"
	"github.com/hard4j/bvp-attendance-api/internal/repository"
	"github.com/hard4j/bvp-attendance-api/internal/service"
	"github.com/hard4j/bvp-attendance-api/pkg/cache"
	"github.com/hard4j/bvp-attendance-api/pkg/config"
	"github.com/hard4j/bvp-attendance-api/pkg/database"
	"github.com/hard4j/bvp-attendance-api/pkg/logger"
	corsmiddleware "github.com/hard4j/bvp-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/hard4j/bvp-attendance-api/pkg/middleware/requestid"
)

// @title BVP Attendance API
// @version 1.0.0
// @description Lecture attendance marking, reconciliation and reporting
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("run migrations", zap.Error(err))
		}
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}

	var cacheRepo *repository.CacheRepository
	if cfg.Reports.CacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, report cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			cacheRepo = repository.NewCacheRepository(client, "bvp:")
			checks["redis"] = cacheRepo.Ping
		}
	}
	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Reports.CacheTTL, logr, true)
	}

	validate := service.NewValidator()
	loc := cfg.Attendance.Location()

	departmentRepo := repository.NewDepartmentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	hodRepo := repository.NewHODRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	reportRepo := repository.NewReportRepository(db)

	authSvc := service.NewAuthService(staffRepo, hodRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		AdminUsername:     cfg.Admin.Username,
		AdminPasswordHash: cfg.Admin.PasswordHash,
	})
	rosterSvc := service.NewRosterService(batchRepo, logr)
	attendanceSvc := service.NewAttendanceService(assignmentRepo, attendanceRepo, rosterSvc, cacheSvc, metricsSvc, validate, loc, logr)
	reportSvc := service.NewReportService(assignmentRepo, batchRepo, reportRepo, cacheSvc, metricsSvc, service.ReportServiceConfig{
		Location:           loc,
		DefaultWindow:      cfg.Attendance.DefaultWindow,
		DefaulterThreshold: cfg.Attendance.DefaulterThreshold,
		CacheTTL:           cfg.Reports.CacheTTL,
	}, logr)
	exportSvc := service.NewExportService(logr)
	departmentSvc := service.NewDepartmentService(departmentRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	batchSvc := service.NewBatchService(batchRepo, studentRepo, cacheSvc, validate, logr)
	staffSvc := service.NewStaffService(staffRepo, validate, logr, cfg.Attendance.DefaultPassword)
	hodSvc := service.NewHODService(hodRepo, staffRepo, departmentRepo, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, batchRepo, subjectRepo, staffRepo, cacheSvc, validate, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Attendance:  handler.NewAttendanceHandler(attendanceSvc),
		Reports:     handler.NewReportHandler(reportSvc, exportSvc),
		Departments: handler.NewDepartmentHandler(departmentSvc),
		Subjects:    handler.NewSubjectHandler(subjectSvc),
		Batches:     handler.NewBatchHandler(batchSvc),
		Staff:       handler.NewStaffHandler(staffSvc, hodSvc),
		Assignments: handler.NewAssignmentHandler(assignmentSvc),
		Metrics:     handler.NewMetricsHandler(metricsSvc, checks),
	}, authSvc, logr)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown", zap.Error(err))
	}
	logr.Info("server stopped")
}
