package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	_ "github.com/noah-isme/school-portal-api/api/swagger"
	"github.com/noah-isme/school-portal-api/internal/handler"
	internalmiddleware "github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/repository"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/pkg/cache"
	"github.com/noah-isme/school-portal-api/pkg/config"
	"github.com/noah-isme/school-portal-api/pkg/database"
	"github.com/noah-isme/school-portal-api/pkg/export"
	"github.com/noah-isme/school-portal-api/pkg/jobs"
	"github.com/noah-isme/school-portal-api/pkg/logger"
	"github.com/noah-isme/school-portal-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/school-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-portal-api/pkg/middleware/requestid"
	"github.com/noah-isme/school-portal-api/pkg/sms"
	"github.com/noah-isme/school-portal-api/pkg/storage"
	"github.com/noah-isme/school-portal-api/pkg/validation"
)

// @title School Portal API
// @version 1.0.0
// @description Multi-school management API: home page content, students, attendance, exams and notifications
// @BasePath /api
// @schemes http https
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
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close() //nolint:errcheck
	if cfg.Migrations {
		if err := database.Migrate(db, logr); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	mongoDB, err := database.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoDB.Client().Disconnect(disconnectCtx); err != nil {
			logr.Warn("mongo disconnect failed", zap.Error(err))
		}
	}()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close() //nolint:errcheck

	fileStore, err := storage.NewLocalStorage(cfg.Uploads.Dir, cfg.Uploads.PublicPath)
	if err != nil {
		return fmt.Errorf("init upload storage: %w", err)
	}

	validate := validation.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metricsSvc, cfg.HomePage.CacheTTL, logr, cfg.HomePage.CacheEnabled)
	exportSvc := service.NewExportService(export.NewCSVExporter(), export.NewPDFExporter(), logr)

	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	classRepo := repository.NewClassRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	yearRepo := repository.NewAcademicYearRepository(db)
	feeRepo := repository.NewTransportFeeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	examRepo := repository.NewExaminationRepository(db)
	marksheetRepo := repository.NewMarksheetRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	smsRepo := repository.NewSmsRepository(db)
	homePageRepo := repository.NewHomePageRepository(mongoDB)
	if err := homePageRepo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure home page indexes: %w", err)
	}

	dispatcher := service.NewNotificationDispatcher(
		notificationRepo,
		userRepo,
		studentRepo,
		smsRepo,
		sms.NewSender(cfg.Twilio, logr),
		mailer.NewSender(cfg.SendGrid, logr),
		metricsSvc,
		logr,
	)
	queue := jobs.NewQueue("notifications", dispatcher.Handle, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
		OnGiveUp:   dispatcher.GiveUp,
	})
	queue.Start(ctx)
	defer queue.Stop()

	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	homePageSvc := service.NewHomePageService(homePageRepo, cacheSvc, fileStore, metricsSvc, service.HomePageOptions{
		CacheTTL:       cfg.HomePage.CacheTTL,
		MaxUploadBytes: cfg.Uploads.MaxBytes,
		MaxImageWidth:  cfg.Uploads.MaxImageWidth,
	}, validate, logr)

	handlers := handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Users:         handler.NewUserHandler(service.NewUserService(userRepo, auditRepo, validate, logr)),
		Schools:       handler.NewSchoolHandler(service.NewSchoolService(schoolRepo, validate, logr)),
		HomePage:      handler.NewHomePageHandler(homePageSvc, cfg.Uploads.MaxBytes),
		TransportFees: handler.NewTransportFeeHandler(service.NewTransportFeeService(feeRepo, validate, logr)),
		Students:      handler.NewStudentHandler(service.NewStudentService(studentRepo, classRepo, feeRepo, exportSvc, validate, logr)),
		Classes:       handler.NewClassHandler(service.NewClassService(classRepo, teacherRepo, yearRepo, validate, logr)),
		Teachers:      handler.NewTeacherHandler(service.NewTeacherService(teacherRepo, validate, logr)),
		Attendance:    handler.NewAttendanceHandler(service.NewAttendanceService(attendanceRepo, classRepo, studentRepo, validate, logr)),
		AcademicYears: handler.NewAcademicYearHandler(service.NewAcademicYearService(yearRepo, classRepo, auditRepo, validate, logr)),
		Examinations:  handler.NewExaminationHandler(service.NewExaminationService(examRepo, yearRepo, validate, logr)),
		Marksheets:    handler.NewMarksheetHandler(service.NewMarksheetService(marksheetRepo, studentRepo, examRepo, exportSvc, validate, logr)),
		Notifications: handler.NewNotificationHandler(service.NewNotificationService(notificationRepo, classRepo, queue, validate, logr)),
		Sms:           handler.NewSmsHandler(service.NewSmsService(smsRepo, schoolRepo, studentRepo, queue, validate, logr)),
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.Check{
		"postgres": db.PingContext,
		"mongo": func(ctx context.Context) error {
			return mongoDB.Client().Ping(ctx, readpref.Primary())
		},
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.Static(cfg.Uploads.PublicPath, cfg.Uploads.Dir)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handlers, authSvc, auditRepo, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	logr.Info("server stopped")
	return nil
}
