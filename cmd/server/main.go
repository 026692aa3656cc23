package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/baronda/siskamling-backend/internal/ai"
	"github.com/baronda/siskamling-backend/internal/config"
	"github.com/baronda/siskamling-backend/internal/db"
	"github.com/baronda/siskamling-backend/internal/goroutine"
	httpHandlers "github.com/baronda/siskamling-backend/internal/http/handlers"
	"github.com/baronda/siskamling-backend/internal/http/middleware"
	httpRouter "github.com/baronda/siskamling-backend/internal/http/router"
	"github.com/baronda/siskamling-backend/internal/logger"
	"github.com/baronda/siskamling-backend/internal/mail"
	"github.com/baronda/siskamling-backend/internal/repository"
	"github.com/baronda/siskamling-backend/internal/service"
	"github.com/baronda/siskamling-backend/internal/storage"
	"github.com/baronda/siskamling-backend/internal/ws"
)

const appName = "Baronda"

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	if cfg.IsProduction() {
		logger.Init("info")
	} else {
		logger.Init("debug")
		logger.SetTextFormatter()
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Redis необязателен: без него лимиты запросов хранятся в памяти процесса.
	redisClient, err := db.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("main: %v", err)
	}
	if redisClient != nil {
		defer closeRedis(redisClient)
	}

	limits, err := middleware.NewLimiterStore(redisClient)
	if err != nil {
		log.Fatalf("main: не удалось создать хранилище лимитов: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	photoStorage, err := storage.NewPhotoStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Почта: без SMTP в development письма только пишутся в лог.
	var sender mail.Sender
	if cfg.MailConfigured() {
		sender = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	} else {
		logger.Entry(logrus.Fields{}).Warn("main: SMTP не настроен, письма будут только записаны в лог")
		sender = mail.NewLogSender()
	}
	from, err := mail.ParseAddress(cfg.MailFrom)
	if err != nil {
		from = "no-reply@localhost"
	}
	dispatcher := mail.NewDispatcher(sender, from, appName)

	aiClient := ai.NewClient(cfg.AIBaseURL, cfg.AIModel, cfg.AIAPIKey)
	if !aiClient.Enabled() {
		logger.Entry(logrus.Fields{}).Warn("main: AI_BASE_URL не задан, сортировка сообщений по ключевым словам")
	}

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run(ctx)

	// Репозитории.
	otpRepo := repository.NewOTPRepository(dbConn)
	userRepo := repository.NewUserRepository(dbConn)
	staffRepo := repository.NewStaffRepository(dbConn)
	reportRepo := repository.NewReportRepository(dbConn)
	scheduleRepo := repository.NewScheduleRepository(dbConn)
	financeRepo := repository.NewFinanceRepository(dbConn)
	communityRepo := repository.NewCommunityRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Сервисы.
	adminLogs := service.NewAdminLogService(communityRepo)
	notificationService := service.NewNotificationService(notificationRepo, hub, staffRepo)
	otpService := service.NewOTPService(otpRepo, dispatcher, cfg.OTPTTL, cfg.OTPMaxAttempts)
	authService := service.NewAuthService(userRepo, otpService, tokenManager)
	staffService := service.NewStaffService(staffRepo, otpService, dispatcher, adminLogs, notificationService, tokenManager, cfg.AccessCodeCooldown)
	triageService := service.NewTriageService(reportRepo, aiClient, notificationService)
	reportService := service.NewReportService(reportRepo, photoStorage, triageService, notificationService)
	scheduleService := service.NewScheduleService(scheduleRepo, staffRepo, notificationService, adminLogs)
	financeService := service.NewFinanceService(financeRepo, notificationService, adminLogs)
	communityService := service.NewCommunityService(communityRepo, notificationService, adminLogs)
	communityService.SetCache(service.NewCacheService(ctx))

	// Статус субъекта токена перечитывается после приостановки или отключения.
	sessionGuard := service.NewSessionGuard(staffRepo, userRepo, service.NewCacheService(ctx))
	authService.SetSessionRevoker(sessionGuard)
	staffService.SetSessionRevoker(sessionGuard)

	if _, err := staffService.BootstrapAdmin(ctx, service.AdminBootstrap{
		Name:       cfg.AdminName,
		Email:      cfg.AdminEmail,
		AccessCode: cfg.AdminAccessCode,
	}); err != nil {
		logger.Entry(logrus.Fields{"error": err}).Error("main: не удалось создать первого администратора")
	}

	// Просроченные коды чистятся в фоне до остановки сервера.
	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		otpService.RunSweeper(ctx, cfg.OTPSweepInterval)
	})

	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Health:        httpHandlers.NewHealthHandler(dbConn, redisClient),
		OTP:           httpHandlers.NewOTPHandler(otpService),
		Users:         httpHandlers.NewUserHandler(authService),
		Staff:         httpHandlers.NewStaffHandler(staffService),
		Reports:       httpHandlers.NewReportHandler(reportService, photoStorage),
		Schedules:     httpHandlers.NewScheduleHandler(scheduleService),
		Finance:       httpHandlers.NewFinanceHandler(financeService),
		Community:     httpHandlers.NewCommunityHandler(communityService, adminLogs),
		Notifications: httpHandlers.NewNotificationHandler(notificationService),
		Mail:          httpHandlers.NewMailHandler(dispatcher, adminLogs),
		WS:            httpHandlers.NewWSHandler(hub, tokenManager, sessionGuard, cfg.AllowedOrigins),
	}, tokenManager, sessionGuard, limits)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}

func closeRedis(client *redis.Client) {
	if err := client.Close(); err != nil {
		log.Printf("main: ошибка закрытия redis: %v", err)
	}
}
