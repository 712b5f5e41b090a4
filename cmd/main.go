package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	cancelBookingHandler "github.com/m04kA/SMC-BookingSync/internal/api/handlers/cancel_booking"
	getBookingHandler "github.com/m04kA/SMC-BookingSync/internal/api/handlers/get_booking"
	getBookingViewsHandler "github.com/m04kA/SMC-BookingSync/internal/api/handlers/get_booking_views"
	getCancellationQuoteHandler "github.com/m04kA/SMC-BookingSync/internal/api/handlers/get_cancellation_quote"
	getConversationsHandler "github.com/m04kA/SMC-BookingSync/internal/api/handlers/get_conversations"
	getFavoritesHandler "github.com/m04kA/SMC-BookingSync/internal/api/handlers/get_favorites"
	markConversationReadHandler "github.com/m04kA/SMC-BookingSync/internal/api/handlers/mark_conversation_read"
	openConversationHandler "github.com/m04kA/SMC-BookingSync/internal/api/handlers/open_conversation"
	refreshSessionHandler "github.com/m04kA/SMC-BookingSync/internal/api/handlers/refresh_session"
	rescheduleBookingHandler "github.com/m04kA/SMC-BookingSync/internal/api/handlers/reschedule_booking"
	setFavoriteHandler "github.com/m04kA/SMC-BookingSync/internal/api/handlers/set_favorite"
	signInHandler "github.com/m04kA/SMC-BookingSync/internal/api/handlers/sign_in"
	signOutHandler "github.com/m04kA/SMC-BookingSync/internal/api/handlers/sign_out"
	"github.com/m04kA/SMC-BookingSync/internal/api/middleware"
	"github.com/m04kA/SMC-BookingSync/internal/config"
	"github.com/m04kA/SMC-BookingSync/internal/infra/realtime/rabbitmq"
	bookingRepo "github.com/m04kA/SMC-BookingSync/internal/infra/storage/booking"
	"github.com/m04kA/SMC-BookingSync/internal/infra/storage/preferences"
	threadRepo "github.com/m04kA/SMC-BookingSync/internal/infra/storage/thread"
	userServiceClient "github.com/m04kA/SMC-BookingSync/internal/integrations/userservice"
	"github.com/m04kA/SMC-BookingSync/internal/session"
	cancelBookingUC "github.com/m04kA/SMC-BookingSync/internal/usecase/cancel_booking"
	rescheduleBookingUC "github.com/m04kA/SMC-BookingSync/internal/usecase/reschedule_booking"
	"github.com/m04kA/SMC-BookingSync/pkg/dbmetrics"
	"github.com/m04kA/SMC-BookingSync/pkg/logger"
	"github.com/m04kA/SMC-BookingSync/pkg/metrics"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-BookingSync...")
	log.Info("Configuration loaded from config.toml")

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Репозитории работают через обёртку метрик, если метрики включены
	var executor dbmetrics.DBExecutor = db
	if cfg.Metrics.Enabled {
		executor = dbmetrics.WrapWithDefault(db, metricsCollector, stopMetricsCh)
		log.Info("Database metrics collection started")
	}
	bookingRepository := bookingRepo.NewRepository(executor)
	threadRepository := threadRepo.NewRepository(executor)

	// Redis: избранные собеседники
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		log.Fatal("Failed to ping redis: %v", err)
	}
	pingCancel()
	log.Info("Successfully connected to redis (addr=%s, db=%d)", cfg.Redis.Addr, cfg.Redis.DB)
	favoritesStore := preferences.NewStore(redisClient, log)

	// Интеграционные клиенты
	userClient := userServiceClient.NewClient(cfg.UserService.URL, cfg.UserService.TimeoutDuration(), log)
	log.Info("Integration clients initialized (UserService=%s timeout=%ds)",
		cfg.UserService.URL, cfg.UserService.Timeout)

	// RabbitMQ: подписки сессий и публикация событий
	transport, err := rabbitmq.NewTransport(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Prefetch, log)
	if err != nil {
		log.Fatal("Failed to connect realtime transport: %v", err)
	}
	publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
	if err != nil {
		log.Fatal("Failed to connect realtime publisher: %v", err)
	}
	log.Info("Realtime transport connected (exchange=%s)", cfg.RabbitMQ.Exchange)

	// Реестр сессий пользователей
	registry := session.NewRegistry(
		bookingRepository,
		threadRepository,
		userClient,
		favoritesStore,
		transport,
		metricsCollector,
		session.Options{
			CountdownLookAhead: cfg.Sync.CountdownLookAhead(),
			TickInterval:       cfg.Sync.TickInterval(),
		},
		log,
	)

	// Инициализируем use cases
	cancelBookingUseCase := cancelBookingUC.NewUseCase(
		bookingRepository,
		registry,
		publisher,
		metricsCollector,
		cfg.Sync.RefundWindow(),
		log,
	)
	rescheduleBookingUseCase := rescheduleBookingUC.NewUseCase(
		bookingRepository,
		cancelBookingUseCase,
		registry,
		publisher,
		log,
	)

	// Инициализируем handlers
	signIn := signInHandler.NewHandler(registry, log)
	signOut := signOutHandler.NewHandler(registry, log)
	refreshSession := refreshSessionHandler.NewHandler(registry, log)
	getBookingViews := getBookingViewsHandler.NewHandler(registry, log)
	getBooking := getBookingHandler.NewHandler(registry, log)
	getCancellationQuote := getCancellationQuoteHandler.NewHandler(cancelBookingUseCase, log)
	cancelBooking := cancelBookingHandler.NewHandler(cancelBookingUseCase, log)
	rescheduleBooking := rescheduleBookingHandler.NewHandler(rescheduleBookingUseCase, log)
	getConversations := getConversationsHandler.NewHandler(registry, log)
	openConversation := openConversationHandler.NewHandler(registry, log)
	markConversationRead := markConversationReadHandler.NewHandler(registry, log)
	getFavorites := getFavoritesHandler.NewHandler(favoritesStore, log)
	setFavorite := setFavoriteHandler.NewHandler(favoritesStore, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Metrics middleware и endpoint (публичный, без аутентификации)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		r.Handle(cfg.Metrics.Path, metricsCollector.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// --- Сессия ---
	protected.HandleFunc("/sessions", signIn.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/sessions", signOut.Handle).Methods(http.MethodDelete)
	protected.HandleFunc("/sessions/refresh", refreshSession.Handle).Methods(http.MethodPost)

	// --- Бронирования ---
	protected.HandleFunc("/bookings", getBookingViews.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/bookings/{bookingId}", getBooking.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/bookings/{bookingId}/cancellation-quote", getCancellationQuote.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/bookings/{bookingId}/cancel", cancelBooking.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/bookings/{bookingId}/reschedule", rescheduleBooking.Handle).Methods(http.MethodPost)

	// --- Разговоры ---
	protected.HandleFunc("/conversations", getConversations.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/conversations/{conversationId}/open", openConversation.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/conversations/{conversationId}/read", markConversationRead.Handle).Methods(http.MethodPost)

	// --- Избранное ---
	protected.HandleFunc("/favorites", getFavorites.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/favorites/{counterpartId}", setFavorite.Handle).Methods(http.MethodPut, http.MethodDelete)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	// Закрываем сессии до транспорта: каналы отписываются штатно
	registry.CloseAll()
	log.Info("All sessions closed")

	if err := transport.Close(); err != nil {
		log.Error("Failed to close realtime transport: %v", err)
	}
	if err := publisher.Close(); err != nil {
		log.Error("Failed to close realtime publisher: %v", err)
	}

	// Останавливаем сбор метрик connection pool
	if cfg.Metrics.Enabled {
		close(stopMetricsCh)
		log.Info("Metrics collection stopped")
	}

	log.Info("Server stopped gracefully")
}
