package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/nerava/arrival/internal/adapter/cache"
	"github.com/nerava/arrival/internal/adapter/external/notification"
	"github.com/nerava/arrival/internal/adapter/external/payment"
	"github.com/nerava/arrival/internal/adapter/http/fiber/handlers"
	"github.com/nerava/arrival/internal/adapter/http/fiber/middleware"
	"github.com/nerava/arrival/internal/adapter/queue"
	"github.com/nerava/arrival/internal/adapter/storage/postgres"
	"github.com/nerava/arrival/internal/adapter/vault"
	wsAdapter "github.com/nerava/arrival/internal/adapter/websocket"
	"github.com/nerava/arrival/internal/domain"
	"github.com/nerava/arrival/internal/observability/telemetry"
	"github.com/nerava/arrival/internal/ports"
	"github.com/nerava/arrival/internal/service/billing"
	"github.com/nerava/arrival/internal/service/email"
	"github.com/nerava/arrival/internal/service/geo"
	"github.com/nerava/arrival/internal/service/health"
	"github.com/nerava/arrival/internal/service/notify"
	"github.com/nerava/arrival/internal/service/session"
	"github.com/nerava/arrival/pkg/config"
)

const (
	serviceName    = "nerava-arrival"
	serviceVersion = "v1.0.0"
)

func main() {
	// 1. Initialize Logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	logger.Info("Starting Nerava Arrival",
		zap.String("service", serviceName),
		zap.String("version", serviceVersion),
	)

	// 2. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// 3. Pull secrets from Vault when enabled
	if cfg.Vault.Enabled {
		sm, err := vault.NewSecretManager(cfg.Vault.Address, cfg.Vault.Token)
		if err != nil {
			logger.Fatal("Failed to connect to Vault", zap.Error(err))
		}
		if url, err := sm.GetDatabaseURL(); err == nil {
			cfg.Database.URL = url
		} else {
			logger.Warn("Vault database secret unavailable, using config value", zap.Error(err))
		}
		if secret, err := sm.GetJWTSecret(); err == nil {
			cfg.JWT.Secret = secret
		} else {
			logger.Warn("Vault JWT secret unavailable, using config value", zap.Error(err))
		}
		if key, err := sm.GetStripeAPIKey(); err == nil {
			cfg.Billing.Stripe.SecretKey = key
		}
	}

	// 4. Initialize OpenTelemetry (Distributed Tracing)
	if cfg.OpenTelemetry.Enabled {
		tracerProvider, err := telemetry.InitTracer(serviceName, cfg.OpenTelemetry.Jaeger.Endpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				logger.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
	}

	// 5. Initialize PostgreSQL Connection Pool
	db, err := postgres.NewConnection(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to get underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(db); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	// 6. Initialize cache. Redis is the normal backend; a Redis outage at
	// boot degrades to a per-process in-memory cache instead of refusing to
	// start, since the cache only fronts charger reference data.
	appCache, err := cache.NewRedisCache(cfg.Redis.URL, logger)
	if err != nil {
		logger.Warn("Redis unavailable, falling back to in-memory cache", zap.Error(err))
		appCache = cache.NewLocalCache(5*time.Minute, logger)
	}
	defer appCache.Close()

	// 7. Initialize Message Queue
	messageQueue, err := newMessageQueue(cfg.Queue, logger)
	if err != nil {
		logger.Fatal("Failed to connect to message queue", zap.Error(err))
	}
	defer messageQueue.Close()

	// 8. Initialize Repositories
	sessionRepo := postgres.NewSessionRepository(db, logger)
	billingRepo := postgres.NewBillingRepository(db, logger)
	chargerRepo := postgres.NewChargerRepository(db, logger)
	merchantRepo := postgres.NewMerchantRepository(db, logger)

	// 9. Initialize WebSocket Hub (driver status pushes)
	wsHub := wsAdapter.NewHub()
	go wsHub.Run()

	// 10. Initialize Services (Business Logic Layer)
	arrivalCfg := &domain.ArrivalConfig{
		ConfirmRadiusM:      cfg.Arrival.ConfirmRadiusM,
		LookupRadiusM:       cfg.Arrival.LookupRadiusM,
		SessionTTL:          cfg.Arrival.SessionTTL,
		SweepInterval:       cfg.Arrival.SweepInterval,
		DailySessionCap:     cfg.Arrival.DailySessionCap,
		DayBoundaryTimezone: cfg.Arrival.DayBoundaryTimezone,
	}

	geoService := geo.NewService(chargerRepo, appCache, logger)
	billingService := billing.NewService(billingRepo, messageQueue, &domain.BillingConfig{FeeBps: cfg.Billing.FeeBps}, logger)

	pushAdapter := notification.NewPushAdapter(cfg.Notification.Push.ServerKey, cfg.Notification.Push.ProjectID, logger)
	smsAdapter := notification.NewSMSAdapter(cfg.Notification.SMS.AccountSID, cfg.Notification.SMS.AuthToken, cfg.Notification.SMS.From, logger)
	emailService, err := email.NewService(&email.Config{
		Provider:       cfg.Notification.Email.Provider,
		FromEmail:      cfg.Notification.Email.From,
		FromName:       cfg.Notification.Email.FromName,
		SendGridAPIKey: cfg.Notification.Email.APIKey,
		SMTPHost:       cfg.Notification.Email.SMTPHost,
		SMTPPort:       cfg.Notification.Email.SMTPPort,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize email service", zap.Error(err))
	}
	notifyService := notify.NewService(merchantRepo, messageQueue, pushAdapter, smsAdapter, emailService, wsHub, logger)

	sessionService := session.NewService(sessionRepo, billingService, geoService, notifyService, messageQueue, arrivalCfg, logger)

	// 11. Start Expiry Sweeper
	sweeper := session.NewSweeper(sessionRepo, messageQueue, arrivalCfg.SweepInterval, logger)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	// 12. Start Background Workers
	if err := notifyService.RunDispatcher(context.Background()); err != nil {
		logger.Fatal("Failed to start notification dispatcher", zap.Error(err))
	}
	if cfg.Billing.Stripe.Enabled {
		stripeService := payment.NewStripeService(cfg.Billing.Stripe.SecretKey, logger)
		invoiceWorker := billing.NewInvoiceWorker(merchantRepo, stripeService, messageQueue, logger)
		if err := invoiceWorker.Run(context.Background()); err != nil {
			logger.Fatal("Failed to start invoice worker", zap.Error(err))
		}
	}
	if err := startEventBridges(context.Background(), messageQueue, wsHub, notifyService, logger); err != nil {
		logger.Fatal("Failed to start event bridges", zap.Error(err))
	}

	// 13. Initialize Health Service
	healthService := health.NewService(&health.Config{
		Version: serviceVersion,
		DB:      sqlDB,
	}, logger)
	healthService.RegisterChecker("cache", func(ctx context.Context) health.CheckResult {
		start := time.Now()
		result := health.CheckResult{Name: "cache", Timestamp: time.Now()}
		if err := appCache.Ping(); err != nil {
			result.Status = health.StatusUnhealthy
			result.Message = err.Error()
		} else {
			result.Status = health.StatusHealthy
			result.Message = "connection ok"
		}
		result.Duration = time.Since(start)
		return result
	})

	// 14. Initialize Fiber HTTP Server
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		ServerHeader:          serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		IdleTimeout:           cfg.HTTP.IdleTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	// Global Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	if cfg.CORS.Enabled {
		app.Use(middleware.NewCORS(cfg.CORS))
	}
	if cfg.CircuitBreaker.Enabled {
		app.Use(middleware.CircuitBreaker(logger))
	}

	// Health Check Endpoints
	health.NewFiberHandler(healthService).RegisterRoutes(app)

	// Metrics endpoint for Prometheus
	if cfg.Prometheus.Enabled {
		app.Get(cfg.Prometheus.Path, func(c *fiber.Ctx) error {
			handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
			handler(c.Context())
			return nil
		})
	}

	// API v1 Routes
	v1 := app.Group("/api/v1")
	protected := v1.Group("", middleware.AuthRequired(cfg.JWT.Secret))

	// Session routes
	sessionHandler := handlers.NewSessionHandler(sessionService, logger)
	protected.Post("/sessions", sessionHandler.Create)
	protected.Get("/sessions/active", sessionHandler.GetActive)
	protected.Get("/sessions/:id", sessionHandler.Get)
	protected.Post("/sessions/:id/order", sessionHandler.BindOrder)
	protected.Post("/sessions/:id/arrival", sessionHandler.ConfirmArrival)
	protected.Post("/sessions/:id/merchant-confirm", sessionHandler.MerchantConfirm)
	protected.Post("/sessions/:id/pos-total", sessionHandler.RecordPOSTotal)
	protected.Delete("/sessions/:id", sessionHandler.Cancel)

	// Billing routes
	billingHandler := handlers.NewBillingHandler(billingService, logger)
	protected.Get("/billing/events", billingHandler.Export)
	protected.Get("/sessions/:id/billing", billingHandler.GetEvent)

	// Charger routes
	chargerHandler := handlers.NewChargerHandler(geoService, logger)
	protected.Get("/chargers/nearby", chargerHandler.Nearby)
	protected.Get("/chargers/:id", chargerHandler.Get)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/sessions", websocket.New(func(c *websocket.Conn) {
		driverID := c.Query("driver_id")
		if driverID == "" {
			c.Close()
			return
		}
		wsHub.AddClient(c, driverID)
	}))

	// 15. Start HTTP Server
	go func() {
		logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Fatal("HTTP Server failed", zap.Error(err))
		}
	}()

	// 16. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}

// newMessageQueue selects the messaging backend from config
func newMessageQueue(cfg config.QueueConfig, logger *zap.Logger) (queue.MessageQueue, error) {
	switch cfg.Backend {
	case "rabbitmq":
		return queue.NewRabbitMQQueue(cfg.URL, logger)
	case "", "nats":
		return queue.NewNATSQueue(cfg.URL, logger)
	default:
		return nil, fmt.Errorf("unknown queue backend: %s", cfg.Backend)
	}
}

// statusEvent mirrors the session status payload published by the session
// service and the sweeper.
type statusEvent struct {
	SessionID  string `json:"session_id"`
	DriverID   string `json:"driver_id"`
	MerchantID string `json:"merchant_id"`
	ChargerID  string `json:"charger_id"`
}

// startEventBridges fans queue events out to live driver connections and
// turns sweeper expirations into driver notifications.
func startEventBridges(ctx context.Context, mq queue.MessageQueue, hub *wsAdapter.Hub, notifier ports.Notifier, logger *zap.Logger) error {
	if err := mq.Subscribe(session.StatusSubject, func(data []byte) error {
		var ev statusEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil
		}
		if err := hub.SendToDriver(ev.DriverID, data); err != nil && err != wsAdapter.ErrDriverOffline {
			logger.Warn("Failed to push status to driver", zap.String("driver_id", ev.DriverID), zap.Error(err))
		}
		return nil
	}); err != nil {
		return err
	}

	return mq.Subscribe(session.ExpiredSubject, func(data []byte) error {
		var ev statusEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil
		}
		s := &domain.ArrivalSession{
			ID:         ev.SessionID,
			DriverID:   ev.DriverID,
			MerchantID: ev.MerchantID,
			ChargerID:  ev.ChargerID,
		}
		if err := notifier.NotifySessionExpired(ctx, s); err != nil {
			logger.Warn("Failed to notify driver of expiry", zap.String("session_id", ev.SessionID), zap.Error(err))
		}
		return nil
	})
}
