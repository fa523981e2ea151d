package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	_ "github.com/go-sql-driver/mysql"

	"github.com/sellsutra/ms-go-orders/app/auth"
	"github.com/sellsutra/ms-go-orders/app/controller"
	"github.com/sellsutra/ms-go-orders/app/gate"
	"github.com/sellsutra/ms-go-orders/app/notify"
	"github.com/sellsutra/ms-go-orders/app/repository"
	"github.com/sellsutra/ms-go-orders/app/service"
	"github.com/sellsutra/ms-go-orders/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for the orders service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, orderService, cleanup := mustCreateOrderService()
	defer cleanup()

	sessionLookup := auth.NewHTTPSessionLookup(cfg.Auth.ServiceURL, cfg.Auth.HTTPTimeout)
	orderController := controller.NewOrderController(orderService)
	webhookController := controller.NewWebhookController(orderService)

	e := setupHTTPServer(orderController, webhookController, sessionLookup)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	orderController *controller.OrderController,
	webhookController *controller.WebhookController,
	sessionLookup auth.SessionLookup,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogHost:      true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"request_id": v.RequestID,
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(ensureRequestID())

	e.GET("/health", orderController.Health)

	// Public surfaces: buyer proof submission and gateway callbacks
	// authenticate through their own mechanisms, not sessions.
	e.POST("/orders/:id/payment-proof", orderController.SubmitPaymentProof)
	e.POST("/webhooks/gateway", webhookController.HandleGatewayWebhook)

	sellers := e.Group("/orders", auth.RequireRole(sessionLookup, auth.RoleSeller))
	sellers.POST("", orderController.CreateOrder)
	sellers.GET("/:id", orderController.GetOrder)
	sellers.GET("/:id/timeline", orderController.GetTimeline)
	sellers.GET("/:id/payments", orderController.ListPayments)
	sellers.POST("/:id/confirm-payment", orderController.ConfirmPayment)
	sellers.POST("/:id/cod-collect", orderController.CODCollect)
	sellers.POST("/:id/cancel", orderController.CancelOrder)

	admin := e.Group("", auth.RequireRole(sessionLookup, auth.RoleAdmin))
	admin.POST("/orders/:id/resolve", orderController.AdminResolve)
	admin.PUT("/sellers/:id/webhook-secret", orderController.RotateWebhookSecret)

	return e
}

// ensureRequestID assigns a request id when the caller (e.g. the payment
// gateway) does not send one, so every log line stays correlatable.
func ensureRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				requestID = uuid.NewString()
				ctx.Request().Header.Set(echo.HeaderXRequestID, requestID)
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

func mustCreateOrderService() (*config.Config, *service.OrderService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	secrets, err := service.NewSecretBox(cfg.Secrets.MasterKey)
	if err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to initialize secret box")
	}

	var opGate gate.Gate = gate.AllowAll{}
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opGate = gate.NewRedisGate(redisClient, cfg.Redis.MaintenanceKey)
	}

	orderService := service.NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewWebhookEventRepository(db),
		repository.NewTimelineRepository(db),
		repository.NewSellerCredentialRepository(db),
		repository.NewTransitionStore(db),
		opGate,
		notify.NewLogNotifier(),
		secrets,
		service.ReconcileConfig{
			WebhookEventRetention: cfg.Orders.WebhookEventRetention,
			PendingReminderAge:    cfg.Orders.PendingReminderAge,
			JobBatchSize:          cfg.Orders.JobBatchSize,
			InvoiceBaseURL:        cfg.Orders.InvoiceBaseURL,
		},
	)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close redis client")
			}
		}
	}

	return cfg, orderService, cleanup
}
