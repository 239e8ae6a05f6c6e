package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abraxas-365/courier/pkg/asyncx"
	"github.com/Abraxas-365/courier/pkg/config"
	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/Abraxas-365/courier/pkg/logx"
	"github.com/Abraxas-365/courier/pkg/messages/messagesapi"
	"github.com/Abraxas-365/courier/pkg/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		logx.Fatalf("Failed to load configuration: %v", err)
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		logx.SetLevel(logx.ParseLevel(lvl))
	}
	metrics.Init()

	logx.Infof("🚀 Starting Courier (env: %s)...", cfg.Env)

	// 2. Dependency container
	container := NewContainer(cfg)
	defer container.Cleanup()

	// 3. Fiber app
	app := fiber.New(fiber.Config{
		AppName:               "Courier",
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler,
		BodyLimit:             cfg.HTTP.BodyLimit,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
	})

	// 4. Global middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: !cfg.IsProduction(),
	}))

	app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:  getEnv("CORS_ORIGINS", "*"),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:  "GET, POST, DELETE, OPTIONS",
		ExposeHeaders: "X-Request-ID",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${respHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	// 5. Health and metrics
	app.Get("/health", healthCheckHandler(container))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// 6. Admin routes: /api/v1/messages/*
	container.MessageHandler.RegisterRoutes(app, container.AuthMiddleware)
	logx.Info("✓ Message admin routes registered")

	// 7. 404 handler
	app.Use(notFoundHandler)

	printRouteSummary()

	// 8. Background services and server
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	container.StartBackgroundServices(ctx)

	startServer(app, cfg.HTTP.Port, container, cancel)
}

// healthCheckHandler reports the state of the database and Redis.
func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status":  "healthy",
			"service": "courier",
			"version": getEnv("APP_VERSION", "1.0.0"),
		}

		if container.DB != nil {
			if err := ping(c.UserContext(), container.DB.PingContext); err != nil {
				health["db"] = "unhealthy"
				health["db_error"] = err.Error()
				health["status"] = "degraded"
			} else {
				health["db"] = "healthy"
			}
		}

		if container.Redis != nil {
			if err := ping(c.UserContext(), func(ctx context.Context) error {
				return container.Redis.Ping(ctx).Err()
			}); err != nil {
				health["redis"] = "unhealthy"
				health["redis_error"] = err.Error()
				health["status"] = "degraded"
			} else {
				health["redis"] = "healthy"
			}
		}

		health["tasks"] = container.Scheduler.Tasks()

		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(health)
	}
}

// ping runs check with a two second deadline.
func ping(ctx context.Context, check func(context.Context) error) error {
	_, err := asyncx.WithTimeout(ctx, 2*time.Second, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, check(ctx)
	})
	return err
}

func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":      "Route not found",
		"code":       "NOT_FOUND",
		"path":       c.Path(),
		"method":     c.Method(),
		"request_id": requestID(c),
	})
}

// globalErrorHandler logs the failed request and writes the errx response.
func globalErrorHandler(c *fiber.Ctx, err error) error {
	entry := logx.WithFields(logx.Fields{
		"path":       c.Path(),
		"method":     c.Method(),
		"ip":         c.IP(),
		"request_id": requestID(c),
	})
	if errx.IsType(err, errx.TypeValidation) || errx.IsType(err, errx.TypeNotFound) {
		entry.Warnf("Request rejected: %v", err)
	} else {
		entry.Errorf("Request error: %v", err)
	}
	return messagesapi.ErrorHandler(c, err)
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.Get("X-Request-ID")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printRouteSummary() {
	logx.Info("📋 Route Summary:")
	logx.Info("   ├─ Messages: /api/v1/messages/{preview,warmup,warmup/runs,cache}")
	logx.Info("   ├─ Metrics: /metrics")
	logx.Info("   └─ Health: /health")
}

// startServer runs the server until SIGINT/SIGTERM. SIGHUP reloads the
// settings file.
func startServer(app *fiber.App, port string, container *Container, stop context.CancelFunc) {
	go func() {
		logx.Infof("🚀 Server listening on port %s", port)
		logx.Infof("💚 Health Check: http://localhost:%s/health", port)

		if err := app.Listen(":" + port); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			container.ReloadSettings()
			continue
		}
		logx.Infof("🛑 Received signal: %v", sig)
		break
	}

	logx.Info("Shutting down gracefully...")
	stop()
	if err := app.ShutdownWithTimeout(container.Config.Jobs.ShutdownTimeout); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}
	logx.Info("✅ Server exited successfully")
}
