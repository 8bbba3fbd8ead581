package http

import (
	"context"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/inventario-garantias/pkg/logger"
)

// Pinger dependencia verificable por /health (pool de PostgreSQL, Redis).
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServerDeps configuración de la app Fiber.
type ServerDeps struct {
	AppName      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	SwaggerFile  string
	Gatherer     prometheus.Gatherer
	HTTPMetrics  HTTPObserver
	Health       map[string]Pinger
	Log          *logger.Logger
	Router       RouterDeps
}

// NewServer arma la app: recover, request id, access log, métricas, /health, /metrics, /docs y /api.
func NewServer(deps ServerDeps) *fiber.App {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	if deps.Router.Log == nil {
		deps.Router.Log = log
	}

	app := fiber.New(fiber.Config{
		AppName:      deps.AppName,
		ReadTimeout:  deps.ReadTimeout,
		WriteTimeout: deps.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: ErrorHandler(log),
	})
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: requestIDKey,
	}))
	app.Use(AccessLog(log.Named("http")))
	if deps.HTTPMetrics != nil {
		app.Use(Metrics(deps.HTTPMetrics))
	}

	// Swagger UI en http://localhost:<port>/docs (solo si existe el documento)
	if deps.SwaggerFile != "" {
		if _, err := os.Stat(deps.SwaggerFile); err == nil {
			app.Use(swagger.New(swagger.Config{
				BasePath: "/",
				FilePath: deps.SwaggerFile,
				Path:     "docs",
				Title:    "Inventario y Garantías API",
			}))
		}
	}

	app.Get("/health", healthHandler(deps.AppName, deps.Health))
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	Router(app, deps.Router)
	return app
}

func healthHandler(service string, checks map[string]Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		status := fiber.StatusOK
		results := make(map[string]string, len(checks))
		for name, p := range checks {
			if p == nil {
				continue
			}
			if err := p.Ping(ctx); err != nil {
				results[name] = "down"
				status = fiber.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		state := "ok"
		if status != fiber.StatusOK {
			state = "degraded"
		}
		return c.Status(status).JSON(fiber.Map{"status": state, "service": service, "checks": results})
	}
}
