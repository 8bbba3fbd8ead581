package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jhoicas/inventario-garantias/internal/application/inventory"
	"github.com/jhoicas/inventario-garantias/internal/application/warranty"
	"github.com/jhoicas/inventario-garantias/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-garantias/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/inventario-garantias/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/inventario-garantias/internal/interfaces/http"
	"github.com/jhoicas/inventario-garantias/pkg/config"
	"github.com/jhoicas/inventario-garantias/pkg/logger"
	"github.com/jhoicas/inventario-garantias/pkg/telemetry"
)

// version se sobrescribe en build con -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("version", version).
		Msg("iniciando aplicación")

	ctx := context.Background()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry, version)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas OTLP")
	}

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, cfg.DB, "up"); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		log.Info().Msg("migraciones aplicadas")
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	health := map[string]httpRouter.Pinger{"postgres": pool}

	var idemStore httpRouter.IdempotencyStore
	if cfg.Redis.Enabled() {
		redisClient, err := infraredis.New(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer redisClient.Close()
		idemStore = redisClient
		health["redis"] = redisClient
	} else {
		log.Warn().Msg("REDIS_URL vacío: Idempotency-Key deshabilitado")
	}

	var (
		ledgerMetrics *metrics.LedgerMetrics
		gatherer      prometheus.Gatherer
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		ledgerMetrics = metrics.NewLedgerMetrics(reg)
		gatherer = reg
	}

	txRunner := postgres.NewTxRunner(pool, postgres.DefaultTxOptions(cfg.DB.TxTimeout), log)
	itemRepo := postgres.NewStockItemRepository(pool)
	movementRepo := postgres.NewMovementRepository(pool)
	claimRepo := postgres.NewWarrantyClaimRepository(pool)

	stockItemUC := inventory.NewStockItemUseCase(txRunner, itemRepo, ledgerMetrics, log)
	movementUC := inventory.NewMovementUseCase(txRunner, itemRepo, movementRepo, ledgerMetrics, log)
	claimUC := warranty.NewClaimUseCase(txRunner, movementUC, claimRepo, ledgerMetrics, log)

	var httpMetrics httpRouter.HTTPObserver
	if ledgerMetrics != nil {
		httpMetrics = ledgerMetrics
	}

	app := httpRouter.NewServer(httpRouter.ServerDeps{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		SwaggerFile:  cfg.HTTP.SwaggerFile,
		Gatherer:     gatherer,
		HTTPMetrics:  httpMetrics,
		Health:       health,
		Log:          log,
		Router: httpRouter.RouterDeps{
			Items:          stockItemUC,
			Movements:      movementUC,
			Claims:         claimUC,
			JWTSecret:      cfg.JWT.Secret,
			JWTIssuer:      cfg.JWT.Issuer,
			Idempotency:    idemStore,
			IdempotencyTTL: cfg.Idempotency.TTL,
		},
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del exportador de trazas")
	}

	log.Info().Msg("aplicación detenida")
}
