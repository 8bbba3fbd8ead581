// Command migrate aplica las migraciones SQL embebidas con goose.
//
//	go run ./cmd/migrate up
//	go run ./cmd/migrate down
//	go run ./cmd/migrate status
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/inventario-garantias/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-garantias/pkg/config"
	"github.com/jhoicas/inventario-garantias/pkg/logger"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "uso: migrate <up|down|status|version|redo|reset> [args]")
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	command := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	if err := postgres.Migrate(context.Background(), cfg.DB, command, flag.Args()[1:]...); err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("migración fallida")
	}
	log.Info().Str("command", command).Msg("migración completada")
}
