package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dispatch-cost-service/internal/adapters/repositories"
	"dispatch-cost-service/internal/config"
	"dispatch-cost-service/internal/platform/db"
	"dispatch-cost-service/internal/platform/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// dbtool creates the schema and optionally loads a YAML seed file.
//
//	dbtool [-seed path] [-schema-only]
func main() {
	_ = godotenv.Load()

	seedPath := flag.String("seed", config.Get("SEED_PATH", "data/seeds/demo.yaml"), "YAML seed file")
	schemaOnly := flag.Bool("schema-only", false, "create tables without seeding")
	flag.Parse()

	log, err := logger.New(config.Get("APP_ENV", "development"), config.Get("LOG_LEVEL", "info"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	databaseURL := config.Get("DATABASE_URL", "")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := db.Open(ctx, databaseURL, db.Options{MaxOpenConns: 2})
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer pg.Close()

	log.Info("initializing database schema")
	if err := repositories.InitSchema(ctx, pg); err != nil {
		log.Fatal("schema initialization failed", zap.Error(err))
	}
	log.Info("schema ready")

	if *schemaOnly {
		return
	}

	log.Info("seeding database", zap.String("path", *seedPath))
	if err := repositories.SeedFromYAML(ctx, pg, *seedPath); err != nil {
		log.Fatal("seeding failed", zap.Error(err))
	}
	log.Info("seeding complete")
}
