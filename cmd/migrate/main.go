package main

import (
	"context"
	"log"
	"os"
	"time"

	"harvest-engine/internal/config"
	"harvest-engine/internal/db"
	"harvest-engine/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	dir := "migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	migrations, err := db.DiscoverMigrations(os.DirFS(dir))
	if err != nil {
		log.Fatalf("discover: %v", err)
	}
	if err := db.Migrate(ctx, pool, migrations, logger); err != nil {
		logging.LogError(logger, "migrate", "main", "apply migrations", map[string]string{"dir": dir}, err)
		os.Exit(1)
	}
	logger.WithField("count", len(migrations)).Info("all migrations processed")
}
