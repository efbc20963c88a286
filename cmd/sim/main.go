package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"harvest-engine/internal/adapters/cli"
	"harvest-engine/internal/app"
	"harvest-engine/internal/config"
	"harvest-engine/internal/db"
	"harvest-engine/internal/lock"
	"harvest-engine/internal/logging"

	"github.com/redis/go-redis/v9"
)

func main() {
	args := os.Args[1:]
	if !cli.NeedsDatabase(args) {
		if err := cli.Run(context.Background(), nil, args, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	// Results go to stdout, so logs go to stderr.
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	var locker lock.Locker = lock.NewAdvisoryLocker(pool)
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis: %v", err)
		}
		locker = lock.NewRedisLocker(rdb)
		logger.WithField("redis", cfg.RedisAddress).Debug("using redis simulation lease")
	}

	engine := app.NewEngine(pool, cfg.Sim, locker, logger)
	if err := cli.Run(ctx, engine, args, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		pool.Close()
		os.Exit(1)
	}
}
