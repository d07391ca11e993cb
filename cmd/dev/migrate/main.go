package main

import (
	"context"
	"fmt"
	"os"

	"roombooking/pkg/config"
	"roombooking/pkg/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "file://migrations"
	}

	// This uses DIRECT_URL if set (recommended behind a connection pooler).
	if err := db.Migrate(cfg.MigrationsPath, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
		os.Exit(1)
	}

	// Sanity check that the runtime connection opens (uses DATABASE_URL if set).
	// DSNs are not printed to keep secrets out of logs.
	pool, err := db.Open(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "runtime db open failed: %v\n", err)
		os.Exit(1)
	}
	pool.Close()

	fmt.Println("migrations applied")
}
