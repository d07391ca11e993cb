package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"roombooking/internal/room"
	"roombooking/pkg/config"
	"roombooking/pkg/db"
)

func main() {
	file := flag.String("file", "", "YAML room catalog (defaults to ROOMS_SEED_FILE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *file == "" {
		*file = cfg.RoomsSeedFile
	}
	if *file == "" {
		fmt.Fprintln(os.Stderr, "missing -file (or ROOMS_SEED_FILE in env/.env)")
		os.Exit(2)
	}

	rooms, err := room.LoadSeedFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read seed: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := room.NewRepository(pool)
	for _, rm := range rooms {
		if err := repo.Upsert(ctx, rm); err != nil {
			fmt.Fprintf(os.Stderr, "upsert %s: %v\n", rm.ID, err)
			os.Exit(1)
		}
		fmt.Printf("room %-8s %-24s %-12s cap=%-4d available=%v\n", rm.ID, rm.Name, rm.Type, rm.Capacity, rm.IsAvailable)
	}
	fmt.Printf("seeded %d rooms\n", len(rooms))
}
