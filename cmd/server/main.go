package main

import (
	"context"
	"log"
	"os"

	"github.com/hankyul/bidwatch/internal/api"
	"github.com/hankyul/bidwatch/internal/config"
	"github.com/hankyul/bidwatch/internal/db"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	settings, err := config.Load(os.Getenv("SETTINGS_PATH"))
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	srv := api.NewServer(pool, settings)
	log.Printf("Server starting on port %s...", port)
	if err := srv.Start(port); err != nil {
		log.Fatal(err)
	}
}
