// Command seed sends generated comment traffic through the moderation
// pipeline into the configured database.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"commentguard/internal/config"
	"commentguard/internal/models"
	"commentguard/internal/seed"
	"commentguard/internal/server"
)

func main() {
	posts := flag.Int("posts", 10, "Number of posts to generate comments for")
	perPost := flag.Int("comments", 20, "Comments per post")
	days := flag.Int("days", 30, "Spread created_at over this many days")
	abuse := flag.Float64("abuse", 0.25, "Share of comments built to trip a moderation flag")
	seedValue := flag.Int64("seed", 0, "Random seed (0 picks one)")
	batch := flag.Int("batch", seed.DefaultBatchSize, "Comments per ingestion batch")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.DBDriver == "memory" {
		log.Fatalf("DB_DRIVER is memory; seeding needs sqlite or postgres to keep the data")
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := srv.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to restore state: %v", err)
	}
	defer func() { _ = srv.Shutdown(context.Background()) }()

	factory := seed.NewFactory(seed.Options{
		Posts:           *posts,
		CommentsPerPost: *perPost,
		MaxDays:         *days,
		AbuseRatio:      *abuse,
		Seed:            *seedValue,
	}, models.DefaultSettings())

	log.Printf("Seeding %d posts x %d comments", *posts, *perPost)
	sum, err := seed.Run(ctx, srv.Comments(), factory.Batch(), *batch)
	if err != nil {
		log.Fatalf("Seeding failed after %d batches: %v", sum.Batches, err)
	}
	log.Printf("Done: %d comments ingested, %d flagged, %d auto-hidden", sum.Ingested, sum.Flagged, sum.AutoHidden)
}
