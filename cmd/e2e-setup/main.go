package main

import (
	"context"
	"flag"
	"log"
	"time"

	"video-gate-platform/internal/config"
	"video-gate-platform/internal/domain/model"
	"video-gate-platform/internal/domain/ports/repository"
	"video-gate-platform/internal/infra/db/postgres"
	"video-gate-platform/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
)

// This script is for setting up a clean, predictable database state
// for manual end-to-end testing.
func main() {
	ctx := context.Background()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	// --- Connect to Postgres ---
	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	// --- Connect to Redis ---
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	// 1. Clean the Redis cache to remove any stale data.
	log.Println("[1/3] Wiping Redis cache...")
	if err := redisClient.Raw().FlushDB(ctx).Err(); err != nil {
		log.Fatalf("failed to flush redis: %v", err)
	}

	// 2. Clean the database completely.
	log.Println("[2/3] Wiping all existing database data...")
	_, err = pool.Exec(ctx, `
		TRUNCATE
			purchases, subscriptions, videos, gated_images
		RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	// 3. Seed the catalog and a subscriber account.
	log.Println("[3/3] Seeding catalog and test accounts...")
	seedCatalog(ctx, pool)

	log.Println("--- E2E Environment Setup Complete ---")
}

// seedCatalog contains the standard data needed to drive the checkout flow by
// hand: one priced image, one unpriced image, and one active subscriber.
func seedCatalog(ctx context.Context, pool *pgxpool.Pool) {
	assetRepo := postgres.NewAssetRepo(pool)
	subRepo := postgres.NewSubscriptionRepo(pool)

	now := time.Now()

	imgID := "img-e2e-1"
	video := &model.Video{
		ID:           "vid-e2e-1",
		Title:        "Studio Session (E2E)",
		URL:          "https://cdn.example.com/videos/vid-e2e-1.mp4",
		GatedImageID: &imgID,
		CreatedAt:    now,
	}
	if err := assetRepo.SaveVideo(ctx, repository.NoTX, video); err != nil {
		log.Printf("failed to save video: %v", err)
	}

	if err := assetRepo.SaveImage(ctx, repository.NoTX, &model.GatedImage{
		ID:         imgID,
		VideoID:    video.ID,
		URL:        "https://cdn.example.com/images/img-e2e-1.jpg",
		PriceMinor: 4900,
		Currency:   "INR",
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		log.Printf("failed to save priced image: %v", err)
	}

	if err := assetRepo.SaveImage(ctx, repository.NoTX, &model.GatedImage{
		ID:        "img-e2e-2",
		VideoID:   video.ID,
		URL:       "https://cdn.example.com/images/img-e2e-2.jpg",
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		log.Printf("failed to save unpriced image: %v", err)
	}

	if err := subRepo.Upsert(ctx, repository.NoTX, &model.Subscription{
		ID:        "sub-e2e-1",
		UserID:    "user-e2e-subscriber",
		Plan:      "monthly",
		Status:    model.SubscriptionStatusActive,
		StartDate: now,
		EndDate:   now.AddDate(0, 1, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		log.Printf("failed to save subscription: %v", err)
	}
}
