// File: cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"video-gate-platform/internal/config"
	"video-gate-platform/internal/domain/model"
	"video-gate-platform/internal/domain/ports/repository"
	pg "video-gate-platform/internal/infra/db/postgres"
	"video-gate-platform/internal/infra/logging"
	"video-gate-platform/internal/usecase"
)

const schema = `
CREATE TABLE IF NOT EXISTS purchases (
    id            TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL,
    video_id      TEXT NOT NULL,
    image_id      TEXT NOT NULL,
    amount        BIGINT NOT NULL,
    currency      TEXT NOT NULL,
    method        TEXT NOT NULL,
    order_ref     TEXT NOT NULL,
    payment_ref   TEXT,
    signature     TEXT,
    status        TEXT NOT NULL,
    expires_at    TIMESTAMPTZ,
    refund_amount BIGINT,
    refund_reason TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_purchases_pair ON purchases (user_id, image_id, created_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS idx_purchases_order_ref ON purchases (order_ref);
CREATE UNIQUE INDEX IF NOT EXISTS idx_purchases_payment_ref ON purchases (payment_ref) WHERE payment_ref IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_purchases_pending_age ON purchases (created_at) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS subscriptions (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL UNIQUE,
    plan       TEXT NOT NULL,
    status     TEXT NOT NULL,
    start_date TIMESTAMPTZ NOT NULL,
    end_date   TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS videos (
    id             TEXT PRIMARY KEY,
    title          TEXT NOT NULL,
    url            TEXT NOT NULL,
    gated_image_id TEXT,
    created_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS gated_images (
    id          TEXT PRIMARY KEY,
    video_id    TEXT NOT NULL,
    url         TEXT NOT NULL,
    price_minor BIGINT NOT NULL DEFAULT 0,
    currency    TEXT NOT NULL DEFAULT 'INR',
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_gated_images_video ON gated_images (video_id);
`

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	fmt.Println("schema applied")

	assetRepo := pg.NewAssetRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	catalogUC := usecase.NewCatalogUseCase(assetRepo, logger)

	// If demo assets already exist, do nothing.
	if v, err := catalogUC.GetVideo(ctx, "vid-demo-1"); err == nil && v != nil {
		fmt.Println("demo data already present. No changes.")
		return
	}

	now := time.Now()
	imgID := "img-demo-1"
	videos := []*model.Video{
		{ID: "vid-demo-1", Title: "Backstage tour", URL: "https://cdn.example.test/videos/vid-demo-1.mp4", GatedImageID: &imgID, CreatedAt: now},
		{ID: "vid-demo-2", Title: "Launch announcement", URL: "https://cdn.example.test/videos/vid-demo-2.mp4", CreatedAt: now},
	}
	for _, v := range videos {
		if err := catalogUC.CreateVideo(ctx, v); err != nil {
			log.Fatalf("seed video %s: %v", v.ID, err)
		}
		fmt.Printf("seeded video %s (%s)\n", v.ID, v.Title)
	}

	images := []*model.GatedImage{
		{ID: "img-demo-1", VideoID: "vid-demo-1", URL: "https://cdn.example.test/images/img-demo-1.jpg", PriceMinor: 4900, Currency: cfg.Access.Currency, CreatedAt: now, UpdatedAt: now},
		{ID: "img-demo-2", VideoID: "vid-demo-2", URL: "https://cdn.example.test/images/img-demo-2.jpg", CreatedAt: now, UpdatedAt: now}, // no price set: fallback applies
	}
	for _, img := range images {
		if err := catalogUC.CreateImage(ctx, img); err != nil {
			log.Fatalf("seed image %s: %v", img.ID, err)
		}
		fmt.Printf("seeded image %s (price=%d)\n", img.ID, img.PriceMinor)
	}

	sub := &model.Subscription{
		ID:        "sub-demo-1",
		UserID:    "user-subscriber",
		Plan:      "monthly",
		Status:    model.SubscriptionStatusActive,
		StartDate: now,
		EndDate:   now.AddDate(0, 1, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := subRepo.Upsert(ctx, repository.NoTX, sub); err != nil {
		log.Fatalf("seed subscription: %v", err)
	}
	fmt.Printf("seeded subscription for %s until %s\n", sub.UserID, sub.EndDate.Format(time.RFC3339))

	fmt.Println("seeding complete")
}
