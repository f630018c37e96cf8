package repository

import (
	"context"

	"video-gate-platform/internal/domain/model"
)

// AssetRepository is the catalog port. Read-only to the access engine;
// the write methods serve admin CRUD and seeding.
type AssetRepository interface {
	FindVideoByID(ctx context.Context, tx Tx, id string) (*model.Video, error)
	FindImageByID(ctx context.Context, tx Tx, id string) (*model.GatedImage, error)
	FindImageByVideo(ctx context.Context, tx Tx, videoID string) (*model.GatedImage, error)

	SaveVideo(ctx context.Context, tx Tx, v *model.Video) error
	SaveImage(ctx context.Context, tx Tx, img *model.GatedImage) error
	UpdateImagePrice(ctx context.Context, tx Tx, id string, priceMinor int64) error
}
