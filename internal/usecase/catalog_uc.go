// File: internal/usecase/catalog_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"video-gate-platform/internal/domain"
	"video-gate-platform/internal/domain/model"
	"video-gate-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ CatalogUseCase = (*catalogUC)(nil)

// CatalogUseCase reads the asset catalog and carries the small admin surface
// needed to keep it operable. The access engine itself treats the catalog as
// read-only.
type CatalogUseCase interface {
	GetVideo(ctx context.Context, videoID string) (*model.Video, error)
	GetImage(ctx context.Context, imageID string) (*model.GatedImage, error)
	ImageForVideo(ctx context.Context, videoID string) (*model.GatedImage, error)

	CreateVideo(ctx context.Context, video *model.Video) error
	CreateImage(ctx context.Context, image *model.GatedImage) error
	SetImagePrice(ctx context.Context, imageID string, priceMinor int64) error
}

type catalogUC struct {
	assets repository.AssetRepository
	log    *zerolog.Logger
}

func NewCatalogUseCase(assets repository.AssetRepository, logger *zerolog.Logger) *catalogUC {
	l := logger.With().Str("component", "CatalogUC").Logger()
	return &catalogUC{assets: assets, log: &l}
}

func (u *catalogUC) GetVideo(ctx context.Context, videoID string) (*model.Video, error) {
	if videoID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.assets.FindVideoByID(ctx, repository.NoTX, videoID)
}

func (u *catalogUC) GetImage(ctx context.Context, imageID string) (*model.GatedImage, error) {
	if imageID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.assets.FindImageByID(ctx, repository.NoTX, imageID)
}

func (u *catalogUC) ImageForVideo(ctx context.Context, videoID string) (*model.GatedImage, error) {
	if videoID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.assets.FindImageByVideo(ctx, repository.NoTX, videoID)
}

func (u *catalogUC) CreateVideo(ctx context.Context, video *model.Video) error {
	if video == nil || video.ID == "" || video.Title == "" {
		return domain.ErrInvalidArgument
	}
	return u.assets.SaveVideo(ctx, repository.NoTX, video)
}

func (u *catalogUC) CreateImage(ctx context.Context, image *model.GatedImage) error {
	if image == nil || image.ID == "" || image.VideoID == "" || image.URL == "" {
		return domain.ErrInvalidArgument
	}
	if image.PriceMinor < 0 {
		return domain.ErrInvalidArgument
	}
	return u.assets.SaveImage(ctx, repository.NoTX, image)
}

func (u *catalogUC) SetImagePrice(ctx context.Context, imageID string, priceMinor int64) error {
	if imageID == "" || priceMinor < 0 {
		return domain.ErrInvalidArgument
	}
	if err := u.assets.UpdateImagePrice(ctx, repository.NoTX, imageID, priceMinor); err != nil {
		return err
	}
	u.log.Info().Str("image_id", imageID).Int64("price_minor", priceMinor).Msg("image price updated")
	return nil
}
