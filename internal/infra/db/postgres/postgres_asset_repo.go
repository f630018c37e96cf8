package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"video-gate-platform/internal/domain"
	"video-gate-platform/internal/domain/model"
	"video-gate-platform/internal/domain/ports/repository"
)

var _ repository.AssetRepository = (*assetRepo)(nil)

type assetRepo struct{ pool *pgxpool.Pool }

func NewAssetRepo(pool *pgxpool.Pool) *assetRepo {
	return &assetRepo{pool: pool}
}

func (r *assetRepo) FindVideoByID(ctx context.Context, tx repository.Tx, id string) (*model.Video, error) {
	const q = `SELECT id, title, url, gated_image_id, created_at FROM videos WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	v := &model.Video{}
	if err := row.Scan(&v.ID, &v.Title, &v.URL, &v.GatedImageID, &v.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return v, nil
}

const imageCols = `id, video_id, url, price_minor, currency, created_at, updated_at`

func scanImage(row pgx.Row) (*model.GatedImage, error) {
	img := &model.GatedImage{}
	if err := row.Scan(&img.ID, &img.VideoID, &img.URL, &img.PriceMinor, &img.Currency, &img.CreatedAt, &img.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return img, nil
}

func (r *assetRepo) FindImageByID(ctx context.Context, tx repository.Tx, id string) (*model.GatedImage, error) {
	const q = `SELECT ` + imageCols + ` FROM gated_images WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanImage(row)
}

func (r *assetRepo) FindImageByVideo(ctx context.Context, tx repository.Tx, videoID string) (*model.GatedImage, error) {
	const q = `SELECT ` + imageCols + ` FROM gated_images WHERE video_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, videoID)
	if err != nil {
		return nil, err
	}
	return scanImage(row)
}

func (r *assetRepo) SaveVideo(ctx context.Context, tx repository.Tx, v *model.Video) error {
	const q = `
INSERT INTO videos (id, title, url, gated_image_id, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET title=$2, url=$3, gated_image_id=$4;`
	_, err := execSQL(ctx, r.pool, tx, q, v.ID, v.Title, v.URL, v.GatedImageID, v.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *assetRepo) SaveImage(ctx context.Context, tx repository.Tx, img *model.GatedImage) error {
	const q = `
INSERT INTO gated_images (id, video_id, url, price_minor, currency, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET video_id=$2, url=$3, price_minor=$4, currency=$5, updated_at=$7;`
	_, err := execSQL(ctx, r.pool, tx, q, img.ID, img.VideoID, img.URL, img.PriceMinor, img.Currency, img.CreatedAt, img.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *assetRepo) UpdateImagePrice(ctx context.Context, tx repository.Tx, id string, priceMinor int64) error {
	const q = `UPDATE gated_images SET price_minor=$2, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, priceMinor)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
