package postgres

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"video-gate-platform/internal/domain"
	"video-gate-platform/internal/domain/model"
	"video-gate-platform/internal/domain/ports/repository"
)

var _ repository.PurchaseRepository = (*purchaseRepo)(nil)

type purchaseRepo struct{ pool *pgxpool.Pool }

func NewPurchaseRepo(pool *pgxpool.Pool) *purchaseRepo {
	return &purchaseRepo{pool: pool}
}

const purchaseCols = `id, user_id, video_id, image_id, amount, currency, method, order_ref, payment_ref, signature, status, expires_at, refund_amount, refund_reason, created_at, updated_at`

func scanPurchase(row pgx.Row) (*model.Purchase, error) {
	p := &model.Purchase{}
	if err := row.Scan(&p.ID, &p.UserID, &p.VideoID, &p.ImageID, &p.Amount, &p.Currency, &p.Method, &p.OrderRef, &p.PaymentRef, &p.Signature, &p.Status, &p.ExpiresAt, &p.RefundAmount, &p.RefundReason, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *purchaseRepo) Save(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	const q = `
INSERT INTO purchases (
  id, user_id, video_id, image_id, amount, currency, method, order_ref, payment_ref, signature, status, expires_at, refund_amount, refund_reason, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
) ON CONFLICT (id) DO UPDATE SET
  amount=$5, currency=$6, method=$7, order_ref=$8, payment_ref=$9, signature=$10, status=$11, expires_at=$12, refund_amount=$13, refund_reason=$14, updated_at=$16;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.VideoID, p.ImageID, p.Amount, p.Currency, p.Method, p.OrderRef, p.PaymentRef, p.Signature, p.Status, p.ExpiresAt, p.RefundAmount, p.RefundReason, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func hashPair(userID, imageID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(imageID))
	return int64(h.Sum64() & ((1 << 63) - 1))
}

// LockPair takes a transaction-scoped advisory lock keyed on (user, image).
// Outside a transaction the call is a no-op.
func (r *purchaseRepo) LockPair(ctx context.Context, tx repository.Tx, userID, imageID string) error {
	if _, ok := tx.(pgx.Tx); !ok {
		return nil
	}
	_, err := execSQL(ctx, r.pool, tx, `SELECT pg_advisory_xact_lock($1);`, hashPair(userID, imageID))
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *purchaseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Purchase, error) {
	q := `SELECT ` + purchaseCols + ` FROM purchases WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanPurchase(row)
}

func (r *purchaseRepo) FindByOrderRef(ctx context.Context, tx repository.Tx, orderRef string) (*model.Purchase, error) {
	q := `SELECT ` + purchaseCols + ` FROM purchases WHERE order_ref=$1 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", orderRef)
	if err != nil {
		return nil, err
	}
	return scanPurchase(row)
}

// FindLatestGrant only considers gateway purchases; subscription grant rows
// are audit entries and must not grant access past the subscription itself.
func (r *purchaseRepo) FindLatestGrant(ctx context.Context, tx repository.Tx, userID, imageID string) (*model.Purchase, error) {
	const q = `SELECT ` + purchaseCols + ` FROM purchases
 WHERE user_id=$1 AND image_id=$2 AND method='gateway' AND status IN ('completed','expired','refunded')
 ORDER BY created_at DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, imageID)
	if err != nil {
		return nil, err
	}
	return scanPurchase(row)
}

func (r *purchaseRepo) FindSubscriptionGrant(ctx context.Context, tx repository.Tx, userID, imageID string) (*model.Purchase, error) {
	const q = `SELECT ` + purchaseCols + ` FROM purchases
 WHERE user_id=$1 AND image_id=$2 AND method='subscription' AND status='completed'
 ORDER BY created_at DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, imageID)
	if err != nil {
		return nil, err
	}
	return scanPurchase(row)
}

func (r *purchaseRepo) FindPending(ctx context.Context, tx repository.Tx, userID, imageID string) (*model.Purchase, error) {
	const q = `SELECT ` + purchaseCols + ` FROM purchases
 WHERE user_id=$1 AND image_id=$2 AND status='pending'
 ORDER BY created_at DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, imageID)
	if err != nil {
		return nil, err
	}
	return scanPurchase(row)
}

func (r *purchaseRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Purchase, error) {
	if limit <= 0 {
		limit = 200
	}
	const q = `SELECT ` + purchaseCols + ` FROM purchases
 WHERE status='pending' AND created_at < $1
 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, cutoff, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

func (r *purchaseRepo) FindByPaymentRef(ctx context.Context, tx repository.Tx, paymentRef string) (*model.Purchase, error) {
	const q = `SELECT ` + purchaseCols + ` FROM purchases WHERE payment_ref=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, paymentRef)
	if err != nil {
		return nil, err
	}
	return scanPurchase(row)
}

// CompleteIfPending transitions only when the current status is 'pending',
// closing the race between two concurrent confirmation deliveries.
func (r *purchaseRepo) CompleteIfPending(ctx context.Context, tx repository.Tx, id, paymentRef, signature string, expiresAt time.Time) (bool, error) {
	const q = `
UPDATE purchases
   SET status='completed', payment_ref=$2, signature=$3, expires_at=$4, updated_at=NOW()
 WHERE id=$1 AND status='pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, paymentRef, signature, expiresAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		// The unique index on payment_ref backstops the read-then-write guard
		// when two Completes for different orders race on one reference.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, domain.ErrDuplicatePayment
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *purchaseRepo) FailIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE purchases SET status='failed', updated_at=NOW() WHERE id=$1 AND status='pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *purchaseRepo) RefundIfCompleted(ctx context.Context, tx repository.Tx, id string, amount int64, reason string) (bool, error) {
	const q = `
UPDATE purchases
   SET status='refunded', refund_amount=$2, refund_reason=$3, updated_at=NOW()
 WHERE id=$1 AND status='completed';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, amount, reason)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

// MarkExpired relabels gateway purchases whose window has passed. The status
// filter keeps it from racing a concurrent complete() on the same row.
func (r *purchaseRepo) MarkExpired(ctx context.Context, tx repository.Tx, before time.Time, limit int) (int, error) {
	const q = `
UPDATE purchases SET status='expired', updated_at=NOW()
 WHERE id IN (
   SELECT id FROM purchases
    WHERE status='completed' AND method='gateway' AND expires_at IS NOT NULL AND expires_at <= $1
    ORDER BY expires_at ASC LIMIT $2
 ) AND status='completed';`
	cmd, err := execSQL(ctx, r.pool, tx, q, before, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return int(cmd.RowsAffected()), nil
}

func (r *purchaseRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, offset, limit int) ([]*model.Purchase, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + purchaseCols + ` FROM purchases WHERE user_id=$1 ORDER BY created_at DESC OFFSET $2 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, offset, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *purchaseRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	const q = `SELECT status, COUNT(*) FROM purchases GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[status] = n
	}
	return out, rows.Err()
}

func (r *purchaseRepo) SumRevenueByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM purchases WHERE status IN ('completed','expired','refunded') AND method='gateway' AND updated_at >= DATE_TRUNC($1, NOW());`
	row, err := pickRow(ctx, r.pool, tx, q, period)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}
