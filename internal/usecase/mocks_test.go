//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"video-gate-platform/internal/domain"
	"video-gate-platform/internal/domain/model"
	"video-gate-platform/internal/domain/ports/adapter"
	"video-gate-platform/internal/domain/ports/repository"
	"video-gate-platform/internal/usecase"
)

// =============================
// Repositories
// =============================

// ---- Mock PurchaseRepository ----

type MockPurchaseRepo struct {
	mu   sync.RWMutex
	data map[string]*model.Purchase

	// optional hooks to exercise failure paths
	SaveFunc              func(ctx context.Context, tx repository.Tx, p *model.Purchase) error
	FindByOrderRefFunc    func(ctx context.Context, tx repository.Tx, orderRef string) (*model.Purchase, error)
	CompleteIfPendingFunc func(ctx context.Context, tx repository.Tx, id, paymentRef, signature string, expiresAt time.Time) (bool, error)
	errFind               error
}

var _ repository.PurchaseRepository = (*MockPurchaseRepo)(nil)

func NewMockPurchaseRepo() *MockPurchaseRepo {
	return &MockPurchaseRepo{data: map[string]*model.Purchase{}}
}

func (r *MockPurchaseRepo) Save(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPurchaseRepo) LockPair(ctx context.Context, tx repository.Tx, userID, imageID string) error {
	return nil
}

func (r *MockPurchaseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Purchase, error) {
	if r.errFind != nil {
		return nil, r.errFind
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.data[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPurchaseRepo) FindByOrderRef(ctx context.Context, tx repository.Tx, orderRef string) (*model.Purchase, error) {
	if r.FindByOrderRefFunc != nil {
		return r.FindByOrderRefFunc(ctx, tx, orderRef)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.data {
		if p.OrderRef == orderRef {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPurchaseRepo) FindLatestGrant(ctx context.Context, tx repository.Tx, userID, imageID string) (*model.Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *model.Purchase
	for _, p := range r.data {
		if p.UserID != userID || p.ImageID != imageID || p.Method != model.PaymentMethodGateway {
			continue
		}
		if p.Status != model.PurchaseStatusCompleted && p.Status != model.PurchaseStatusExpired &&
			p.Status != model.PurchaseStatusRefunded {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *MockPurchaseRepo) FindSubscriptionGrant(ctx context.Context, tx repository.Tx, userID, imageID string) (*model.Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *model.Purchase
	for _, p := range r.data {
		if p.UserID != userID || p.ImageID != imageID || p.Method != model.PaymentMethodSubscription ||
			p.Status != model.PurchaseStatusCompleted {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *MockPurchaseRepo) FindPending(ctx context.Context, tx repository.Tx, userID, imageID string) (*model.Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *model.Purchase
	for _, p := range r.data {
		if p.UserID == userID && p.ImageID == imageID && p.Status == model.PurchaseStatusPending {
			if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
				latest = p
			}
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *MockPurchaseRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Purchase
	for _, p := range r.data {
		if p.Status == model.PurchaseStatusPending && p.CreatedAt.Before(cutoff) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockPurchaseRepo) FindByPaymentRef(ctx context.Context, tx repository.Tx, paymentRef string) (*model.Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.data {
		if p.PaymentRef != nil && *p.PaymentRef == paymentRef {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPurchaseRepo) CompleteIfPending(ctx context.Context, tx repository.Tx, id, paymentRef, signature string, expiresAt time.Time) (bool, error) {
	if r.CompleteIfPendingFunc != nil {
		return r.CompleteIfPendingFunc(ctx, tx, id, paymentRef, signature, expiresAt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok || p.Status != model.PurchaseStatusPending {
		return false, nil
	}
	exp := expiresAt
	p.Status = model.PurchaseStatusCompleted
	p.PaymentRef = &paymentRef
	p.Signature = &signature
	p.ExpiresAt = &exp
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockPurchaseRepo) FailIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok || p.Status != model.PurchaseStatusPending {
		return false, nil
	}
	p.Status = model.PurchaseStatusFailed
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockPurchaseRepo) RefundIfCompleted(ctx context.Context, tx repository.Tx, id string, amount int64, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok || p.Status != model.PurchaseStatusCompleted {
		return false, nil
	}
	amt := amount
	p.Status = model.PurchaseStatusRefunded
	p.RefundAmount = &amt
	p.RefundReason = reason
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockPurchaseRepo) MarkExpired(ctx context.Context, tx repository.Tx, before time.Time, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.data {
		if limit > 0 && n >= limit {
			break
		}
		// Same inclusive cutoff as the relabel SQL (expires_at <= $1).
		if p.Status == model.PurchaseStatusCompleted && p.Method == model.PaymentMethodGateway &&
			p.ExpiresAt != nil && !p.ExpiresAt.After(before) {
			p.Status = model.PurchaseStatusExpired
			n++
		}
	}
	return n, nil
}

func (r *MockPurchaseRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, offset, limit int) ([]*model.Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Purchase
	for _, p := range r.data {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MockPurchaseRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string]int{}
	for _, p := range r.data {
		out[string(p.Status)]++
	}
	return out, nil
}

func (r *MockPurchaseRepo) SumRevenueByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum int64
	for _, p := range r.data {
		// Settled gateway sales count toward gross revenue even once the
		// window lapses or the money is later refunded, matching the SQL.
		if p.Method != model.PaymentMethodGateway {
			continue
		}
		switch p.Status {
		case model.PurchaseStatusCompleted, model.PurchaseStatusExpired, model.PurchaseStatusRefunded:
			sum += p.Amount
		}
	}
	return sum, nil
}

// get returns the stored record without copying; test assertions only.
func (r *MockPurchaseRepo) get(id string) *model.Purchase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data[id]
}

// ---- Mock SubscriptionRepository ----

type MockSubscriptionRepo struct {
	mu   sync.RWMutex
	data map[string]*model.Subscription // keyed by user id

	FindByUserFunc func(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error)
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.Subscription{}}
}

func (r *MockSubscriptionRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	if r.FindByUserFunc != nil {
		return r.FindByUserFunc(ctx, tx, userID)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.data[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) Upsert(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sub
	r.data[sub.UserID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) CountActive(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	now := time.Now()
	for _, s := range r.data {
		if s.Status == model.SubscriptionStatusActive && now.Before(s.EndDate) {
			n++
		}
	}
	return n, nil
}

func (r *MockSubscriptionRepo) FindExpiring(ctx context.Context, tx repository.Tx, withinDays int) ([]*model.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cutoff := time.Now().AddDate(0, 0, withinDays)
	var out []*model.Subscription
	for _, s := range r.data {
		if s.Status == model.SubscriptionStatusActive && s.EndDate.Before(cutoff) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock AssetRepository ----

type MockAssetRepo struct {
	mu     sync.RWMutex
	videos map[string]*model.Video
	images map[string]*model.GatedImage
}

var _ repository.AssetRepository = (*MockAssetRepo)(nil)

func NewMockAssetRepo() *MockAssetRepo {
	return &MockAssetRepo{videos: map[string]*model.Video{}, images: map[string]*model.GatedImage{}}
}

func (r *MockAssetRepo) FindVideoByID(ctx context.Context, tx repository.Tx, id string) (*model.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.videos[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockAssetRepo) FindImageByID(ctx context.Context, tx repository.Tx, id string) (*model.GatedImage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if img, ok := r.images[id]; ok {
		cp := *img
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockAssetRepo) FindImageByVideo(ctx context.Context, tx repository.Tx, videoID string) (*model.GatedImage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, img := range r.images {
		if img.VideoID == videoID {
			cp := *img
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockAssetRepo) SaveVideo(ctx context.Context, tx repository.Tx, v *model.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.videos[v.ID] = &cp
	return nil
}

func (r *MockAssetRepo) SaveImage(ctx context.Context, tx repository.Tx, img *model.GatedImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *img
	r.images[img.ID] = &cp
	return nil
}

func (r *MockAssetRepo) UpdateImagePrice(ctx context.Context, tx repository.Tx, id string, priceMinor int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[id]
	if !ok {
		return domain.ErrNotFound
	}
	img.PriceMinor = priceMinor
	img.UpdatedAt = time.Now()
	return nil
}

// =============================
// Transaction manager
// =============================

// MockTxManager runs the callback directly with NoTX. A single mutex stands
// in for the per-pair advisory lock so concurrency tests observe the same
// serialization the real storage layer provides.
type MockTxManager struct {
	mu sync.Mutex
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, repository.NoTX)
}

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway ----

type MockGateway struct {
	mu  sync.Mutex
	seq int64

	CreateOrderFunc   func(ctx context.Context, amountMinor int64, currency string, notes map[string]interface{}) (*adapter.Order, error)
	VerifyPaymentFunc func(ctx context.Context, orderRef, paymentRef, signature string) (bool, error)
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) CreateOrder(ctx context.Context, amountMinor int64, currency string, notes map[string]interface{}) (*adapter.Order, error) {
	if g.CreateOrderFunc != nil {
		return g.CreateOrderFunc(ctx, amountMinor, currency, notes)
	}
	g.mu.Lock()
	g.seq++
	ref := fmt.Sprintf("order_%d", g.seq)
	g.mu.Unlock()
	return &adapter.Order{Ref: ref, Amount: amountMinor, Currency: currency}, nil
}

func (g *MockGateway) VerifyPayment(ctx context.Context, orderRef, paymentRef, signature string) (bool, error) {
	if g.VerifyPaymentFunc != nil {
		return g.VerifyPaymentFunc(ctx, orderRef, paymentRef, signature)
	}
	return signature == "valid", nil
}

// ---- Mock AuditSink ----

type MockAudit struct {
	mu     sync.Mutex
	Events []adapter.AuditEvent
}

var _ adapter.AuditSink = (*MockAudit)(nil)

func (a *MockAudit) Emit(ev adapter.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Events = append(a.Events, ev)
}

func (a *MockAudit) Types() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.Events))
	for i, ev := range a.Events {
		out[i] = ev.Type
	}
	return out
}

// ---- Mock Locker ----

type MockLocker struct {
	TryLockFunc func(ctx context.Context, key string, ttl time.Duration) (string, error)
	UnlockFunc  func(ctx context.Context, key, token string) error
}

var _ usecase.Locker = (*MockLocker)(nil)

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if l.TryLockFunc != nil {
		return l.TryLockFunc(ctx, key, ttl)
	}
	return "token", nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	if l.UnlockFunc != nil {
		return l.UnlockFunc(ctx, key, token)
	}
	return nil
}

// ---- Mock GrantRecorder ----

type MockGrantRecorder struct {
	mu    sync.Mutex
	Calls []string // "user/video/image" per recorded view

	GrantFunc func(ctx context.Context, userID, videoID, imageID string) (*model.Purchase, error)
}

var _ usecase.GrantRecorder = (*MockGrantRecorder)(nil)

func (g *MockGrantRecorder) GrantViaSubscription(ctx context.Context, userID, videoID, imageID string) (*model.Purchase, error) {
	g.mu.Lock()
	g.Calls = append(g.Calls, userID+"/"+videoID+"/"+imageID)
	g.mu.Unlock()
	if g.GrantFunc != nil {
		return g.GrantFunc(ctx, userID, videoID, imageID)
	}
	return &model.Purchase{ID: "grant-1", UserID: userID, VideoID: videoID, ImageID: imageID,
		Method: model.PaymentMethodSubscription, Status: model.PurchaseStatusCompleted}, nil
}

// ---- Mock URLSigner ----

type MockSigner struct{}

func (MockSigner) Sign(rawURL string, expiresAt time.Time) (string, error) {
	return fmt.Sprintf("%s?expires=%d&sig=test", rawURL, expiresAt.Unix()), nil
}
