//go:build !integration

package apiv1_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"video-gate-platform/internal/domain"
	"video-gate-platform/internal/domain/model"
	"video-gate-platform/internal/domain/ports/adapter"
	"video-gate-platform/internal/infra/api/apiv1"
	"video-gate-platform/internal/usecase"
)

type fakeLedger struct {
	InitiateFunc func(ctx context.Context, userID, imageID string) (*model.Purchase, *adapter.Order, error)
	CompleteFunc func(ctx context.Context, orderRef, paymentRef, signature string) (*model.Purchase, error)
	FindByIDFunc func(ctx context.Context, purchaseID string) (*model.Purchase, error)
}

var _ usecase.LedgerUseCase = (*fakeLedger)(nil)

func (f *fakeLedger) Initiate(ctx context.Context, userID, imageID string) (*model.Purchase, *adapter.Order, error) {
	return f.InitiateFunc(ctx, userID, imageID)
}

func (f *fakeLedger) Complete(ctx context.Context, orderRef, paymentRef, signature string) (*model.Purchase, error) {
	return f.CompleteFunc(ctx, orderRef, paymentRef, signature)
}

func (f *fakeLedger) GrantViaSubscription(ctx context.Context, userID, videoID, imageID string) (*model.Purchase, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeLedger) Refund(ctx context.Context, purchaseID string, amount int64, reason string) (*model.Purchase, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeLedger) SweepExpired(ctx context.Context, limit int) (int, error) { return 0, nil }

func (f *fakeLedger) AbandonStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	return 0, nil
}

func (f *fakeLedger) FindByID(ctx context.Context, purchaseID string) (*model.Purchase, error) {
	return f.FindByIDFunc(ctx, purchaseID)
}

type fakeAccess struct {
	HasAccessFunc func(ctx context.Context, userID, imageID string) (model.AccessDecision, error)
	SignedURLFunc func(ctx context.Context, userID, imageID string) (string, *time.Time, error)
}

var _ usecase.AccessUseCase = (*fakeAccess)(nil)

func (f *fakeAccess) HasAccess(ctx context.Context, userID, imageID string) (model.AccessDecision, error) {
	return f.HasAccessFunc(ctx, userID, imageID)
}

func (f *fakeAccess) SignedAccessURL(ctx context.Context, userID, imageID string) (string, *time.Time, error) {
	return f.SignedURLFunc(ctx, userID, imageID)
}

func newTestRouter(ledger *fakeLedger, access *fakeAccess) http.Handler {
	log := zerolog.Nop()
	r := chi.NewRouter()
	apiv1.RegisterAPIV1(r, apiv1.NewServer(ledger, access, &log))
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	out := map[string]any{}
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("response is not JSON: %v: %s", err, rr.Body.String())
		}
	}
	return rr, out
}

func samplePurchase() *model.Purchase {
	exp := time.Date(2026, 9, 1, 12, 5, 0, 0, time.UTC)
	return &model.Purchase{
		ID:        "01J0TEST",
		UserID:    "u1",
		VideoID:   "vid-1",
		ImageID:   "img-1",
		Amount:    4900,
		Currency:  "INR",
		Method:    model.PaymentMethodGateway,
		OrderRef:  "order_1",
		Status:    model.PurchaseStatusCompleted,
		ExpiresAt: &exp,
		CreatedAt: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestInitiateEndpoint(t *testing.T) {
	ledger := &fakeLedger{
		InitiateFunc: func(ctx context.Context, userID, imageID string) (*model.Purchase, *adapter.Order, error) {
			if userID != "u1" || imageID != "img-1" {
				t.Fatalf("unexpected args %q %q", userID, imageID)
			}
			p := samplePurchase()
			p.Status = model.PurchaseStatusPending
			p.ExpiresAt = nil
			return p, &adapter.Order{Ref: "order_1", Raw: map[string]interface{}{"order_id": "order_1", "key_id": "rzp_test"}}, nil
		},
	}
	h := newTestRouter(ledger, &fakeAccess{})

	rr, out := doJSON(t, h, http.MethodPost, "/api/v1/purchases", `{"user_id":"u1","image_id":"img-1"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	purchase, _ := out["purchase"].(map[string]any)
	if purchase["status"] != "pending" || purchase["order_ref"] != "order_1" {
		t.Fatalf("purchase view = %v", purchase)
	}
	order, _ := out["order"].(map[string]any)
	if order["key_id"] != "rzp_test" {
		t.Fatalf("order payload = %v", order)
	}
}

func TestInitiateEndpointBadBody(t *testing.T) {
	h := newTestRouter(&fakeLedger{}, &fakeAccess{})
	rr, _ := doJSON(t, h, http.MethodPost, "/api/v1/purchases", `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestInitiateEndpointConflictCarriesPurchaseID(t *testing.T) {
	ledger := &fakeLedger{
		InitiateFunc: func(ctx context.Context, userID, imageID string) (*model.Purchase, *adapter.Order, error) {
			return nil, nil, domain.Conflict(domain.ErrAlreadyInitiated, "01J0OPEN")
		},
	}
	h := newTestRouter(ledger, &fakeAccess{})

	rr, out := doJSON(t, h, http.MethodPost, "/api/v1/purchases", `{"user_id":"u1","image_id":"img-1"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d", rr.Code)
	}
	if out["purchase_id"] != "01J0OPEN" {
		t.Fatalf("body = %v, want purchase_id of the open record", out)
	}
}

func TestConfirmEndpointStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"unknown order", domain.ErrNotFound, http.StatusNotFound},
		{"bad signature", domain.ErrVerificationFailed, http.StatusUnprocessableEntity},
		{"duplicate payment", domain.Conflict(domain.ErrDuplicatePayment, "01J0HOLD"), http.StatusConflict},
		{"settled with other payment", domain.Conflict(domain.ErrInvalidState, "01J0DONE"), http.StatusConflict},
		{"gateway down", domain.ErrGatewayUnavailable, http.StatusBadGateway},
		{"storage failure", domain.ErrOperationFailed, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ledger := &fakeLedger{
				CompleteFunc: func(ctx context.Context, orderRef, paymentRef, signature string) (*model.Purchase, error) {
					return nil, tc.err
				},
			}
			h := newTestRouter(ledger, &fakeAccess{})
			rr, out := doJSON(t, h, http.MethodPost, "/api/v1/purchases/confirm",
				`{"order_ref":"order_1","payment_ref":"pay_1","signature":"sig"}`)
			if rr.Code != tc.code {
				t.Fatalf("status = %d, want %d", rr.Code, tc.code)
			}
			if tc.code == http.StatusInternalServerError && out["error"] != "internal error" {
				t.Fatalf("internal failures must not leak details, got %v", out["error"])
			}
		})
	}
}

func TestConfirmEndpointSuccess(t *testing.T) {
	ledger := &fakeLedger{
		CompleteFunc: func(ctx context.Context, orderRef, paymentRef, signature string) (*model.Purchase, error) {
			if orderRef != "order_1" || paymentRef != "pay_1" || signature != "sig" {
				t.Fatalf("unexpected args %q %q %q", orderRef, paymentRef, signature)
			}
			return samplePurchase(), nil
		},
	}
	h := newTestRouter(ledger, &fakeAccess{})

	rr, out := doJSON(t, h, http.MethodPost, "/api/v1/purchases/confirm",
		`{"order_ref":"order_1","payment_ref":"pay_1","signature":"sig"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	purchase, _ := out["purchase"].(map[string]any)
	if purchase["status"] != "completed" || purchase["expires_at"] == nil {
		t.Fatalf("purchase view = %v", purchase)
	}
}

func TestGetPurchaseEndpoint(t *testing.T) {
	ledger := &fakeLedger{
		FindByIDFunc: func(ctx context.Context, purchaseID string) (*model.Purchase, error) {
			if purchaseID != "01J0TEST" {
				return nil, domain.ErrNotFound
			}
			return samplePurchase(), nil
		},
	}
	h := newTestRouter(ledger, &fakeAccess{})

	rr, out := doJSON(t, h, http.MethodGet, "/api/v1/purchases/01J0TEST", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	purchase, _ := out["purchase"].(map[string]any)
	if purchase["id"] != "01J0TEST" {
		t.Fatalf("purchase view = %v", purchase)
	}

	rr, _ = doJSON(t, h, http.MethodGet, "/api/v1/purchases/missing", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestAccessCheckEndpoint(t *testing.T) {
	exp := time.Date(2026, 9, 1, 12, 5, 0, 0, time.UTC)
	access := &fakeAccess{
		HasAccessFunc: func(ctx context.Context, userID, imageID string) (model.AccessDecision, error) {
			if userID == "subscriber" {
				return model.AccessDecision{Granted: true, Reason: model.AccessReasonSubscription}, nil
			}
			if userID == "buyer" {
				return model.AccessDecision{Granted: true, Reason: model.AccessReasonOneTime, ExpiresAt: &exp}, nil
			}
			return model.AccessDecision{Granted: false, Reason: model.AccessReasonNoActiveGrant}, nil
		},
	}
	h := newTestRouter(&fakeLedger{}, access)

	rr, out := doJSON(t, h, http.MethodGet, "/api/v1/access?user_id=buyer&image_id=img-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if out["granted"] != true || out["reason"] != "one-time-purchase" || out["expires_at"] == nil {
		t.Fatalf("body = %v", out)
	}

	_, out = doJSON(t, h, http.MethodGet, "/api/v1/access?user_id=stranger&image_id=img-1", "")
	if out["granted"] != false || out["reason"] != "no-active-grant" {
		t.Fatalf("body = %v", out)
	}
}

func TestAccessURLEndpoint(t *testing.T) {
	exp := time.Date(2026, 9, 1, 12, 1, 0, 0, time.UTC)
	access := &fakeAccess{
		SignedURLFunc: func(ctx context.Context, userID, imageID string) (string, *time.Time, error) {
			if userID != "buyer" {
				return "", nil, &domain.AccessDeniedError{Reason: "expired"}
			}
			return "https://cdn.test/img-1.jpg?expires=1&sig=x", &exp, nil
		},
	}
	h := newTestRouter(&fakeLedger{}, access)

	rr, out := doJSON(t, h, http.MethodGet, "/api/v1/access/url?user_id=buyer&image_id=img-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.HasPrefix(out["url"].(string), "https://cdn.test/img-1.jpg?") {
		t.Fatalf("body = %v", out)
	}

	rr, out = doJSON(t, h, http.MethodGet, "/api/v1/access/url?user_id=stranger&image_id=img-1", "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rr.Code)
	}
	if msg, _ := out["error"].(string); !strings.Contains(msg, "expired") {
		t.Fatalf("body = %v", out)
	}
}
