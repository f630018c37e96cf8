// File: internal/infra/api/apiv1/server.go
package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"video-gate-platform/internal/domain"
	"video-gate-platform/internal/domain/model"
	"video-gate-platform/internal/usecase"
)

// Server holds the public v1 handlers: purchase initiation and confirmation,
// access checks, and signed asset URLs.
type Server struct {
	ledger usecase.LedgerUseCase
	access usecase.AccessUseCase
	log    *zerolog.Logger
}

func NewServer(ledger usecase.LedgerUseCase, access usecase.AccessUseCase, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "APIV1").Logger()
	return &Server{ledger: ledger, access: access, log: &l}
}

// RegisterAPIV1 mounts the v1 routes on the given router.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/purchases", s.handleInitiate)
		r.Post("/purchases/confirm", s.handleConfirm)
		r.Get("/purchases/{id}", s.handleGetPurchase)
		r.Get("/access", s.handleAccessCheck)
		r.Get("/access/url", s.handleAccessURL)
	})
}

type initiateRequest struct {
	UserID  string `json:"user_id"`
	ImageID string `json:"image_id"`
}

type purchaseView struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	VideoID    string     `json:"video_id"`
	ImageID    string     `json:"image_id"`
	Amount     int64      `json:"amount"`
	Currency   string     `json:"currency"`
	Method     string     `json:"method"`
	OrderRef   string     `json:"order_ref"`
	Status     string     `json:"status"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toPurchaseView(p *model.Purchase) purchaseView {
	return purchaseView{
		ID:        p.ID,
		UserID:    p.UserID,
		VideoID:   p.VideoID,
		ImageID:   p.ImageID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Method:    string(p.Method),
		OrderRef:  p.OrderRef,
		Status:    string(p.Status),
		ExpiresAt: p.ExpiresAt,
		CreatedAt: p.CreatedAt,
	}
}

func (s *Server) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}
	rec, order, err := s.ledger.Initiate(r.Context(), req.UserID, req.ImageID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"purchase": toPurchaseView(rec),
		"order":    order.Raw,
	})
}

type confirmRequest struct {
	OrderRef   string `json:"order_ref"`
	PaymentRef string `json:"payment_ref"`
	Signature  string `json:"signature"`
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}
	rec, err := s.ledger.Complete(r.Context(), req.OrderRef, req.PaymentRef, req.Signature)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchase": toPurchaseView(rec)})
}

func (s *Server) handleGetPurchase(w http.ResponseWriter, r *http.Request) {
	rec, err := s.ledger.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchase": toPurchaseView(rec)})
}

func (s *Server) handleAccessCheck(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	imageID := r.URL.Query().Get("image_id")
	dec, err := s.access.HasAccess(r.Context(), userID, imageID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"granted":    dec.Granted,
		"reason":     string(dec.Reason),
		"expires_at": dec.ExpiresAt,
	})
}

func (s *Server) handleAccessURL(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	imageID := r.URL.Query().Get("image_id")
	url, expiresAt, err := s.access.SignedAccessURL(r.Context(), userID, imageID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"url":        url,
		"expires_at": expiresAt,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses. Conflicts carry the id of
// the record that holds the pair so clients can poll it instead of retrying.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyGranted),
		errors.Is(err, domain.ErrAlreadyInitiated),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrDuplicatePayment),
		errors.Is(err, domain.ErrNotCompleted):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidAmount):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrVerificationFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrGatewayUnavailable):
		status = http.StatusBadGateway
	}
	body := map[string]any{"error": err.Error()}
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		body["purchase_id"] = conflict.PurchaseID
	}
	if status == http.StatusInternalServerError {
		body["error"] = "internal error"
	}
	writeJSON(w, status, body)
}
