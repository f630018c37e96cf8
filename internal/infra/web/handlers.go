package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"video-gate-platform/internal/domain"
	"video-gate-platform/internal/domain/model"
	"video-gate-platform/internal/domain/ports/repository"
	"video-gate-platform/internal/usecase"
)

// SubscriptionAdmin is the slice of the subscription store the admin surface
// needs. The postgres repository satisfies it directly.
type SubscriptionAdmin interface {
	Upsert(ctx context.Context, tx repository.Tx, sub *model.Subscription) error
}

// statsHandler returns an http.HandlerFunc that serves ledger statistics.
func statsHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		byStatus, activeSubs, err := statsUC.Totals(ctx)
		if err != nil {
			http.Error(w, "Failed to get totals", http.StatusInternalServerError)
			return
		}

		week, month, year, err := statsUC.Revenue(ctx)
		if err != nil {
			http.Error(w, "Failed to get revenue", http.StatusInternalServerError)
			return
		}

		response := struct {
			PurchasesByStatus   map[string]int `json:"purchases_by_status"`
			ActiveSubscriptions int            `json:"active_subscriptions"`
			Revenue             struct {
				Week  int64 `json:"week"`
				Month int64 `json:"month"`
				Year  int64 `json:"year"`
			} `json:"revenue_minor"`
		}{
			PurchasesByStatus:   byStatus,
			ActiveSubscriptions: activeSubs,
		}
		response.Revenue.Week = week
		response.Revenue.Month = month
		response.Revenue.Year = year

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

type refundRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// refundHandler reverses a completed purchase. Access is revoked as soon as
// the ledger transition commits.
func refundHandler(ledger usecase.LedgerUseCase, purchaseID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refundRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		rec, err := ledger.Refund(r.Context(), purchaseID, req.Amount, req.Reason)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				http.Error(w, "Purchase not found", http.StatusNotFound)
			case errors.Is(err, domain.ErrInvalidAmount):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, domain.ErrNotCompleted), errors.Is(err, domain.ErrInvalidState):
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, "Failed to refund purchase", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":            rec.ID,
			"status":        string(rec.Status),
			"refund_amount": rec.RefundAmount,
			"refund_reason": rec.RefundReason,
		})
	}
}

func purchaseGetHandler(ledger usecase.LedgerUseCase, purchaseID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := ledger.FindByID(r.Context(), purchaseID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "Purchase not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to load purchase", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rec)
	}
}

type videoCreateRequest struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

func videoCreateHandler(catalogUC usecase.CatalogUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req videoCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		video := &model.Video{ID: req.ID, Title: req.Title, URL: req.URL, CreatedAt: time.Now()}
		if err := catalogUC.CreateVideo(r.Context(), video); err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "Failed to create video", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(video)
	}
}

type imageCreateRequest struct {
	ID         string `json:"id"`
	VideoID    string `json:"video_id"`
	URL        string `json:"url"`
	PriceMinor int64  `json:"price_minor"`
	Currency   string `json:"currency"`
}

func imageCreateHandler(catalogUC usecase.CatalogUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req imageCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		now := time.Now()
		img := &model.GatedImage{
			ID:         req.ID,
			VideoID:    req.VideoID,
			URL:        req.URL,
			PriceMinor: req.PriceMinor,
			Currency:   req.Currency,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := catalogUC.CreateImage(r.Context(), img); err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "Failed to create image", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(img)
	}
}

type imagePriceRequest struct {
	PriceMinor int64 `json:"price_minor"`
}

func imagePriceHandler(catalogUC usecase.CatalogUseCase, imageID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req imagePriceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := catalogUC.SetImagePrice(r.Context(), imageID, req.PriceMinor); err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidArgument):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, domain.ErrNotFound):
				http.Error(w, "Image not found", http.StatusNotFound)
			default:
				http.Error(w, "Failed to update price", http.StatusInternalServerError)
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type subscriptionUpsertRequest struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Plan      string    `json:"plan"`
	Status    string    `json:"status"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// subscriptionUpsertHandler mirrors entitlement records pushed by the account
// system, and doubles as the dev/seeding path.
func subscriptionUpsertHandler(subAdmin SubscriptionAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req subscriptionUpsertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.ID == "" || req.UserID == "" || req.EndDate.IsZero() {
			http.Error(w, "id, user_id and end_date are required", http.StatusBadRequest)
			return
		}
		now := time.Now()
		sub := &model.Subscription{
			ID:        req.ID,
			UserID:    req.UserID,
			Plan:      req.Plan,
			Status:    model.SubscriptionStatus(req.Status),
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := subAdmin.Upsert(r.Context(), repository.NoTX, sub); err != nil {
			http.Error(w, "Failed to upsert subscription", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
