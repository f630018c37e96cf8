package web

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"video-gate-platform/internal/usecase"
)

// Server is the operator-facing admin API: refunds, stats, catalog upkeep
// and subscription upserts. Requests authenticate with either the static
// bearer key or a short-lived JWT session minted by /login.
type Server struct {
	ledger    usecase.LedgerUseCase
	statsUC   usecase.StatsUseCase
	catalogUC usecase.CatalogUseCase
	subAdmin  SubscriptionAdmin
	auth      *AuthManager
	apiKey    string
	log       *zerolog.Logger
}

func NewServer(
	ledger usecase.LedgerUseCase,
	statsUC usecase.StatsUseCase,
	catalogUC usecase.CatalogUseCase,
	subAdmin SubscriptionAdmin,
	auth *AuthManager,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "AdminWeb").Logger()
	return &Server{
		ledger:    ledger,
		statsUC:   statsUC,
		catalogUC: catalogUC,
		subAdmin:  subAdmin,
		auth:      auth,
		apiKey:    apiKey,
		log:       &l,
	}
}

// RegisterRoutes sets up the routing for the admin API.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/login", s.handleLogin)
	mux.HandleFunc("/api/v1/logout", s.handleLogout)

	mux.Handle("/api/v1/stats", s.authMiddleware(statsHandler(s.statsUC)))

	purchasesRouter := s.authMiddleware(s.purchasesRouter())
	mux.Handle("/api/v1/purchases/", purchasesRouter)

	imagesRouter := s.authMiddleware(s.imagesRouter())
	mux.Handle("/api/v1/images", imagesRouter)
	mux.Handle("/api/v1/images/", imagesRouter)

	mux.Handle("/api/v1/videos", s.authMiddleware(videoCreateHandler(s.catalogUC)))
	mux.Handle("/api/v1/subscriptions", s.authMiddleware(subscriptionUpsertHandler(s.subAdmin)))
}

// authMiddleware accepts the static admin key or a minted session token.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		if hdr := r.Header.Get("Authorization"); hdr != "" {
			parts := strings.Split(hdr, " ")
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") && parts[1] == s.apiKey {
				next.ServeHTTP(w, r)
				return
			}
		}

		if s.auth != nil {
			if _, err := s.auth.ParseFromRequest(r); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

// handleLogin exchanges the static key for a cookie session so browser-based
// dashboards don't have to hold the key in page scripts.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.apiKey == "" || s.auth == nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	key := r.Header.Get("X-Admin-Key")
	if key == "" {
		if hdr := r.Header.Get("Authorization"); hdr != "" {
			parts := strings.Split(hdr, " ")
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				key = parts[1]
			}
		}
	}
	if key != s.apiKey {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if _, err := s.auth.Mint(w); err != nil {
		s.log.Error().Err(err).Msg("mint session failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.auth != nil {
		s.auth.Clear(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

// purchasesRouter handles /api/v1/purchases/{id} and /api/v1/purchases/{id}/refund
func (s *Server) purchasesRouter() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/purchases/")
		path = strings.TrimSuffix(path, "/")

		if id, ok := strings.CutSuffix(path, "/refund"); ok {
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			refundHandler(s.ledger, id)(w, r)
			return
		}

		if r.Method != http.MethodGet || path == "" || strings.Contains(path, "/") {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		purchaseGetHandler(s.ledger, path)(w, r)
	})
}

// imagesRouter handles /api/v1/images (POST) and /api/v1/images/{id}/price (PUT)
func (s *Server) imagesRouter() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/images")
		path = strings.Trim(path, "/")

		if path == "" {
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			imageCreateHandler(s.catalogUC)(w, r)
			return
		}

		if id, ok := strings.CutSuffix(path, "/price"); ok {
			if r.Method != http.MethodPut {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			imagePriceHandler(s.catalogUC, id)(w, r)
			return
		}

		http.Error(w, "Not found", http.StatusNotFound)
	})
}
