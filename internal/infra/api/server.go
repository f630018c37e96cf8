package api

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"video-gate-platform/internal/usecase"
)

// Server wires the gateway's browser-redirect callback to the purchase
// ledger. The JSON API lives in apiv1; this route renders a human-readable
// result page after checkout.
type Server struct {
	ledger  usecase.LedgerUseCase
	cbPath  string
	siteURL string
}

// NewServer constructs the callback layer. callbackPath must match the
// redirect URL registered with the payment provider.
func NewServer(ledger usecase.LedgerUseCase, callbackPath, siteURL string) *Server {
	if callbackPath == "" {
		callbackPath = "/payment/callback"
	}
	return &Server{ledger: ledger, cbPath: callbackPath, siteURL: siteURL}
}

// Register attaches the callback and health handlers to the router.
func (s *Server) Register(r chi.Router) {
	r.Get(s.cbPath, s.handleCallback)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	orderRef := q.Get("order_ref")
	paymentRef := q.Get("payment_ref")
	signature := q.Get("signature")

	if orderRef == "" {
		s.renderHTML(w, http.StatusBadRequest, false, "missing order reference")
		return
	}

	// Confirmation is idempotent inside the ledger: a replayed redirect for
	// an already-completed purchase still lands on the success page.
	rec, err := s.ledger.Complete(ctx, orderRef, paymentRef, signature)
	if err != nil {
		s.renderHTML(w, http.StatusBadRequest, false, fmt.Sprintf("payment could not be confirmed: %v", err))
		return
	}
	msg := "payment confirmed. the image is unlocked"
	if rec.ExpiresAt != nil {
		msg = fmt.Sprintf("payment confirmed. the image is unlocked until %s", rec.ExpiresAt.Format(time.RFC1123))
	}
	s.renderHTML(w, http.StatusOK, true, msg)
}

var page = template.Must(template.New("cb").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>Payment {{if .OK}}Success{{else}}Result{{end}}</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.ok{color:#057a55} .fail{color:#b00020}
.btn{display:inline-block;margin-top:16px;padding:10px 16px;border-radius:8px;border:1px solid #888;text-decoration:none}
.small{font-size:12px;color:#666}
</style>
</head>
<body>
<div class="card">
  <h2 class="{{if .OK}}ok{{else}}fail{{end}}">{{if .OK}}✅ Payment Successful{{else}}⚠️ Payment Processed{{end}}</h2>
  <p>{{.Msg}}</p>
  {{if .SiteURL}}
    <a class="btn" href="{{.SiteURL}}">Back to the video</a>
    <div class="small">If this button doesn't work, return to the tab you started checkout from.</div>
  {{end}}
</div>
</body>
</html>`))

func (s *Server) renderHTML(w http.ResponseWriter, code int, ok bool, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_ = page.Execute(w, struct {
		OK      bool
		Msg     string
		SiteURL string
	}{
		OK:      ok,
		Msg:     msg,
		SiteURL: s.siteURL,
	})
}
