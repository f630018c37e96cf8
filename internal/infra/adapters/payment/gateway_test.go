//go:build !integration

package payment

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"video-gate-platform/internal/domain"
)

func TestRazorpayCreateOrder(t *testing.T) {
	var gotAuth, gotBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_ABC123","amount":4900,"currency":"INR","status":"created"}`))
	}))
	defer ts.Close()

	g, err := NewRazorpayGateway("rzp_test_key", "rzp_secret", ts.URL, time.Second)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	order, err := g.CreateOrder(context.Background(), 4900, "INR", map[string]interface{}{"user_id": "u1"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Ref != "order_ABC123" || order.Amount != 4900 {
		t.Fatalf("order = %+v", order)
	}
	if order.Raw["key_id"] != "rzp_test_key" {
		t.Fatalf("raw payload = %v", order.Raw)
	}
	if !strings.HasPrefix(gotAuth, "Basic ") {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if !strings.Contains(gotBody, `"amount":4900`) || !strings.Contains(gotBody, `"user_id":"u1"`) {
		t.Fatalf("request body = %s", gotBody)
	}
}

func TestRazorpayCreateOrderProviderErrors(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"code":"BAD_REQUEST_ERROR"}}`, http.StatusBadRequest)
		}))
		defer ts.Close()

		g, _ := NewRazorpayGateway("k", "s", ts.URL, time.Second)
		if _, err := g.CreateOrder(context.Background(), 4900, "INR", nil); !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("unreachable host", func(t *testing.T) {
		g, _ := NewRazorpayGateway("k", "s", "http://127.0.0.1:1", 200*time.Millisecond)
		if _, err := g.CreateOrder(context.Background(), 4900, "INR", nil); !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("response missing id", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"amount":4900}`))
		}))
		defer ts.Close()

		g, _ := NewRazorpayGateway("k", "s", ts.URL, time.Second)
		if _, err := g.CreateOrder(context.Background(), 4900, "INR", nil); !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestRazorpayVerifyPayment(t *testing.T) {
	g, _ := NewRazorpayGateway("k", "secret-1", "", time.Second)

	good := signConfirmation("secret-1", "order_1", "pay_1")

	cases := []struct {
		name      string
		order     string
		payment   string
		signature string
		want      bool
	}{
		{"valid signature", "order_1", "pay_1", good, true},
		{"uppercase hex accepted", "order_1", "pay_1", strings.ToUpper(good), true},
		{"wrong payment ref", "order_1", "pay_2", good, false},
		{"wrong secret", "order_1", "pay_1", signConfirmation("other", "order_1", "pay_1"), false},
		{"empty signature", "order_1", "pay_1", "", false},
		{"empty order ref", "", "pay_1", good, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := g.VerifyPayment(context.Background(), tc.order, tc.payment, tc.signature)
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if ok != tc.want {
				t.Fatalf("ok = %v, want %v", ok, tc.want)
			}
		})
	}
}

func TestNewRazorpayGatewayValidation(t *testing.T) {
	if _, err := NewRazorpayGateway("", "s", "", 0); err == nil {
		t.Fatal("expected error for empty key id")
	}
	if _, err := NewRazorpayGateway("k", "", "", 0); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestNoopGatewayRoundtrip(t *testing.T) {
	g := NewNoopGateway()

	order, err := g.CreateOrder(context.Background(), 500, "INR", nil)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	ok, err := g.VerifyPayment(context.Background(), order.Ref, "pay_1", g.Sign(order.Ref, "pay_1"))
	if err != nil || !ok {
		t.Fatalf("verify own signature = (%v, %v)", ok, err)
	}

	if ok, _ := g.VerifyPayment(context.Background(), order.Ref, "pay_1", "forged"); ok {
		t.Fatal("forged signature accepted")
	}
	if ok, _ := g.VerifyPayment(context.Background(), "order_ghost", "pay_1", g.Sign("order_ghost", "pay_1")); ok {
		t.Fatal("unknown order accepted")
	}
	if ok, _ := g.VerifyPayment(context.Background(), order.Ref, "", g.Sign(order.Ref, "")); ok {
		t.Fatal("empty payment ref accepted")
	}
}
