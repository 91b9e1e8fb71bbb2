package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/gateway"
)

func testAdapter(t *testing.T, baseURL string, timeout time.Duration) *Adapter {
	t.Helper()
	cfg := &domain.RedirectProviderConfig{
		BaseURL:      baseURL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}
	return NewAdapter("paypal", cfg, timeout, "https://shop.example.com/checkout/return", "https://shop.example.com/checkout/cancel", zap.NewNop())
}

func providerServer(t *testing.T, captureStatus string, captureHTTPStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "test-token", "token_type": "Bearer"})
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "EXT-123",
			"status": "CREATED",
			"links": []map[string]string{
				{"href": "https://provider.example.com/self", "rel": "self"},
				{"href": "https://provider.example.com/approve/EXT-123", "rel": "approve"},
			},
		})
	})
	mux.HandleFunc("/v2/checkout/orders/EXT-123/capture", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(captureHTTPStatus)
		json.NewEncoder(w).Encode(map[string]string{"id": "EXT-123", "status": captureStatus})
	})
	return httptest.NewServer(mux)
}

func TestCreatePayment(t *testing.T) {
	srv := providerServer(t, "COMPLETED", http.StatusCreated)
	defer srv.Close()

	a := testAdapter(t, srv.URL, 2*time.Second)
	redirect, err := a.CreatePayment(context.Background(), &gateway.CreateRequest{
		OrderID:     "order-1",
		Amount:      decimal.NewFromFloat(49.99),
		Currency:    "USD",
		Description: "digital goods",
		Items:       []gateway.LineItem{{Name: "e-book", Quantity: 1, UnitPrice: decimal.NewFromFloat(49.99)}},
	})
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}
	if redirect.ExternalRef != "EXT-123" {
		t.Errorf("expected external ref EXT-123, got %s", redirect.ExternalRef)
	}
	if redirect.URL != "https://provider.example.com/approve/EXT-123" {
		t.Errorf("unexpected approval URL %s", redirect.URL)
	}
}

func TestConfirmPaymentCompleted(t *testing.T) {
	srv := providerServer(t, "COMPLETED", http.StatusCreated)
	defer srv.Close()

	a := testAdapter(t, srv.URL, 2*time.Second)
	conf, err := a.ConfirmPayment(context.Background(), "EXT-123")
	if err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}
	if conf.ExternalRef != "EXT-123" {
		t.Errorf("expected external ref EXT-123, got %s", conf.ExternalRef)
	}
}

func TestConfirmPaymentDeclined(t *testing.T) {
	srv := providerServer(t, "DECLINED", http.StatusCreated)
	defer srv.Close()

	a := testAdapter(t, srv.URL, 2*time.Second)
	_, err := a.ConfirmPayment(context.Background(), "EXT-123")
	if !errors.Is(err, gateway.ErrCaptureFailed) {
		t.Errorf("expected ErrCaptureFailed, got %v", err)
	}
}

func TestConfirmPaymentBadRequestIsCaptureFailure(t *testing.T) {
	srv := providerServer(t, "", http.StatusUnprocessableEntity)
	defer srv.Close()

	a := testAdapter(t, srv.URL, 2*time.Second)
	_, err := a.ConfirmPayment(context.Background(), "EXT-123")
	if !errors.Is(err, gateway.ErrCaptureFailed) {
		t.Errorf("expected ErrCaptureFailed, got %v", err)
	}
}

func TestProviderErrorsAreUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := testAdapter(t, srv.URL, 2*time.Second)
	_, err := a.ConfirmPayment(context.Background(), "EXT-123")
	if !errors.Is(err, gateway.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestTimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	a := testAdapter(t, srv.URL, 20*time.Millisecond)
	_, err := a.ConfirmPayment(context.Background(), "EXT-123")
	if !errors.Is(err, gateway.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable on timeout, got %v", err)
	}
}
