// Package stripe implements the hosted-session provider adapter: a checkout
// session is created from the cart line items and verified on the buyer's
// return by retrieving its payment status.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/gateway"
)

// Hosted-session amounts are integer minor units (cents).
var centsPerUnit = decimal.NewFromInt(100)

type Adapter struct {
	name       string
	cfg        *domain.SessionProviderConfig
	client     *http.Client
	successURL string
	cancelURL  string
	logger     *zap.Logger
}

func NewAdapter(name string, cfg *domain.SessionProviderConfig, timeout time.Duration, successURL, cancelURL string, l *zap.Logger) *Adapter {
	return &Adapter{
		name:       name,
		cfg:        cfg,
		client:     &http.Client{Timeout: timeout},
		successURL: successURL,
		cancelURL:  cancelURL,
		logger:     l,
	}
}

func (a *Adapter) Name() string { return a.name }

type sessionResponse struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentStatus string `json:"payment_status"`
}

func (a *Adapter) CreatePayment(ctx context.Context, req *gateway.CreateRequest) (*gateway.Redirect, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", req.OrderID)
	form.Set("customer_email", req.BuyerEmail)
	// The session id placeholder is expanded by the provider on redirect, so
	// the return handler receives the correlation reference directly.
	form.Set("success_url", a.successURL+"?ref={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", a.cancelURL+"?ref={CHECKOUT_SESSION_ID}")
	currency := strings.ToLower(req.Currency)
	for i, item := range req.Items {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
		form.Set(prefix+"[price_data][currency]", currency)
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
		form.Set(prefix+"[price_data][unit_amount]", item.UnitPrice.Mul(centsPerUnit).StringFixed(0))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build session request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.SecretKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		a.logger.Error("Session creation request failed",
			zap.String("gateway", a.name),
			zap.String("order_id", req.OrderID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: create session: %v", gateway.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading session response: %v", gateway.ErrProviderUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		a.logger.Error("Session creation returned non-OK status",
			zap.String("gateway", a.name),
			zap.String("order_id", req.OrderID),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: session endpoint status %d", gateway.ErrProviderUnavailable, resp.StatusCode)
	}

	var session sessionResponse
	if err := json.Unmarshal(respBody, &session); err != nil || session.ID == "" || session.URL == "" {
		return nil, fmt.Errorf("%w: malformed session response", gateway.ErrProviderUnavailable)
	}

	a.logger.Info("Checkout session created",
		zap.String("gateway", a.name),
		zap.String("order_id", req.OrderID),
		zap.String("external_ref", session.ID))

	return &gateway.Redirect{ExternalRef: session.ID, URL: session.URL, RawPayload: respBody}, nil
}

func (a *Adapter) ConfirmPayment(ctx context.Context, externalRef string) (*gateway.Confirmation, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+"/v1/checkout/sessions/"+externalRef, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build session retrieve request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.SecretKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		a.logger.Error("Session retrieve request failed",
			zap.String("gateway", a.name),
			zap.String("external_ref", externalRef),
			zap.Error(err))
		return nil, fmt.Errorf("%w: retrieve session: %v", gateway.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading retrieve response: %v", gateway.ErrProviderUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: retrieve status %d", gateway.ErrProviderUnavailable, resp.StatusCode)
	}

	var session sessionResponse
	if err := json.Unmarshal(respBody, &session); err != nil || session.ID == "" {
		return nil, fmt.Errorf("%w: malformed retrieve response", gateway.ErrProviderUnavailable)
	}
	if session.PaymentStatus != "paid" {
		a.logger.Warn("Session not paid",
			zap.String("gateway", a.name),
			zap.String("external_ref", externalRef),
			zap.String("payment_status", session.PaymentStatus))
		return nil, fmt.Errorf("%w: payment status %q", gateway.ErrPaymentNotCompleted, session.PaymentStatus)
	}

	a.logger.Info("Session verified as paid",
		zap.String("gateway", a.name),
		zap.String("external_ref", externalRef))

	return &gateway.Confirmation{ExternalRef: externalRef, RawPayload: respBody}, nil
}
