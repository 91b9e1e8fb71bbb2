// Package paypal implements the redirect-based provider adapter: OAuth
// client-credentials token exchange, order creation keyed to the internal
// order id, and capture on the buyer's return.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/gateway"
)

type Adapter struct {
	name      string
	cfg       *domain.RedirectProviderConfig
	client    *http.Client
	returnURL string
	cancelURL string
	logger    *zap.Logger
}

func NewAdapter(name string, cfg *domain.RedirectProviderConfig, timeout time.Duration, returnURL, cancelURL string, l *zap.Logger) *Adapter {
	return &Adapter{
		name:      name,
		cfg:       cfg,
		client:    &http.Client{Timeout: timeout},
		returnURL: returnURL,
		cancelURL: cancelURL,
		logger:    l,
	}
}

func (a *Adapter) Name() string { return a.name }

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (a *Adapter) fetchToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(a.cfg.ClientID, a.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("Token exchange request failed", zap.String("gateway", a.name), zap.Error(err))
		return "", fmt.Errorf("%w: token exchange: %v", gateway.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading token response: %v", gateway.ErrProviderUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		a.logger.Error("Token exchange returned non-OK status",
			zap.String("gateway", a.name),
			zap.Int("status", resp.StatusCode))
		return "", fmt.Errorf("%w: token endpoint status %d", gateway.ErrProviderUnavailable, resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil || tok.AccessToken == "" {
		return "", fmt.Errorf("%w: malformed token response", gateway.ErrProviderUnavailable)
	}
	return tok.AccessToken, nil
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

func (a *Adapter) CreatePayment(ctx context.Context, req *gateway.CreateRequest) (*gateway.Redirect, error) {
	token, err := a.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{{
			"reference_id": req.OrderID,
			"description":  req.Description,
			"amount": map[string]string{
				"currency_code": req.Currency,
				"value":         req.Amount.StringFixed(2),
			},
		}},
		"application_context": map[string]string{
			"return_url": a.returnURL,
			"cancel_url": a.cancelURL,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal provider order payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build provider order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		a.logger.Error("Provider order creation request failed",
			zap.String("gateway", a.name),
			zap.String("order_id", req.OrderID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: create order: %v", gateway.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading create response: %v", gateway.ErrProviderUnavailable, err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		a.logger.Error("Provider order creation returned non-success status",
			zap.String("gateway", a.name),
			zap.String("order_id", req.OrderID),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: create order status %d", gateway.ErrProviderUnavailable, resp.StatusCode)
	}

	var created orderResponse
	if err := json.Unmarshal(respBody, &created); err != nil || created.ID == "" {
		return nil, fmt.Errorf("%w: malformed create response", gateway.ErrProviderUnavailable)
	}

	approvalURL := ""
	for _, link := range created.Links {
		if link.Rel == "approve" {
			approvalURL = link.Href
			break
		}
	}
	if approvalURL == "" {
		return nil, fmt.Errorf("%w: no approval link in create response", gateway.ErrProviderUnavailable)
	}

	a.logger.Info("Provider order created",
		zap.String("gateway", a.name),
		zap.String("order_id", req.OrderID),
		zap.String("external_ref", created.ID))

	return &gateway.Redirect{ExternalRef: created.ID, URL: approvalURL, RawPayload: respBody}, nil
}

type captureResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (a *Adapter) ConfirmPayment(ctx context.Context, externalRef string) (*gateway.Confirmation, error) {
	token, err := a.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	captureURL := fmt.Sprintf("%s/v2/checkout/orders/%s/capture", a.cfg.BaseURL, externalRef)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, captureURL, bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, fmt.Errorf("failed to build capture request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		a.logger.Error("Capture request failed",
			zap.String("gateway", a.name),
			zap.String("external_ref", externalRef),
			zap.Error(err))
		return nil, fmt.Errorf("%w: capture: %v", gateway.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading capture response: %v", gateway.ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: capture status %d", gateway.ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		a.logger.Warn("Capture declined by provider",
			zap.String("gateway", a.name),
			zap.String("external_ref", externalRef),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: capture status %d", gateway.ErrCaptureFailed, resp.StatusCode)
	}

	var captured captureResponse
	if err := json.Unmarshal(respBody, &captured); err != nil {
		return nil, fmt.Errorf("%w: malformed capture response", gateway.ErrProviderUnavailable)
	}
	if captured.Status != "COMPLETED" {
		a.logger.Warn("Capture finished in non-completed status",
			zap.String("gateway", a.name),
			zap.String("external_ref", externalRef),
			zap.String("provider_status", captured.Status))
		return nil, fmt.Errorf("%w: provider status %s", gateway.ErrCaptureFailed, captured.Status)
	}

	a.logger.Info("Payment captured",
		zap.String("gateway", a.name),
		zap.String("external_ref", externalRef))

	return &gateway.Confirmation{ExternalRef: externalRef, RawPayload: respBody}, nil
}
