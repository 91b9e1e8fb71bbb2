package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type GatewayKind string

const (
	// GatewayKindOnline gateways capture automatically through a provider
	// redirect or hosted session.
	GatewayKindOnline GatewayKind = "ONLINE"
	// GatewayKindOTC gateways are settled outside the system and require
	// manual admin verification.
	GatewayKindOTC GatewayKind = "OTC"
)

type ProviderKind string

const (
	ProviderNone     ProviderKind = ""
	ProviderRedirect ProviderKind = "REDIRECT"
	ProviderSession  ProviderKind = "SESSION"
)

var ErrInvalidGatewayConfig = errors.New("invalid gateway configuration")

// FeeSchedule is the gateway's cut: a fixed amount plus a percentage of the
// order subtotal.
type FeeSchedule struct {
	Fixed   decimal.Decimal `json:"fixed"`
	Percent decimal.Decimal `json:"percent"`
}

// RedirectProviderConfig configures a PayPal-style provider: the buyer is
// redirected to an approval URL and the payment is captured on return.
type RedirectProviderConfig struct {
	BaseURL      string `json:"base_url"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

func (c *RedirectProviderConfig) Validate() error {
	if c.BaseURL == "" || c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("%w: redirect provider requires base_url, client_id and client_secret", ErrInvalidGatewayConfig)
	}
	return nil
}

// SessionProviderConfig configures a Stripe-style provider: a hosted checkout
// session is created and verified on return.
type SessionProviderConfig struct {
	BaseURL   string `json:"base_url"`
	SecretKey string `json:"secret_key"`
}

func (c *SessionProviderConfig) Validate() error {
	if c.BaseURL == "" || c.SecretKey == "" {
		return fmt.Errorf("%w: session provider requires base_url and secret_key", ErrInvalidGatewayConfig)
	}
	return nil
}

type PaymentGateway struct {
	Name     string
	Kind     GatewayKind
	Provider ProviderKind
	Active   bool
	Fees     FeeSchedule

	// Instructions shown to the buyer for OTC gateways (bank transfer
	// details and the like).
	Instructions string

	Redirect *RedirectProviderConfig
	Session  *SessionProviderConfig
}

// DecodeProviderConfig parses the stored provider config blob into the typed
// variant matching the provider kind. Missing required fields are rejected
// here, at load time, not at first use.
func (g *PaymentGateway) DecodeProviderConfig(raw []byte) error {
	switch g.Provider {
	case ProviderNone:
		if g.Kind != GatewayKindOTC {
			return fmt.Errorf("%w: online gateway %s has no provider", ErrInvalidGatewayConfig, g.Name)
		}
		return nil
	case ProviderRedirect:
		cfg := &RedirectProviderConfig{}
		if err := json.Unmarshal(raw, cfg); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidGatewayConfig, err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		g.Redirect = cfg
		return nil
	case ProviderSession:
		cfg := &SessionProviderConfig{}
		if err := json.Unmarshal(raw, cfg); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidGatewayConfig, err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		g.Session = cfg
		return nil
	default:
		return fmt.Errorf("%w: unknown provider kind %q", ErrInvalidGatewayConfig, g.Provider)
	}
}
