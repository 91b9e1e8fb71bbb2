// Package fees splits an order subtotal into the gateway fee, the platform
// commission and the seller's net proceeds.
package fees

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

var (
	ErrInvalidSchedule    = errors.New("invalid fee schedule")
	ErrFeesExceedSubtotal = errors.New("fees exceed order subtotal")
)

var hundred = decimal.NewFromInt(100)

// Breakdown holds unrounded fee components. Rounding happens once, at the
// persistence boundary, via Round.
type Breakdown struct {
	GatewayFee  decimal.Decimal
	PlatformFee decimal.Decimal
	SellerFee   decimal.Decimal
}

// Compute derives the fee split for a subtotal. A zero subtotal yields a zero
// breakdown. A schedule whose fees would leave the seller with a negative net
// is a configuration error and is rejected, never clamped.
func Compute(subtotal decimal.Decimal, schedule domain.FeeSchedule, platformRate decimal.Decimal) (Breakdown, error) {
	if subtotal.IsNegative() {
		return Breakdown{}, fmt.Errorf("%w: negative subtotal", ErrInvalidSchedule)
	}
	if schedule.Fixed.IsNegative() || schedule.Percent.IsNegative() || schedule.Percent.GreaterThanOrEqual(hundred) {
		return Breakdown{}, fmt.Errorf("%w: fixed=%s percent=%s", ErrInvalidSchedule, schedule.Fixed, schedule.Percent)
	}
	if platformRate.IsNegative() || platformRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Breakdown{}, fmt.Errorf("%w: platform rate %s", ErrInvalidSchedule, platformRate)
	}

	if subtotal.IsZero() {
		return Breakdown{GatewayFee: decimal.Zero, PlatformFee: decimal.Zero, SellerFee: decimal.Zero}, nil
	}

	gatewayFee := schedule.Fixed.Add(subtotal.Mul(schedule.Percent).Div(hundred))
	platformFee := subtotal.Mul(platformRate)
	sellerFee := subtotal.Sub(gatewayFee).Sub(platformFee)
	if sellerFee.IsNegative() {
		return Breakdown{}, fmt.Errorf("%w: subtotal=%s gateway=%s platform=%s",
			ErrFeesExceedSubtotal, subtotal, gatewayFee, platformFee)
	}

	return Breakdown{GatewayFee: gatewayFee, PlatformFee: platformFee, SellerFee: sellerFee}, nil
}

// Round rounds the breakdown to currency precision. The seller component is
// derived from the rounded subtotal minus the rounded fees so that the three
// parts always sum exactly to the rounded subtotal.
func (b Breakdown) Round(subtotal decimal.Decimal) Breakdown {
	gatewayFee := b.GatewayFee.Round(2)
	platformFee := b.PlatformFee.Round(2)
	return Breakdown{
		GatewayFee:  gatewayFee,
		PlatformFee: platformFee,
		SellerFee:   subtotal.Round(2).Sub(gatewayFee).Sub(platformFee),
	}
}
