package fees

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

func schedule(fixed, percent string) domain.FeeSchedule {
	return domain.FeeSchedule{
		Fixed:   decimal.RequireFromString(fixed),
		Percent: decimal.RequireFromString(percent),
	}
}

func TestComputeStandardSplit(t *testing.T) {
	// $100 order, $0.30 + 3% gateway, 10% platform.
	subtotal := decimal.NewFromInt(100)
	b, err := Compute(subtotal, schedule("0.30", "3"), decimal.RequireFromString("0.10"))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	b = b.Round(subtotal)

	if want := decimal.RequireFromString("3.30"); !b.GatewayFee.Equal(want) {
		t.Errorf("gateway fee: want %s, got %s", want, b.GatewayFee)
	}
	if want := decimal.RequireFromString("10.00"); !b.PlatformFee.Equal(want) {
		t.Errorf("platform fee: want %s, got %s", want, b.PlatformFee)
	}
	if want := decimal.RequireFromString("86.70"); !b.SellerFee.Equal(want) {
		t.Errorf("seller amount: want %s, got %s", want, b.SellerFee)
	}
}

func TestComputeZeroSubtotal(t *testing.T) {
	b, err := Compute(decimal.Zero, schedule("0.30", "3"), decimal.RequireFromString("0.10"))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if !b.GatewayFee.IsZero() || !b.PlatformFee.IsZero() || !b.SellerFee.IsZero() {
		t.Errorf("expected all-zero breakdown, got %+v", b)
	}
}

func TestComputeRejectsFeesExceedingSubtotal(t *testing.T) {
	_, err := Compute(decimal.NewFromInt(1), schedule("5.00", "3"), decimal.RequireFromString("0.10"))
	if !errors.Is(err, ErrFeesExceedSubtotal) {
		t.Errorf("expected ErrFeesExceedSubtotal, got %v", err)
	}
}

func TestComputeRejectsInvalidSchedules(t *testing.T) {
	cases := []struct {
		name     string
		subtotal string
		fixed    string
		percent  string
		rate     string
	}{
		{"negative subtotal", "-1", "0.30", "3", "0.10"},
		{"negative fixed fee", "100", "-0.30", "3", "0.10"},
		{"negative percent", "100", "0.30", "-3", "0.10"},
		{"percent at 100", "100", "0.30", "100", "0.10"},
		{"platform rate at 1", "100", "0.30", "3", "1"},
		{"negative platform rate", "100", "0.30", "3", "-0.10"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compute(
				decimal.RequireFromString(tc.subtotal),
				schedule(tc.fixed, tc.percent),
				decimal.RequireFromString(tc.rate),
			)
			if !errors.Is(err, ErrInvalidSchedule) {
				t.Errorf("expected ErrInvalidSchedule, got %v", err)
			}
		})
	}
}

func TestRoundedPartsSumToSubtotal(t *testing.T) {
	rate := decimal.RequireFromString("0.10")
	sched := schedule("0.30", "2.9")
	subtotals := []string{"0.01", "1", "9.99", "33.33", "100", "123.45", "9999.99"}

	for _, s := range subtotals {
		subtotal := decimal.RequireFromString(s)
		b, err := Compute(subtotal, sched, rate)
		if err != nil {
			t.Fatalf("Compute(%s) failed: %v", s, err)
		}
		rounded := b.Round(subtotal)
		sum := rounded.GatewayFee.Add(rounded.PlatformFee).Add(rounded.SellerFee)
		if !sum.Equal(subtotal.Round(2)) {
			t.Errorf("subtotal %s: parts sum to %s", s, sum)
		}
	}
}
