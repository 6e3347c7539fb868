package express

import (
	"testing"

	"github.com/oakmarket/expresspay/internal/config"
	"github.com/oakmarket/expresspay/pkg/types"
)

func TestZoneRater(t *testing.T) {
	rater := NewZoneRater([]config.ShippingZone{
		{
			Countries: []string{"gb", "IE"},
			Methods: []config.ShippingMethodConfig{
				{Code: "royal-mail", Name: "Royal Mail", Charge: "2.99"},
				{Code: "courier", Name: "Next Day Courier", Charge: "9.99"},
				{Code: "broken", Name: "Broken", Charge: "not-a-number"},
			},
		},
	})

	methods, err := rater.Rate(1, types.PartialAddress{CountryCode: "GB"})
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if len(methods) != 2 {
		t.Fatalf("len = %d, want 2 (bad charge dropped)", len(methods))
	}
	if methods[0].Code != "royal-mail" {
		t.Fatalf("default method = %s", methods[0].Code)
	}
	if got := methods[1].ChargeInclTax.StringFixed(2); got != "9.99" {
		t.Fatalf("charge = %s", got)
	}

	// Country match is case-insensitive on both sides.
	methods, _ = rater.Rate(1, types.PartialAddress{CountryCode: "ie"})
	if len(methods) != 2 {
		t.Fatalf("len = %d, want 2", len(methods))
	}

	methods, _ = rater.Rate(1, types.PartialAddress{CountryCode: "AQ"})
	if len(methods) != 0 {
		t.Fatalf("len = %d, want 0 for an unserved country", len(methods))
	}
}
