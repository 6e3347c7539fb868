package express

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/oakmarket/expresspay/internal/config"
	"github.com/oakmarket/expresspay/pkg/types"
)

// ZoneRater answers the instant-update callback with flat-rate methods per
// destination country. It does only local table lookups, so it stays well
// inside PayPal's callback timeout.
type ZoneRater struct {
	zones map[string][]types.ShippingMethod
}

func NewZoneRater(zones []config.ShippingZone) *ZoneRater {
	r := &ZoneRater{zones: make(map[string][]types.ShippingMethod)}
	for _, zone := range zones {
		methods := make([]types.ShippingMethod, 0, len(zone.Methods))
		for _, m := range zone.Methods {
			charge, err := decimal.NewFromString(m.Charge)
			if err != nil {
				continue
			}
			methods = append(methods, types.ShippingMethod{
				Code:          m.Code,
				Name:          m.Name,
				Description:   m.Description,
				ChargeInclTax: charge,
			})
		}
		for _, country := range zone.Countries {
			r.zones[strings.ToUpper(country)] = methods
		}
	}
	return r
}

// Rate returns the methods for the address's country, or nothing when we
// do not ship there. The basket id is accepted for raters that price per
// basket; flat rates ignore it.
func (r *ZoneRater) Rate(_ int64, addr types.PartialAddress) ([]types.ShippingMethod, error) {
	return r.zones[strings.ToUpper(addr.CountryCode)], nil
}
