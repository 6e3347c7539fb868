package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/oakmarket/expresspay/internal/nvp"
	"github.com/oakmarket/expresspay/pkg/types"
)

// noOptionsSentinel tells PayPal "we do not ship here". PayPal requires
// this explicit field; an empty option list is treated as a malformed
// response and falls back to a generic error on the buyer's screen.
const noOptionsSentinel = "NO_SHIPPING_OPTION_DETAILS"

// ShippingRater computes candidate shipping methods for a basket and a
// partial address. The first method returned is the default shown to the
// buyer.
type ShippingRater interface {
	Rate(basketID int64, addr types.PartialAddress) ([]types.ShippingMethod, error)
}

// ShippingOptions answers PayPal's instant-update callback while the buyer
// is choosing an address on PayPal's site. The basket reference is in the
// URL path because PayPal does not reliably echo merchant-chosen fields.
// The response is always 200 with an NVP body; signalling failure to
// PayPal mid-checkout only produces a worse buyer experience than the
// sentinel does.
func (h *Handler) ShippingOptions(w http.ResponseWriter, r *http.Request) {
	basketID, ok := basketIDFromPath(r.URL.Path)
	if !ok {
		h.writeShippingOptions(w, nil)
		return
	}

	addr := types.PartialAddress{
		City:        r.FormValue("SHIPTOCITY"),
		State:       r.FormValue("SHIPTOSTATE"),
		Postcode:    r.FormValue("SHIPTOZIP"),
		CountryCode: r.FormValue("SHIPTOCOUNTRY"),
	}

	var methods []types.ShippingMethod
	if h.Rater != nil {
		var err error
		methods, err = h.Rater.Rate(basketID, addr)
		if err != nil {
			h.logger().Error("shipping rater failed", map[string]any{
				"basket": basketID,
				"error":  err.Error(),
			})
			methods = nil
		}
	}
	h.writeShippingOptions(w, methods)
}

func (h *Handler) writeShippingOptions(w http.ResponseWriter, methods []types.ShippingMethod) {
	fields := &nvp.Fields{}
	fields.Add("METHOD", "CallbackResponse")

	if len(methods) == 0 {
		fields.Add(noOptionsSentinel, "1")
	} else {
		for i, method := range methods {
			fields.AddIndexed("L_SHIPPINGOPTIONNAME", i, method.Code)
			fields.AddIndexed("L_SHIPPINGOPTIONLABEL", i, method.Name)
			fields.AddIndexed("L_SHIPPINGOPTIONAMOUNT", i, nvp.FormatAmount(method.ChargeInclTax))
			fields.AddIndexed("L_TAXAMT", i, "0.00")
			fields.AddIndexed("L_INSURANCEAMOUNT", i, "0.00")
			if i == 0 {
				fields.AddIndexed("L_SHIPPINGOPTIONISDEFAULT", i, "true")
			} else {
				fields.AddIndexed("L_SHIPPINGOPTIONISDEFAULT", i, "false")
			}
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(fields.EncodeForm())
}

// basketIDFromPath extracts the id from /paypal/shipping-options/{id}/.
func basketIDFromPath(path string) (int64, bool) {
	rest := strings.TrimPrefix(path, "/paypal/shipping-options/")
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
