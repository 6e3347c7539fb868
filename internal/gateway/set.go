package gateway

import (
	"context"
	"strconv"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/oakmarket/expresspay/internal/ledger"
	"github.com/oakmarket/expresspay/internal/nvp"
	"github.com/oakmarket/expresspay/pkg/types"
)

// PayPal caps USD transactions. The check is only applied when the
// transaction currency is actually USD.
var usdCeiling = decimal.NewFromInt(10000)

// PayPal truncates item descriptions beyond this.
const maxDescriptionLen = 127

// SetRequest carries everything SetExpressCheckout can express. Optional
// fields are zero values when unused.
type SetRequest struct {
	Basket   types.Basket
	Currency string

	ReturnURL   string
	CancelURL   string
	CallbackURL string

	Action Action

	// Prefill, so PayPal's registration form starts populated.
	Buyer        *types.Buyer
	BuyerAddress *types.Address

	// Candidate options offered to the buyer on PayPal's site; the first is
	// the default.
	ShippingMethods []types.ShippingMethod

	// Explicitly chosen method and address; sent with ADDROVERRIDE so the
	// buyer cannot change them on PayPal's side.
	ChosenMethod    *types.ShippingMethod
	ShippingAddress *types.Address

	NoShipping bool
}

// SetCheckout is SetExpressCheckout: register the pending payment and
// obtain the token the buyer is redirected with. Basket policy is enforced
// before any network call.
func (g *Gateway) SetCheckout(ctx context.Context, req SetRequest) (ledger.Record, error) {
	amount := req.Basket.TotalInclTax()

	if amount.LessThanOrEqual(decimal.Zero) {
		return ledger.Record{}, &InvalidBasketError{Reason: "the basket total is zero so no payment is required"}
	}
	if req.Currency == "USD" && amount.GreaterThan(usdCeiling) {
		return ledger.Record{}, &InvalidBasketError{Reason: "PayPal can only be used for orders up to 10000 USD"}
	}
	if req.Action == "" {
		req.Action = Sale
	}
	if _, err := ValidateAction(string(req.Action)); err != nil {
		return ledger.Record{}, err
	}
	if g.Config.Locale != "" && !validLocales[g.Config.Locale] {
		return ledger.Record{}, &ImproperlyConfiguredError{Setting: "locale code", Value: g.Config.Locale}
	}
	if g.Config.LandingPage != "" && !validLandingPages[g.Config.LandingPage] {
		return ledger.Record{}, &ImproperlyConfiguredError{Setting: "landing page", Value: g.Config.LandingPage}
	}

	// Shipping amounts have to be settled before any field is laid down
	// because the order total folds the default charge in.
	defaultCharge := decimal.Zero
	maxCharge := decimal.Zero
	if req.ChosenMethod != nil {
		defaultCharge = req.ChosenMethod.ChargeInclTax
		maxCharge = defaultCharge
	} else {
		for i, method := range req.ShippingMethods {
			if i == 0 {
				defaultCharge = method.ChargeInclTax
			}
			if method.ChargeInclTax.GreaterThan(maxCharge) {
				maxCharge = method.ChargeInclTax
			}
		}
	}
	total := amount.Add(defaultCharge)
	// The highest total the buyer can reach by picking a costlier option
	// through the callback.
	maxTotal := amount.Add(maxCharge)

	fields := &nvp.Fields{}

	// The following constraint must be met:
	//
	//   PAYMENTREQUEST_0_AMT = ITEMAMT + TAXAMT + SHIPPINGAMT + HANDLINGAMT
	//
	// Tax is included in item prices, so TAXAMT stays zero.
	fields.Add("PAYMENTREQUEST_0_PAYMENTACTION", string(req.Action))
	fields.AddAmount("PAYMENTREQUEST_0_AMT", total)
	fields.Add("PAYMENTREQUEST_0_CURRENCYCODE", req.Currency)
	fields.AddAmount("PAYMENTREQUEST_0_ITEMAMT", amount)
	fields.AddAmount("PAYMENTREQUEST_0_TAXAMT", decimal.Zero)
	fields.AddAmount("PAYMENTREQUEST_0_SHIPPINGAMT", defaultCharge)
	fields.AddAmount("PAYMENTREQUEST_0_HANDLINGAMT", decimal.Zero)
	// MAXAMT survives under both its historical names; they carry one
	// logical value.
	fields.AddAmount("PAYMENTREQUEST_0_MAXAMT", maxTotal)
	fields.AddAmount("MAXAMT", maxTotal)

	fields.Add("RETURNURL", req.ReturnURL)
	fields.Add("CANCELURL", req.CancelURL)
	if req.CallbackURL != "" {
		fields.Add("CALLBACK", req.CallbackURL)
		fields.AddInt("CALLBACKTIMEOUT", g.Config.CallbackTimeout)
	}

	addBasketLines(fields, req.Basket)
	addShippingOptions(fields, req.ShippingMethods, req.ChosenMethod)
	addAddressFields(fields, req)
	g.addDisplayFields(fields, req)

	return g.exchange(ctx, ledger.OpSet, fields)
}

// addBasketLines encodes catalog lines followed by one synthesized
// negative-amount line per discount, which is how PayPal suggests order
// discounts are represented.
func addBasketLines(fields *nvp.Fields, basket types.Basket) {
	index := 0
	addLine := func(name, sku, desc string, amount decimal.Decimal, qty int, physical bool) {
		fields.AddIndexed("L_PAYMENTREQUEST_0_NAME", index, name)
		fields.AddIndexed("L_PAYMENTREQUEST_0_NUMBER", index, sku)
		fields.AddIndexed("L_PAYMENTREQUEST_0_DESC", index, truncateDescription(desc))
		fields.AddIndexed("L_PAYMENTREQUEST_0_AMT", index, nvp.FormatAmount(amount))
		fields.AddIndexed("L_PAYMENTREQUEST_0_QTY", index, strconv.Itoa(qty))
		category := "Digital"
		if physical {
			category = "Physical"
		}
		fields.AddIndexed("L_PAYMENTREQUEST_0_ITEMCATEGORY", index, category)
		index++
	}

	for _, line := range basket.Lines {
		addLine(line.Title, line.SKU, line.Description, line.UnitPriceInclTax, line.Quantity, line.RequiresShipping)
	}
	for _, d := range basket.OfferDiscounts {
		name := "Special Offer: " + d.Name
		addLine(name, "", name, d.Amount.Neg(), 1, false)
	}
	for _, d := range basket.VoucherDiscounts {
		name := d.Name + " (" + d.VoucherCode + ")"
		addLine(name, "", name, d.Amount.Neg(), 1, false)
	}
	for _, d := range basket.ShippingDiscounts {
		name := "Shipping Offer: " + d.Name
		addLine(name, "", name, d.Amount.Neg(), 1, false)
	}
}

func addShippingOptions(fields *nvp.Fields, methods []types.ShippingMethod, chosen *types.ShippingMethod) {
	if chosen != nil {
		return
	}
	for i, method := range methods {
		isDefault := "false"
		if i == 0 {
			isDefault = "true"
		}
		// PayPal correlates the buyer's choice with the instant-update
		// callback by this name, so the callback responder must emit the
		// same identifier.
		fields.AddIndexed("L_SHIPPINGOPTIONISDEFAULT", i, isDefault)
		fields.AddIndexed("L_SHIPPINGOPTIONNAME", i, method.Code)
		fields.AddIndexed("L_SHIPPINGOPTIONAMOUNT", i, nvp.FormatAmount(method.ChargeInclTax))
	}
}

func addAddressFields(fields *nvp.Fields, req SetRequest) {
	if req.Buyer != nil {
		fields.Add("EMAIL", req.Buyer.Email)
	}

	switch {
	case req.ChosenMethod != nil && req.ShippingAddress != nil:
		// Address is fixed: the buyer must not alter it on PayPal's side,
		// and confirmed-shipping must be off when overriding.
		fields.AddBool("ADDROVERRIDE", true)
		fields.AddBool("REQCONFIRMSHIPPING", false)
		addShipTo(fields, *req.ShippingAddress)
	case req.BuyerAddress != nil:
		addShipTo(fields, *req.BuyerAddress)
	case req.NoShipping:
		fields.AddBool("NOSHIPPING", true)
	}
}

func addShipTo(fields *nvp.Fields, addr types.Address) {
	state := addr.State
	if addr.CountryCode == "US" {
		state = normalizeUSState(state)
	}
	fields.Add("SHIPTONAME", addr.Name)
	fields.Add("SHIPTOSTREET", addr.Line1)
	fields.Add("SHIPTOSTREET2", addr.Line2)
	fields.Add("SHIPTOCITY", addr.City)
	fields.Add("SHIPTOSTATE", state)
	fields.Add("SHIPTOZIP", addr.Postcode)
	fields.Add("SHIPTOCOUNTRYCODE", addr.CountryCode)
	fields.Add("SHIPTOPHONENUM", addr.PhoneNumber)
}

func (g *Gateway) addDisplayFields(fields *nvp.Fields, req SetRequest) {
	cfg := g.Config
	fields.Add("CUSTOMERSERVICENUMBER", cfg.CustomerServiceNumber)
	fields.Add("SOLUTIONTYPE", cfg.SolutionType)
	fields.Add("LANDINGPAGE", cfg.LandingPage)
	fields.Add("BRANDNAME", cfg.BrandName)
	fields.Add("PAGESTYLE", cfg.PageStyle)
	fields.Add("HDRIMG", cfg.HeaderImage)
	fields.Add("HDRBACKCOLOR", cfg.HeaderBackColor)
	fields.Add("HDRBORDERCOLOR", cfg.HeaderBorderColor)
	fields.Add("PAYFLOWCOLOR", cfg.PayflowColor)
	fields.Add("LOCALECODE", cfg.Locale)
	fields.AddBool("ALLOWNOTE", cfg.AllowNote)
	if cfg.ConfirmShipping && !req.NoShipping && req.ChosenMethod == nil {
		fields.AddBool("REQCONFIRMSHIPPING", true)
	}
}

func truncateDescription(desc string) string {
	if len(desc) <= maxDescriptionLen {
		return desc
	}
	// Cut on a rune boundary so the payload stays valid UTF-8.
	cut := maxDescriptionLen
	for cut > 0 && !utf8.RuneStart(desc[cut]) {
		cut--
	}
	return desc[:cut]
}
