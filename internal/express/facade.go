// Package express bridges merchant domain objects and the Express Checkout
// gateway, advancing one checkout session across the web layer's requests.
package express

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/oakmarket/expresspay/internal/config"
	"github.com/oakmarket/expresspay/internal/gateway"
	"github.com/oakmarket/expresspay/internal/ledger"
	"github.com/oakmarket/expresspay/pkg/types"
)

// UnableToTakePaymentError is a business-level rejection: PayPal may have
// answered successfully, but the merchant side cannot proceed.
type UnableToTakePaymentError struct {
	Reason string
}

func (e *UnableToTakePaymentError) Error() string { return e.Reason }

// Facade sequences gateway calls for the surrounding web layer. The basket
// is frozen by the caller before BeginCheckout and stays immutable until
// the session settles or is abandoned.
type Facade struct {
	Gateway *gateway.Gateway
	Store   ledger.Store
	Config  config.Config
}

func NewFacade(gw *gateway.Gateway, store ledger.Store, cfg config.Config) *Facade {
	return &Facade{Gateway: gw, Store: store, Config: cfg}
}

// BeginCheckoutOptions carries the optional prefill inputs.
type BeginCheckoutOptions struct {
	Buyer           *types.Buyer
	BuyerAddress    *types.Address
	ShippingAddress *types.Address
	ChosenMethod    *types.ShippingMethod
}

// BeginCheckout registers the pending payment and returns the URL the buyer
// is redirected to. The first shipping method is the default offered on
// PayPal's site.
func (f *Facade) BeginCheckout(ctx context.Context, basket types.Basket, methods []types.ShippingMethod, opts BeginCheckoutOptions) (string, error) {
	currency := basket.Currency
	if currency == "" {
		currency = f.Config.Currency
	}

	action, err := gateway.ValidateAction(f.Config.PaymentAction)
	if err != nil {
		return "", err
	}

	req := gateway.SetRequest{
		Basket:          basket,
		Currency:        currency,
		ReturnURL:       f.publicURL("/paypal/place-order/%d/", basket.ID),
		CancelURL:       f.publicURL("/paypal/cancel/%d/", basket.ID),
		Action:          action,
		Buyer:           opts.Buyer,
		BuyerAddress:    opts.BuyerAddress,
		ShippingAddress: opts.ShippingAddress,
		ChosenMethod:    opts.ChosenMethod,
		ShippingMethods: methods,
		NoShipping:      !basket.RequiresShipping(),
	}
	if basket.RequiresShipping() && len(methods) > 0 && opts.ChosenMethod == nil {
		req.CallbackURL = f.publicURL("/paypal/shipping-options/%d/", basket.ID)
	}

	rec, err := f.Gateway.SetCheckout(ctx, req)
	if err != nil {
		return "", err
	}
	return f.redirectURL(rec.Token), nil
}

// FetchDetails retrieves what the buyer confirmed on PayPal's site.
func (f *Facade) FetchDetails(ctx context.Context, token string) (ledger.Record, error) {
	return f.Gateway.GetDetails(ctx, token)
}

// Confirm settles (or authorizes, per configuration) the payment. The
// buyer-confirmed amount from the Get stage is re-validated against the
// merchant amount; a drift means the basket changed while the buyer was
// off-site and the payment must not be taken.
func (f *Facade) Confirm(ctx context.Context, payerID, token string, amount decimal.Decimal, currency string) (ledger.Record, error) {
	action, err := gateway.ValidateAction(f.Config.PaymentAction)
	if err != nil {
		return ledger.Record{}, err
	}

	if getRec, ok, err := f.Store.LatestByToken(token, ledger.OpGet); err != nil {
		return ledger.Record{}, err
	} else if ok && getRec.Amount != nil && !getRec.Amount.Equal(amount) {
		return ledger.Record{}, &UnableToTakePaymentError{
			Reason: fmt.Sprintf("order total %s differs from the total PayPal authorised %s", amount, getRec.Amount),
		}
	}

	return f.Gateway.DoPayment(ctx, payerID, token, amount, currency, action)
}

// Refund refunds the settled transaction behind token: fully when amount is
// nil or covers the original, partially otherwise.
func (f *Facade) Refund(ctx context.Context, token string, amount *decimal.Decimal, currency string) (ledger.Record, error) {
	doRec, err := f.settledRecord(token)
	if err != nil {
		return ledger.Record{}, err
	}

	partial := amount != nil && doRec.Amount != nil && amount.LessThan(*doRec.Amount)
	if !partial {
		amount = nil
	}
	return f.Gateway.Refund(ctx, doRec.Value("PAYMENTINFO_0_TRANSACTIONID", ""), amount, currency)
}

// CaptureAuthorization captures the full authorized amount for token.
func (f *Facade) CaptureAuthorization(ctx context.Context, token, note string) (ledger.Record, error) {
	doRec, err := f.settledRecord(token)
	if err != nil {
		return ledger.Record{}, err
	}
	if doRec.Amount == nil {
		return ledger.Record{}, &UnableToTakePaymentError{Reason: "authorization has no recorded amount"}
	}
	return f.Gateway.Capture(ctx, doRec.Value("PAYMENTINFO_0_TRANSACTIONID", ""), *doRec.Amount, doRec.Currency, note)
}

// VoidAuthorization voids the authorization behind token.
func (f *Facade) VoidAuthorization(ctx context.Context, token, note string) (ledger.Record, error) {
	doRec, err := f.settledRecord(token)
	if err != nil {
		return ledger.Record{}, err
	}
	return f.Gateway.Void(ctx, doRec.Value("PAYMENTINFO_0_TRANSACTIONID", ""), note)
}

// settledRecord finds the Do-stage record that links token to PayPal's
// transaction id. Without one there is nothing to capture, void or refund.
func (f *Facade) settledRecord(token string) (ledger.Record, error) {
	rec, ok, err := f.Store.LatestByToken(token, ledger.OpDo)
	if err != nil {
		return ledger.Record{}, err
	}
	if !ok || rec.Value("PAYMENTINFO_0_TRANSACTIONID", "") == "" {
		return ledger.Record{}, &UnableToTakePaymentError{
			Reason: fmt.Sprintf("no settled transaction found for token %s", token),
		}
	}
	return rec, nil
}

func (f *Facade) publicURL(format string, basketID int64) string {
	return f.Config.PublicURL + fmt.Sprintf(format, basketID)
}

// redirectURL is where the buyer goes with the checkout token. With
// buyer-pays-on-paypal the flow commits on PayPal's review page instead of
// returning to a merchant preview.
func (f *Facade) redirectURL(token string) string {
	u := f.Config.RedirectBase() + "?cmd=_express-checkout&token=" + url.QueryEscape(token)
	if f.Config.BuyerPaysOnPayPal {
		u += "&useraction=commit"
	}
	return u
}
