package express

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/oakmarket/expresspay/internal/config"
	"github.com/oakmarket/expresspay/internal/gateway"
	"github.com/oakmarket/expresspay/internal/ledger"
	"github.com/oakmarket/expresspay/internal/nvp"
	"github.com/oakmarket/expresspay/pkg/types"
)

const (
	setOKResponse = "TOKEN=EC%2d6469953681606921P&TIMESTAMP=2014%2d01%2d14T12%3a00%3a00Z&CORRELATIONID=50a8d895e928f&ACK=Success&VERSION=119&BUILD=2649250"
	getOKResponse = "TOKEN=EC%2d6469953681606921P&PAYERID=7ZTRBDFYYA47W&EMAIL=buyer%40example.com&CORRELATIONID=9e9d2b4f09f23&ACK=Success&VERSION=119&PAYMENTREQUEST_0_AMT=10%2e00&PAYMENTREQUEST_0_CURRENCYCODE=GBP"
	doOKResponse  = "TOKEN=EC%2d6469953681606921P&CORRELATIONID=3db342f10a52e&ACK=Success&VERSION=119&PAYMENTINFO_0_TRANSACTIONID=7X270970LP5965037&PAYMENTINFO_0_AMT=10%2e00&PAYMENTINFO_0_CURRENCYCODE=GBP&PAYMENTINFO_0_PAYMENTSTATUS=Completed"
)

type scripted struct {
	srv      *httptest.Server
	requests []string
}

func newScripted(t *testing.T, responses ...string) *scripted {
	t.Helper()
	s := &scripted{}
	i := 0
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.requests = append(s.requests, string(body))
		if i >= len(responses) {
			t.Fatalf("unexpected extra request: %s", string(body))
		}
		_, _ = w.Write([]byte(responses[i]))
		i++
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *scripted) lastRequest(t *testing.T) nvp.Values {
	t.Helper()
	if len(s.requests) == 0 {
		t.Fatalf("no request was made")
	}
	return nvp.Decode([]byte(s.requests[len(s.requests)-1]))
}

func newTestFacade(url string, store ledger.Store) *Facade {
	cfg := config.Default()
	cfg.User = "test_api1.example.com"
	cfg.Password = "1432777837"
	cfg.Signature = "A22DCxaCv"
	cfg.EndpointOverride = url
	cfg.PublicURL = "https://shop.example.com"
	return NewFacade(gateway.New(cfg, store, nil), store, cfg)
}

func shippableBasket(amount string) types.Basket {
	return types.Basket{
		ID:       42,
		Currency: "GBP",
		Lines: []types.Line{{
			Title:            "Ted Hughes - Birthday Letters",
			SKU:              "9780571194735",
			UnitPriceInclTax: decimal.RequireFromString(amount),
			Quantity:         1,
			RequiresShipping: true,
		}},
	}
}

func TestBeginCheckoutRedirect(t *testing.T) {
	pp := newScripted(t, setOKResponse)
	store := ledger.NewInMemoryStore()
	f := newTestFacade(pp.srv.URL, store)

	methods := []types.ShippingMethod{
		{Code: "royal-mail", Name: "Royal Mail", ChargeInclTax: decimal.RequireFromString("2.99")},
	}
	redirect, err := f.BeginCheckout(context.Background(), shippableBasket("10.00"), methods, BeginCheckoutOptions{})
	if err != nil {
		t.Fatalf("begin checkout: %v", err)
	}
	want := "https://www.sandbox.paypal.com/webscr?cmd=_express-checkout&token=EC-6469953681606921P"
	if redirect != want {
		t.Fatalf("redirect = %q, want %q", redirect, want)
	}

	req := pp.lastRequest(t)
	if got := req.First("RETURNURL", ""); got != "https://shop.example.com/paypal/place-order/42/" {
		t.Fatalf("RETURNURL = %q", got)
	}
	if got := req.First("CANCELURL", ""); got != "https://shop.example.com/paypal/cancel/42/" {
		t.Fatalf("CANCELURL = %q", got)
	}
	if got := req.First("CALLBACK", ""); got != "https://shop.example.com/paypal/shipping-options/42/" {
		t.Fatalf("CALLBACK = %q", got)
	}
	if got := req.First("L_SHIPPINGOPTIONNAME0", ""); got != "royal-mail" {
		t.Fatalf("L_SHIPPINGOPTIONNAME0 = %q", got)
	}
}

func TestBeginCheckoutBuyerPaysOnPayPal(t *testing.T) {
	pp := newScripted(t, setOKResponse)
	store := ledger.NewInMemoryStore()
	f := newTestFacade(pp.srv.URL, store)
	f.Config.BuyerPaysOnPayPal = true

	redirect, err := f.BeginCheckout(context.Background(), shippableBasket("10.00"), nil, BeginCheckoutOptions{})
	if err != nil {
		t.Fatalf("begin checkout: %v", err)
	}
	if !strings.HasSuffix(redirect, "&useraction=commit") {
		t.Fatalf("redirect %q missing useraction=commit", redirect)
	}
}

func TestBeginCheckoutDigitalBasketSuppressesShipping(t *testing.T) {
	pp := newScripted(t, setOKResponse)
	store := ledger.NewInMemoryStore()
	f := newTestFacade(pp.srv.URL, store)

	basket := shippableBasket("10.00")
	basket.Lines[0].RequiresShipping = false

	if _, err := f.BeginCheckout(context.Background(), basket, nil, BeginCheckoutOptions{}); err != nil {
		t.Fatalf("begin checkout: %v", err)
	}
	req := pp.lastRequest(t)
	if got := req.First("NOSHIPPING", ""); got != "1" {
		t.Fatalf("NOSHIPPING = %q, want 1", got)
	}
	if req.Has("CALLBACK") {
		t.Fatalf("callback offered for a digital basket")
	}
}

func TestConfirmValidatesBuyerApprovedAmount(t *testing.T) {
	pp := newScripted(t, getOKResponse)
	store := ledger.NewInMemoryStore()
	f := newTestFacade(pp.srv.URL, store)

	if _, err := f.FetchDetails(context.Background(), "EC-6469953681606921P"); err != nil {
		t.Fatalf("fetch details: %v", err)
	}

	// Basket changed while the buyer was on PayPal.
	_, err := f.Confirm(context.Background(), "7ZTRBDFYYA47W", "EC-6469953681606921P",
		decimal.RequireFromString("12.50"), "GBP")
	var utp *UnableToTakePaymentError
	if !errors.As(err, &utp) {
		t.Fatalf("err = %v, want UnableToTakePaymentError", err)
	}
	if len(pp.requests) != 1 {
		t.Fatalf("DoExpressCheckoutPayment was attempted after an amount mismatch")
	}
}

func TestConfirmSettlesMatchingAmount(t *testing.T) {
	pp := newScripted(t, getOKResponse, doOKResponse)
	store := ledger.NewInMemoryStore()
	f := newTestFacade(pp.srv.URL, store)

	if _, err := f.FetchDetails(context.Background(), "EC-6469953681606921P"); err != nil {
		t.Fatalf("fetch details: %v", err)
	}
	rec, err := f.Confirm(context.Background(), "7ZTRBDFYYA47W", "EC-6469953681606921P",
		decimal.RequireFromString("10.00"), "GBP")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got := rec.Value("PAYMENTINFO_0_TRANSACTIONID", ""); got != "7X270970LP5965037" {
		t.Fatalf("transaction id = %q", got)
	}

	req := pp.lastRequest(t)
	if got := req.First("PAYMENTREQUEST_0_PAYMENTACTION", ""); got != "Sale" {
		t.Fatalf("PAYMENTACTION = %q, want Sale", got)
	}
	if got := req.First("PAYERID", ""); got != "7ZTRBDFYYA47W" {
		t.Fatalf("PAYERID = %q", got)
	}
}

func TestRefundFullAndPartial(t *testing.T) {
	refundOK := "REFUNDTRANSACTIONID=8F963414F3077893M&CORRELATIONID=ab1c2d&ACK=Success&VERSION=119"
	pp := newScripted(t, doOKResponse, refundOK, refundOK)
	store := ledger.NewInMemoryStore()
	f := newTestFacade(pp.srv.URL, store)

	if _, err := f.Gateway.DoPayment(context.Background(), "7ZTRBDFYYA47W", "EC-6469953681606921P",
		decimal.RequireFromString("10.00"), "GBP", gateway.Sale); err != nil {
		t.Fatalf("do payment: %v", err)
	}

	partial := decimal.RequireFromString("4.00")
	if _, err := f.Refund(context.Background(), "EC-6469953681606921P", &partial, "GBP"); err != nil {
		t.Fatalf("partial refund: %v", err)
	}
	req := pp.lastRequest(t)
	if got := req.First("REFUNDTYPE", ""); got != "Partial" {
		t.Fatalf("REFUNDTYPE = %q, want Partial", got)
	}
	if got := req.First("AMT", ""); got != "4.00" {
		t.Fatalf("AMT = %q", got)
	}
	if got := req.First("TRANSACTIONID", ""); got != "7X270970LP5965037" {
		t.Fatalf("TRANSACTIONID = %q", got)
	}

	// Refunding the whole original amount is a full refund, no AMT sent.
	full := decimal.RequireFromString("10.00")
	if _, err := f.Refund(context.Background(), "EC-6469953681606921P", &full, "GBP"); err != nil {
		t.Fatalf("full refund: %v", err)
	}
	req = pp.lastRequest(t)
	if got := req.First("REFUNDTYPE", ""); got != "Full" {
		t.Fatalf("REFUNDTYPE = %q, want Full", got)
	}
	if req.Has("AMT") {
		t.Fatalf("full refund carried an AMT")
	}
}

func TestRefundUnknownToken(t *testing.T) {
	pp := newScripted(t)
	store := ledger.NewInMemoryStore()
	f := newTestFacade(pp.srv.URL, store)

	_, err := f.Refund(context.Background(), "EC-0000000000000000X", nil, "GBP")
	var utp *UnableToTakePaymentError
	if !errors.As(err, &utp) {
		t.Fatalf("err = %v, want UnableToTakePaymentError", err)
	}
	if len(pp.requests) != 0 {
		t.Fatalf("refund was attempted without a settled transaction")
	}
}

func TestCaptureAndVoidUseSettledTransaction(t *testing.T) {
	captureOK := "TRANSACTIONID=7X270970LP5965037&CORRELATIONID=cc1d2e&ACK=Success&VERSION=119"
	pp := newScripted(t, doOKResponse, captureOK, captureOK)
	store := ledger.NewInMemoryStore()
	f := newTestFacade(pp.srv.URL, store)

	if _, err := f.Gateway.DoPayment(context.Background(), "7ZTRBDFYYA47W", "EC-6469953681606921P",
		decimal.RequireFromString("10.00"), "GBP", gateway.Authorization); err != nil {
		t.Fatalf("do payment: %v", err)
	}

	if _, err := f.CaptureAuthorization(context.Background(), "EC-6469953681606921P", "order 42"); err != nil {
		t.Fatalf("capture: %v", err)
	}
	req := pp.lastRequest(t)
	if got := req.First("AUTHORIZATIONID", ""); got != "7X270970LP5965037" {
		t.Fatalf("AUTHORIZATIONID = %q", got)
	}
	if got := req.First("AMT", ""); got != "10.00" {
		t.Fatalf("AMT = %q", got)
	}
	if got := req.First("COMPLETETYPE", ""); got != "Complete" {
		t.Fatalf("COMPLETETYPE = %q", got)
	}

	if _, err := f.VoidAuthorization(context.Background(), "EC-6469953681606921P", ""); err != nil {
		t.Fatalf("void: %v", err)
	}
	req = pp.lastRequest(t)
	if got := req.First("METHOD", ""); got != "DoVoid" {
		t.Fatalf("METHOD = %q", got)
	}
	if got := req.First("AUTHORIZATIONID", ""); got != "7X270970LP5965037" {
		t.Fatalf("AUTHORIZATIONID = %q", got)
	}
}
