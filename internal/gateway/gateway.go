package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/oakmarket/expresspay/internal/config"
	"github.com/oakmarket/expresspay/internal/ledger"
	"github.com/oakmarket/expresspay/internal/logging"
	"github.com/oakmarket/expresspay/internal/nvp"
	"github.com/oakmarket/expresspay/internal/transport"
)

// Gateway drives the Express Checkout protocol: one NVP round trip per
// operation, with a ledger record written for every round trip made.
type Gateway struct {
	Config config.Config
	Client *transport.Client
	Store  ledger.Store
	Log    logging.Logger
}

func New(cfg config.Config, store ledger.Store, log logging.Logger) *Gateway {
	if log == nil {
		log = logging.Nop{}
	}
	return &Gateway{
		Config: cfg,
		Client: transport.NewClient(cfg.Endpoint()),
		Store:  store,
		Log:    log,
	}
}

// exchange posts one operation and records the outcome. The ledger write
// happens before any error is returned so failures stay auditable.
func (g *Gateway) exchange(ctx context.Context, op ledger.Operation, fields *nvp.Fields) (ledger.Record, error) {
	payload := &nvp.Fields{}
	payload.Add("METHOD", string(op))
	payload.Add("VERSION", g.Config.APIVersion)
	payload.Add("USER", g.Config.User)
	payload.Add("PWD", g.Config.Password)
	payload.Add("SIGNATURE", g.Config.Signature)
	payload.Extend(fields)

	body := payload.EncodeLegacy()
	g.Log.Debug("paypal request", map[string]any{
		"method": string(op),
		"url":    g.Client.URL,
	})

	res, postErr := g.Client.Post(ctx, body)

	rec := ledger.Record{
		Operation:      op,
		Version:        g.Config.APIVersion,
		IsSandbox:      g.Config.Sandbox,
		RawRequest:     string(body),
		RawResponse:    string(res.Body),
		ResponseTimeMS: float64(res.Elapsed.Microseconds()) / 1000.0,
	}

	if postErr != nil {
		rec.Ack = ledger.AckFailure
		rec.ErrorMessage = postErr.Error()
		if _, err := g.Store.Put(rec); err != nil {
			g.Log.Error("ledger write failed", map[string]any{"error": err.Error()})
		}
		g.Log.Error("paypal unreachable", map[string]any{
			"method": string(op),
			"error":  postErr.Error(),
		})
		return ledger.Record{}, postErr
	}

	values := nvp.Decode(res.Body)
	rec.Ack = ledger.Ack(values.First("ACK", string(ledger.AckFailure)))

	if rec.IsSuccessful() {
		rec.CorrelationID = values.First("CORRELATIONID", "")
		g.extractAmounts(&rec, op, fields, values)
	} else {
		rec.ErrorCode = values.First("L_ERRORCODE0", "")
		rec.ErrorMessage = values.First("L_LONGMESSAGE0", "")
	}

	stored, err := g.Store.Put(rec)
	if err != nil {
		g.Log.Error("ledger write failed", map[string]any{"error": err.Error()})
		return ledger.Record{}, err
	}

	if !stored.IsSuccessful() {
		g.Log.Error("paypal failure", map[string]any{
			"method":  string(op),
			"code":    stored.ErrorCode,
			"message": stored.ErrorMessage,
		})
		return ledger.Record{}, &GatewayError{Code: stored.ErrorCode, Message: stored.ErrorMessage}
	}

	g.Log.Info("paypal success", map[string]any{
		"method":      string(op),
		"correlation": stored.CorrelationID,
		"token":       stored.Token,
	})
	return stored, nil
}

// extractAmounts fills the record's token/amount/currency from whichever
// side of the exchange carries them for this operation.
func (g *Gateway) extractAmounts(rec *ledger.Record, op ledger.Operation, req *nvp.Fields, res nvp.Values) {
	switch op {
	case ledger.OpSet:
		rec.Token = res.First("TOKEN", "")
		setAmount(rec, req.Get("PAYMENTREQUEST_0_AMT"))
		rec.Currency = req.Get("PAYMENTREQUEST_0_CURRENCYCODE")
	case ledger.OpGet:
		rec.Token = req.Get("TOKEN")
		setAmount(rec, res.First("PAYMENTREQUEST_0_AMT", ""))
		rec.Currency = res.First("PAYMENTREQUEST_0_CURRENCYCODE", "")
	case ledger.OpDo:
		rec.Token = req.Get("TOKEN")
		setAmount(rec, res.First("PAYMENTINFO_0_AMT", ""))
		rec.Currency = res.First("PAYMENTINFO_0_CURRENCYCODE", "")
	default:
		setAmount(rec, req.Get("AMT"))
		rec.Currency = req.Get("CURRENCYCODE")
	}
}

func setAmount(rec *ledger.Record, raw string) {
	if raw == "" {
		return
	}
	if amount, err := decimal.NewFromString(raw); err == nil {
		rec.Amount = &amount
	}
}

// GetDetails is GetExpressCheckoutDetails: fetch what the buyer confirmed
// on PayPal's site for the given session token.
func (g *Gateway) GetDetails(ctx context.Context, token string) (ledger.Record, error) {
	fields := &nvp.Fields{}
	fields.Add("TOKEN", token)
	return g.exchange(ctx, ledger.OpGet, fields)
}

// DoPayment is DoExpressCheckoutPayment: settle or authorize funds for a
// session the buyer has approved. The gateway performs no deduplication;
// retry safety rests on PayPal's own token reuse rules.
func (g *Gateway) DoPayment(ctx context.Context, payerID, token string, amount decimal.Decimal, currency string, action Action) (ledger.Record, error) {
	fields := &nvp.Fields{}
	fields.Add("PAYERID", payerID)
	fields.Add("TOKEN", token)
	fields.AddAmount("PAYMENTREQUEST_0_AMT", amount)
	fields.Add("PAYMENTREQUEST_0_CURRENCYCODE", currency)
	fields.Add("PAYMENTREQUEST_0_PAYMENTACTION", string(action))
	return g.exchange(ctx, ledger.OpDo, fields)
}

// Capture captures a prior authorization. PayPal enforces at most one
// complete capture per authorization; the gateway adds no idempotency of
// its own.
func (g *Gateway) Capture(ctx context.Context, authorizationID string, amount decimal.Decimal, currency, note string) (ledger.Record, error) {
	fields := &nvp.Fields{}
	fields.Add("AUTHORIZATIONID", authorizationID)
	fields.AddAmount("AMT", amount)
	fields.Add("CURRENCYCODE", currency)
	fields.Add("COMPLETETYPE", "Complete")
	fields.Add("NOTE", note)
	return g.exchange(ctx, ledger.OpCapture, fields)
}

// Void voids a prior authorization.
func (g *Gateway) Void(ctx context.Context, authorizationID, note string) (ledger.Record, error) {
	fields := &nvp.Fields{}
	fields.Add("AUTHORIZATIONID", authorizationID)
	fields.Add("NOTE", note)
	return g.exchange(ctx, ledger.OpVoid, fields)
}

// Refund refunds a settled transaction, fully when amount is nil, partially
// otherwise.
func (g *Gateway) Refund(ctx context.Context, transactionID string, amount *decimal.Decimal, currency string) (ledger.Record, error) {
	fields := &nvp.Fields{}
	fields.Add("TRANSACTIONID", transactionID)
	if amount != nil {
		fields.Add("REFUNDTYPE", string(PartialRefund))
		fields.AddAmount("AMT", *amount)
		fields.Add("CURRENCYCODE", currency)
	} else {
		fields.Add("REFUNDTYPE", string(FullRefund))
	}
	return g.exchange(ctx, ledger.OpRefund, fields)
}

// CardDetails is the card data a non-referenced credit needs. None of it
// survives into the ledger; redaction strips ACCT and CVV2 before the
// record is written.
type CardDetails struct {
	Number string
	Expiry string
	CVV2   string
}

// Credit pushes funds to a card without reference to an earlier
// transaction (DoNonReferencedCredit).
func (g *Gateway) Credit(ctx context.Context, card CardDetails, amount decimal.Decimal, currency string) (ledger.Record, error) {
	fields := &nvp.Fields{}
	fields.AddAmount("AMT", amount)
	fields.Add("CURRENCYCODE", currency)
	fields.Add("ACCT", card.Number)
	fields.Add("EXPDATE", card.Expiry)
	fields.Add("CVV2", card.CVV2)
	return g.exchange(ctx, ledger.OpCredit, fields)
}
