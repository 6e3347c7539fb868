package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/oakmarket/expresspay/internal/nvp"
)

// Operation names one NVP API method. The values are the wire method names
// so records read the same as PayPal's own transaction logs.
type Operation string

const (
	OpSet     Operation = "SetExpressCheckout"
	OpGet     Operation = "GetExpressCheckoutDetails"
	OpDo      Operation = "DoExpressCheckoutPayment"
	OpCapture Operation = "DoCapture"
	OpVoid    Operation = "DoVoid"
	OpRefund  Operation = "RefundTransaction"
	OpCredit  Operation = "DoNonReferencedCredit"
)

// Ack is PayPal's coarse outcome classification.
type Ack string

const (
	AckSuccess            Ack = "Success"
	AckSuccessWithWarning Ack = "SuccessWithWarning"
	AckFailure            Ack = "Failure"
)

// Record is one processor interaction, written for every transport round
// trip whether it succeeded or not. Records are immutable once stored.
type Record struct {
	ID        string
	Operation Operation
	Version   string
	IsSandbox bool

	// Set once known; nil until then (e.g. DoVoid carries no amount).
	Amount   *decimal.Decimal
	Currency string

	Ack Ack

	// PayPal's id for support cross-referencing. Not unique on our side;
	// PayPal errors must never cause errors in our system.
	CorrelationID string

	// Checkout session token, stable across Set -> Get -> Do.
	Token string

	ErrorCode    string
	ErrorMessage string

	// Redacted request and raw response bodies, kept for audit.
	RawRequest  string
	RawResponse string

	ResponseTimeMS float64
	CreatedAt      time.Time
}

// IsSuccessful reports whether PayPal acknowledged the call, including the
// SuccessWithWarning case.
func (r Record) IsSuccessful() bool {
	return r.Ack == AckSuccess || r.Ack == AckSuccessWithWarning
}

// Context decodes the stored response body.
func (r Record) Context() nvp.Values {
	return nvp.Decode([]byte(r.RawResponse))
}

// Value extracts a single field from the stored response, the first
// occurrence when PayPal repeated the key.
func (r Record) Value(key, def string) string {
	return r.Context().First(key, def)
}

// WireError is one entry of the indexed error group PayPal returns on
// failure.
type WireError struct {
	Code        string
	Message     string
	LongMessage string
}

// Errors enumerates every error PayPal reported. Callers are surfaced only
// the first one (the FirstError policy); the full list stays available here
// for support diagnostics.
func (r Record) Errors() []WireError {
	ctx := r.Context()
	codes := ctx.Indexed("L_ERRORCODE")
	shorts := ctx.Indexed("L_SHORTMESSAGE")
	longs := ctx.Indexed("L_LONGMESSAGE")

	out := make([]WireError, 0, len(codes))
	for i, code := range codes {
		e := WireError{Code: code}
		if i < len(shorts) {
			e.Message = shorts[i]
		}
		if i < len(longs) {
			e.LongMessage = longs[i]
		}
		out = append(out, e)
	}
	return out
}
