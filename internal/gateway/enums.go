package gateway

// Action is the payment action PayPal performs on Do.
type Action string

const (
	Sale          Action = "Sale"
	Authorization Action = "Authorization"
	Order         Action = "Order"
)

// ValidateAction checks the merchant-configured action against the closed
// set PayPal supports.
func ValidateAction(action string) (Action, error) {
	switch Action(action) {
	case Sale, Authorization, Order:
		return Action(action), nil
	default:
		return "", &ImproperlyConfiguredError{Setting: "payment action", Value: action}
	}
}

// RefundType discriminates full from partial refunds on the wire.
type RefundType string

const (
	FullRefund    RefundType = "Full"
	PartialRefund RefundType = "Partial"
)

// Locales the classic API accepts for LOCALECODE.
var validLocales = map[string]bool{
	"AU": true, "DE": true, "FR": true, "GB": true,
	"IT": true, "ES": true, "JP": true, "US": true,
}

// Landing pages the classic API accepts for LANDINGPAGE.
var validLandingPages = map[string]bool{
	"Login": true, "Billing": true,
}
