package gateway

import "fmt"

// InvalidBasketError rejects a basket before any network call is made.
type InvalidBasketError struct {
	Reason string
}

func (e *InvalidBasketError) Error() string { return e.Reason }

// GatewayError is a Failure acknowledgement from PayPal. Under the
// FirstError policy it carries only the first reported error; the full list
// is preserved on the ledger record.
type GatewayError struct {
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("paypal error %s - %s", e.Code, e.Message)
}

// ImproperlyConfiguredError is an invalid merchant-side setting, detected at
// call time since configuration is supplied per call.
type ImproperlyConfiguredError struct {
	Setting string
	Value   string
}

func (e *ImproperlyConfiguredError) Error() string {
	return fmt.Sprintf("%q is not a valid %s", e.Value, e.Setting)
}
