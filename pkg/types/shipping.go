package types

import "github.com/shopspring/decimal"

// ShippingMethod is one way of delivering a basket. The first method in any
// list given to the gateway or the callback responder is treated as the
// default.
type ShippingMethod struct {
	Code          string
	Name          string
	Description   string
	ChargeInclTax decimal.Decimal
}
