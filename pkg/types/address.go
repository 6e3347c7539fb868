package types

// Address holds the fields PayPal understands for shipping prefill and
// address override. CountryCode is ISO 3166-1 alpha-2.
type Address struct {
	Name        string
	Line1       string
	Line2       string
	City        string
	State       string
	Postcode    string
	CountryCode string
	PhoneNumber string
}

// PartialAddress is what the instant-update callback carries while the buyer
// is still choosing an address on PayPal's site.
type PartialAddress struct {
	City        string
	State       string
	Postcode    string
	CountryCode string
}

// Buyer identifies the purchasing user, used to prefill the PayPal
// registration form.
type Buyer struct {
	Email string
}
