package nvp

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// Fields is an ordered list of name-value pairs. PayPal's NVP endpoint is
// sensitive to parameter order for indexed groups, so insertion order is
// preserved exactly.
type Fields struct {
	pairs []pair
}

type pair struct {
	key   string
	value string
}

// Add appends a pair. Empty values are skipped so that optional parameters
// can be added unconditionally.
func (f *Fields) Add(key, value string) {
	if value == "" {
		return
	}
	f.pairs = append(f.pairs, pair{key: key, value: value})
}

// AddRaw appends a pair even when the value is empty.
func (f *Fields) AddRaw(key, value string) {
	f.pairs = append(f.pairs, pair{key: key, value: value})
}

// AddAmount appends a decimal formatted to two places, the only amount
// format the NVP API accepts.
func (f *Fields) AddAmount(key string, amount decimal.Decimal) {
	f.pairs = append(f.pairs, pair{key: key, value: FormatAmount(amount)})
}

// AddInt appends an integer-valued pair.
func (f *Fields) AddInt(key string, value int) {
	f.pairs = append(f.pairs, pair{key: key, value: fmt.Sprintf("%d", value)})
}

// AddBool appends a pair encoded as 1 or 0, the convention the classic API
// uses for flags.
func (f *Fields) AddBool(key string, value bool) {
	v := "0"
	if value {
		v = "1"
	}
	f.pairs = append(f.pairs, pair{key: key, value: v})
}

// AddIndexed appends a pair under an indexed group key, e.g.
// AddIndexed("L_SHIPPINGOPTIONNAME", 0, "Royal Mail") -> L_SHIPPINGOPTIONNAME0.
func (f *Fields) AddIndexed(prefix string, index int, value string) {
	f.pairs = append(f.pairs, pair{key: fmt.Sprintf("%s%d", prefix, index), value: value})
}

// Extend appends every pair of other, preserving its order.
func (f *Fields) Extend(other *Fields) {
	if other != nil {
		f.pairs = append(f.pairs, other.pairs...)
	}
}

// Get returns the first value recorded for key, mainly for tests and
// ledger extraction of request-side parameters.
func (f *Fields) Get(key string) string {
	for _, p := range f.pairs {
		if p.key == key {
			return p.value
		}
	}
	return ""
}

// Has reports whether key was added.
func (f *Fields) Has(key string) bool {
	for _, p := range f.pairs {
		if p.key == key {
			return true
		}
	}
	return false
}

// Len returns the number of recorded pairs.
func (f *Fields) Len() int {
	return len(f.pairs)
}

// EncodeLegacy renders the pairs in the classic NVP dialect. PayPal's legacy
// endpoint rejects urlencoded payloads (%, +) so values are written as-is.
func (f *Fields) EncodeLegacy() []byte {
	parts := make([]string, 0, len(f.pairs))
	for _, p := range f.pairs {
		parts = append(parts, p.key+"="+p.value)
	}
	return []byte(strings.Join(parts, "&"))
}

// EncodeForm renders the pairs as standard application/x-www-form-urlencoded,
// used by the namespaced dialect and by the stored (redacted) audit copy.
func (f *Fields) EncodeForm() []byte {
	parts := make([]string, 0, len(f.pairs))
	for _, p := range f.pairs {
		parts = append(parts, url.QueryEscape(p.key)+"="+url.QueryEscape(p.value))
	}
	return []byte(strings.Join(parts, "&"))
}

// FormatAmount renders a decimal the way the NVP API expects amounts.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
