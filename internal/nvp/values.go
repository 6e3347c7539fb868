package nvp

import (
	"fmt"
	"net/url"
	"strings"
)

// Values is a decoded NVP body. PayPal may repeat a key; callers take the
// first occurrence unless they enumerate an indexed group.
type Values map[string][]string

// Decode parses a key=value&key=value body. Values are percent-decoded,
// which also handles the unescaped legacy dialect since it never emits '%'.
func Decode(body []byte) Values {
	out := Values{}
	for _, chunk := range strings.Split(string(body), "&") {
		if chunk == "" {
			continue
		}
		key, value, _ := strings.Cut(chunk, "=")
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		out[key] = append(out[key], value)
	}
	return out
}

// First returns the first value for key, or def when absent.
func (v Values) First(key, def string) string {
	if vals, ok := v[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	return def
}

// Has reports whether key is present.
func (v Values) Has(key string) bool {
	vals, ok := v[key]
	return ok && len(vals) > 0
}

// Indexed enumerates an indexed group (prefix0, prefix1, ...) in index
// order, stopping at the first gap.
func (v Values) Indexed(prefix string) []string {
	var out []string
	for i := 0; ; i++ {
		vals, ok := v[fmt.Sprintf("%s%d", prefix, i)]
		if !ok || len(vals) == 0 {
			return out
		}
		out = append(out, vals[0])
	}
}
