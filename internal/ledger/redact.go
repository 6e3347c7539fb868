package ledger

import "strings"

const redactedValue = "XXXXXXX"

// Fields whose values must never reach storage: API credentials and raw
// card data (used by non-referenced credits).
var sensitiveFields = map[string]bool{
	"PWD":       true,
	"SIGNATURE": true,
	"ACCT":      true,
	"CVV2":      true,
}

// Redact strips credential and card values from an NVP request body. A body
// that does not look like name-value pairs is returned unchanged: losing the
// audit trail is worse than storing an unredacted unknown format, so
// redaction never fails a write.
func Redact(rawRequest string) string {
	if rawRequest == "" || !strings.Contains(rawRequest, "=") {
		return rawRequest
	}

	chunks := strings.Split(rawRequest, "&")
	for i, chunk := range chunks {
		key, _, ok := strings.Cut(chunk, "=")
		if !ok {
			continue
		}
		if sensitiveFields[strings.ToUpper(key)] {
			chunks[i] = key + "=" + redactedValue
		}
	}
	return strings.Join(chunks, "&")
}
