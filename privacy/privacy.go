// Package privacy removes or hashes personally identifiable information from
// attribute maps before events enter the pipeline. Sanitization is pure,
// total, and idempotent; a field that cannot be safely classified is dropped
// rather than passed through.
package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/namastexlabs/automagik-telemetry-go/event"
)

// Key terms whose fields are dropped outright. These carry free-form or
// credential content that no hash can make safe to ship.
var denyTerms = []string{"password", "token", "secret", "api_key", "message", "content"}

// Key terms whose values are replaced with a hash under "<key>_hash".
var hashTerms = []string{"email", "phone"}

var (
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9][0-9 ().\-]{6,18}[0-9]$`)
	hexRe   = regexp.MustCompile(`^[0-9a-f]{16}$`)
)

// HashValue returns the first 16 hex characters of the SHA-256 of raw.
func HashValue(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:16]
}

// Sanitize returns a copy of attrs with PII removed. Fields matching a
// denylisted key term are dropped. Fields whose key names or string values
// look like emails or phone numbers are replaced by "<key>_hash" holding a
// truncated SHA-256 of the raw value. Already-sanitized maps pass through
// unchanged, so Sanitize(Sanitize(m)) == Sanitize(m).
func Sanitize(attrs event.Attrs) event.Attrs {
	if attrs == nil {
		return nil
	}
	out := make(event.Attrs, len(attrs))
	for key, val := range attrs {
		lower := strings.ToLower(key)

		// Output of a previous pass: a *_hash key holding 16 hex chars.
		if strings.HasSuffix(lower, "_hash") && val.Kind() == event.KindString && hexRe.MatchString(val.Str()) {
			out[key] = val
			continue
		}

		if matchesAny(lower, denyTerms) {
			continue
		}

		if matchesAny(lower, hashTerms) {
			out[key+"_hash"] = event.StringValue(HashValue(val.Text()))
			continue
		}

		if val.Kind() == event.KindString && looksLikePII(val.Str()) {
			out[key+"_hash"] = event.StringValue(HashValue(val.Str()))
			continue
		}

		out[key] = val
	}
	return out
}

func matchesAny(key string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(key, term) {
			return true
		}
	}
	return false
}

func looksLikePII(s string) bool {
	return emailRe.MatchString(s) || phoneRe.MatchString(s)
}
