package validation

import (
	"regexp"
	"strconv"
	"strings"
)

// & comes first so escaping an already escaped string escapes it again.
var emailEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// SanitizeForEmail escapes HTML metacharacters in free text placed into an email body.
// Apply it exactly once per field.
func SanitizeForEmail(s string) string {
	return emailEscaper.Replace(s)
}

var pricePattern = regexp.MustCompile(`R(\d+)`)

// ExtractPrice returns the amount embedded as R<digits> in a service label, or 0.
func ExtractPrice(label string) int64 {
	m := pricePattern.FindStringSubmatch(label)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
