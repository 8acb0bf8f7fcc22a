package logging

import (
	"net/http"
	"regexp"
	"strings"
)

const (
	// MaxBodyLogLength caps response bodies copied into log fields.
	MaxBodyLogLength = 512
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	bearerPattern   = regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-_.=+/]+`)
	passwordPattern = regexp.MustCompile(`(?i)("?(password|pwd|pass)"?\s*[:=]\s*)("[^"]*"|[^,;&\s}]+)`)
	tokenPattern    = regexp.MustCompile(`(?i)("?(token|api[_-]?key)"?\s*[:=]\s*)("[^"]*"|[^,;&\s}]+)`)
)

// Sanitize removes credentials from free text (error strings, bodies).
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	s = bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	s = passwordPattern.ReplaceAllString(s, "${1}\""+RedactedText+"\"")
	s = tokenPattern.ReplaceAllString(s, "${1}\""+RedactedText+"\"")
	return s
}

// SanitizeError sanitizes error messages that might contain credentials.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return Sanitize(err.Error())
}

// SanitizeBody truncates and sanitizes a request/response body for logging.
func SanitizeBody(b []byte) string {
	s := string(b)
	if len(s) > MaxBodyLogLength {
		s = s[:MaxBodyLogLength] + "..."
	}
	return Sanitize(s)
}

// SanitizeHeader returns a copy of h with the Authorization and Cookie values redacted.
func SanitizeHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		v := strings.Join(vs, ",")
		switch http.CanonicalHeaderKey(k) {
		case "Authorization", "Cookie", "Set-Cookie":
			v = RedactedText
		}
		out[k] = v
	}
	return out
}
