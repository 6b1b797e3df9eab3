// Package validate holds the input checks that run before anything reaches
// a store: email shape, password strength, and free-text sanitizing.
package validate

import (
	"regexp"
	"strings"
)

var (
	emailRe      = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	upperRe      = regexp.MustCompile(`[A-Z]`)
	lowerRe      = regexp.MustCompile(`[a-z]`)
	digitRe      = regexp.MustCompile(`[0-9]`)
	jsProtoRe    = regexp.MustCompile(`(?i)javascript:`)
	eventAttrRe  = regexp.MustCompile(`(?i)on\w+=`)
	angleBracket = strings.NewReplacer("<", "", ">", "")
)

// Email reports whether s looks like a valid email address.
func Email(s string) bool {
	return emailRe.MatchString(s)
}

// Password checks password strength: at least 8 characters with an upper,
// a lower, and a digit. Returns a caller-facing message when it fails.
func Password(s string) (bool, string) {
	switch {
	case len(s) < 8:
		return false, "Password must be at least 8 characters long"
	case !upperRe.MatchString(s):
		return false, "Password must contain at least one uppercase letter"
	case !lowerRe.MatchString(s):
		return false, "Password must contain at least one lowercase letter"
	case !digitRe.MatchString(s):
		return false, "Password must contain at least one number"
	}
	return true, ""
}

// Sanitize strips markup and script-injection patterns from free text.
func Sanitize(s string) string {
	s = angleBracket.Replace(s)
	s = jsProtoRe.ReplaceAllString(s, "")
	s = eventAttrRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
