// Package utils provides utility functions for the application.
package utils

import (
	"fmt"
	"strings"
)

// NormalizePhone canonicalizes a customer phone number to +7XXXXXXXXXX.
// Accepts "8XXXXXXXXXX", "7XXXXXXXXXX" and "+7XXXXXXXXXX" forms.
func NormalizePhone(raw string) (string, error) {
	p := strings.TrimSpace(raw)
	p = strings.ReplaceAll(p, " ", "")
	p = strings.ReplaceAll(p, "-", "")

	switch {
	case strings.HasPrefix(p, "8") && len(p) == 11:
		p = "+7" + p[1:]
	case strings.HasPrefix(p, "7") && len(p) == 11:
		p = "+" + p
	case strings.HasPrefix(p, "+7") && len(p) == 12:
	default:
		return "", fmt.Errorf("invalid phone number format: %q", raw)
	}

	for _, r := range p[1:] {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("invalid phone number format: %q", raw)
		}
	}
	return p, nil
}
