package sms

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidPhone indicates a number that cannot be normalized to a
// Congolese mobile number.
var ErrInvalidPhone = errors.New("invalid phone number")

var drcMobile = regexp.MustCompile(`^\+243[1-9]\d{8}$`)

// NormalizeDRC converts a phone number to international DRC format
// (+243XXXXXXXXX). Accepted inputs are the international form, the bare
// country-code form (243...), and the local form with a leading zero
// (0XXXXXXXXX). Spaces, dots, and dashes are ignored.
func NormalizeDRC(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if cleaned == "" {
		return "", ErrInvalidPhone
	}

	switch {
	case strings.HasPrefix(cleaned, "+243"):
		// already international
	case strings.HasPrefix(cleaned, "243"):
		cleaned = "+" + cleaned
	case strings.HasPrefix(cleaned, "0") && len(cleaned) == 10:
		cleaned = "+243" + cleaned[1:]
	default:
		return "", ErrInvalidPhone
	}

	if !drcMobile.MatchString(cleaned) {
		return "", ErrInvalidPhone
	}
	return cleaned, nil
}

// Mask hides the middle digits of a phone number for log output,
// keeping the country code and the last two digits.
func Mask(phone string) string {
	if len(phone) < 7 {
		return "****"
	}
	return phone[:4] + strings.Repeat("*", len(phone)-6) + phone[len(phone)-2:]
}
