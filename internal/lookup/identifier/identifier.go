// Package identifier turns raw caller input into a normalized Query.
package identifier

import (
	"strings"

	"lookout/internal/lookup/models"
	dErrors "lookout/pkg/domain-errors"
)

// ErrInvalidIdentifier matches every parse failure via errors.Is.
var ErrInvalidIdentifier = dErrors.New(dErrors.CodeInvalidInput, "invalid identifier")

const (
	minPhoneDigits = 8
	maxPhoneDigits = 15
	// nanpLocalDigits is a North American number written without its country code.
	nanpLocalDigits = 10
)

// Parse classifies and normalizes raw. Input containing "@" is an email;
// anything else is treated as a phone number.
func Parse(raw string) (models.Query, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return models.Query{}, dErrors.New(dErrors.CodeInvalidInput, "identifier is required")
	}
	if strings.Contains(trimmed, "@") {
		return parseEmail(raw, trimmed)
	}
	return parsePhone(raw, trimmed)
}

func parseEmail(raw, trimmed string) (models.Query, error) {
	email := strings.ToLower(trimmed)
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || strings.Contains(domain, "@") || strings.ContainsAny(email, " \t") {
		return models.Query{}, dErrors.Newf(dErrors.CodeInvalidInput, "invalid email %q", trimmed)
	}
	dot := strings.LastIndex(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return models.Query{}, dErrors.Newf(dErrors.CodeInvalidInput, "invalid email domain %q", domain)
	}
	return models.Query{Raw: raw, Normalized: email, Kind: models.KindEmail}, nil
}

func parsePhone(raw, trimmed string) (models.Query, error) {
	digits := Digits(trimmed)
	if len(digits) == nanpLocalDigits && !strings.HasPrefix(trimmed, "+") {
		digits = "1" + digits
	}
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return models.Query{}, dErrors.Newf(dErrors.CodeInvalidInput, "invalid phone number %q", trimmed)
	}
	return models.Query{Raw: raw, Normalized: "+" + digits, Kind: models.KindPhone}, nil
}

// Digits drops everything but ASCII digits.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
