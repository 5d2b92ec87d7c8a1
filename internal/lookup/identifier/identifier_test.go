package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/lookup/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		kind       models.IdentifierKind
		normalized string
	}{
		{name: "e164 phone", raw: "+14155550000", kind: models.KindPhone, normalized: "+14155550000"},
		{name: "formatted phone", raw: " +1 (415) 555-0000 ", kind: models.KindPhone, normalized: "+14155550000"},
		{name: "nanp local phone gets country code", raw: "415-555-0000", kind: models.KindPhone, normalized: "+14155550000"},
		{name: "indonesian phone", raw: "+62 812-3456-7890", kind: models.KindPhone, normalized: "+6281234567890"},
		{name: "email lowercased", raw: "  Jane.Smith@Example.COM ", kind: models.KindEmail, normalized: "jane.smith@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, q.Kind)
			assert.Equal(t, tt.normalized, q.Normalized)
			assert.Equal(t, tt.raw, q.Raw)
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, raw := range []string{"", "   ", "12345", "+1234567890123456", "@example.com", "jane@", "jane@example", "jane@@example.com", "a b@example.com"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw)
			assert.ErrorIs(t, err, ErrInvalidIdentifier)
		})
	}
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "14155550000", Digits("+1 (415) 555-0000"))
	assert.Equal(t, "", Digits("no digits"))
}
