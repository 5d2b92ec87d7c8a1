package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "trims whitespace",
			input:    []string{"  +14155550000  ", "+6281234567890  "},
			expected: []string{"+14155550000", "+6281234567890"},
		},
		{
			name:     "removes duplicates preserving order",
			input:    []string{"b", "a", "b", "c", "a"},
			expected: []string{"b", "a", "c"},
		},
		{
			name:     "removes empty strings",
			input:    []string{"foo", "", "  ", "bar"},
			expected: []string{"foo", "bar"},
		},
		{
			name:     "preserves case",
			input:    []string{"Foo", "foo", "FOO"},
			expected: []string{"Foo", "foo", "FOO"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeFold(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "first spelling wins",
			input:    []string{"Jane@Example.com", "jane@example.com", " JANE@EXAMPLE.COM "},
			expected: []string{"Jane@Example.com"},
		},
		{
			name:     "keeps distinct values in order",
			input:    []string{"kate@example.com", "", "jane@example.com"},
			expected: []string{"kate@example.com", "jane@example.com"},
		},
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeFold(tt.input))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t,
		[]string{"jane@example.com", "kate@example.com"},
		SplitList("jane@example.com / kate@example.com / jane@example.com", " / "),
	)
	assert.Nil(t, SplitList("   ", " / "))
	assert.Equal(t, []string{"only@example.com"}, SplitList("only@example.com", " / "))
}
