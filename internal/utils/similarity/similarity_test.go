package similarity_test

import (
	"testing"

	"github.com/finopsd/recon_backend/internal/utils/similarity"
	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "uppercases and splits on punctuation",
			input:    "Acme Corp. payment/ref #12345",
			expected: []string{"ACME", "CORP", "PAYMENT", "REF", "12345"},
		},
		{
			name:     "drops single characters",
			input:    "A B wire 7 transfer",
			expected: []string{"WIRE", "TRANSFER"},
		},
		{
			name:     "empty input",
			input:    "",
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, similarity.Tokenize(tt.input))
		})
	}
}

func TestTokensEqual(t *testing.T) {
	assert.True(t, similarity.TokensEqual("PAYMENT", "PAYMENT"))
	assert.True(t, similarity.TokensEqual("PAYMENT", "PAYMNT"), "one edit away on long tokens")
	assert.False(t, similarity.TokensEqual("PAYMENT", "PAYMEN7S"), "two edits away")
	assert.False(t, similarity.TokensEqual("CAT", "CAR"), "short tokens must match exactly")
	assert.True(t, similarity.TokensEqual("REF", "REF"))
}

func TestTokenOverlap(t *testing.T) {
	assert.Equal(t, 1.0, similarity.TokenOverlap("ACME CORP PAYMENT", "PAYMENT ACME CORP"))
	assert.Equal(t, 0.0, similarity.TokenOverlap("WIRE TRANSFER", "OFFICE RENT"))
	assert.Equal(t, 0.0, similarity.TokenOverlap("", "ACME CORP"))

	// Ratio is relative to the smaller token set.
	overlap := similarity.TokenOverlap("ACME PAYMENT", "ACME CORP PAYMENT INVOICE 12345")
	assert.Equal(t, 1.0, overlap)

	// Fuzzy token comparison tolerates a truncated word.
	overlap = similarity.TokenOverlap("ACME PAYMNT", "ACME PAYMENT")
	assert.Equal(t, 1.0, overlap)
}

func TestExtractReference(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		minDigits int
		expected  string
	}{
		{"plain invoice number", "INV 789012 PARTIAL", 4, "789012"},
		{"longest run wins", "REF 123 ORDER 9876543", 4, "9876543"},
		{"run too short", "SEQ 123 END", 4, ""},
		{"no digits at all", "MONTHLY SERVICE FEE", 4, ""},
		{"digits split by letters", "AB12CD345678EF", 4, "345678"},
		{"exactly minimum digits", "REF 1234", 4, "1234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, similarity.ExtractReference(tt.input, tt.minDigits))
		})
	}
}
