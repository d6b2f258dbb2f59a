package similarity

import (
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// maxEditDistance is the levenshtein distance at which two tokens are still
// considered the same word (covers truncations like "PAYMNT" vs "PAYMENT").
const maxEditDistance = 1

// Tokenize normalizes a free-text description into comparable tokens: upper
// case, alphanumeric runs only, single characters dropped.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToUpper(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// TokenOverlap returns the ratio of tokens shared between the two descriptions,
// relative to the smaller token set. Tokens compare fuzzily so minor spelling
// drift between bank and ledger descriptions does not break the match.
func TokenOverlap(a, b string) float64 {
	tokensA := Tokenize(a)
	tokensB := Tokenize(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	smaller, larger := tokensA, tokensB
	if len(tokensB) < len(tokensA) {
		smaller, larger = tokensB, tokensA
	}

	used := make([]bool, len(larger))
	shared := 0
	for _, tok := range smaller {
		for i, other := range larger {
			if used[i] {
				continue
			}
			if TokensEqual(tok, other) {
				used[i] = true
				shared++
				break
			}
		}
	}
	return float64(shared) / float64(len(smaller))
}

// TokensEqual reports whether two normalized tokens denote the same word,
// allowing a small levenshtein distance for tokens long enough to absorb it.
func TokensEqual(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) < 4 || len(b) < 4 {
		return false
	}
	distance := levenshtein.DistanceForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	return distance <= maxEditDistance
}

// ExtractReference pulls a reference/invoice token out of a description: the
// longest run of digits with at least minDigits digits. Returns "" when the
// description carries no usable reference.
func ExtractReference(s string, minDigits int) string {
	best := ""
	current := strings.Builder{}
	flush := func() {
		if current.Len() >= minDigits && current.Len() > len(best) {
			best = current.String()
		}
		current.Reset()
	}
	for _, r := range s {
		if unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return best
}
