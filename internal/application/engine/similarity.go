package engine

import (
	"strings"
)

// jaccard scores how alike two descriptions are: the size of the
// intersection of their lower-cased whitespace tokens over the size of the
// union. Returns 0 when either side has no tokens.
func jaccard(a, b string) float64 {
	tokensA := tokenize(a)
	tokensB := tokenize(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	intersection := 0
	union := len(tokensB)
	for tok := range tokensA {
		if _, ok := tokensB[tok]; ok {
			intersection++
		} else {
			union++
		}
	}
	return float64(intersection) / float64(union)
}

func tokenize(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
