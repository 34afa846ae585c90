// Package similarity provides pure text-similarity scoring in [0, 1].
package similarity

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Scorer computes a similarity score in [0, 1] between two texts. It must
// be pure: no I/O, no failure modes.
type Scorer func(a, b string) float64

// tokenize normalizes text (NFKC, case folding) and splits it into
// lowercase word tokens with punctuation stripped. Casers are stateful,
// so one is created per call.
func tokenize(text string) []string {
	normalized := cases.Fold().String(norm.NFKC.String(text))

	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		return !isWordRune(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r > 127: // keep non-ASCII letters intact
		return true
	}
	return false
}

// TokenF1 scores the token-level F1 overlap between two texts. Identical
// texts score 1, disjoint texts score 0.
func TokenF1(a, b string) float64 {
	tokensA := tokenize(a)
	tokensB := tokenize(b)

	if len(tokensA) == 0 && len(tokensB) == 0 {
		return 1.0
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	counts := make(map[string]int, len(tokensA))
	for _, t := range tokensA {
		counts[t]++
	}

	var overlap int
	for _, t := range tokensB {
		if counts[t] > 0 {
			counts[t]--
			overlap++
		}
	}

	if overlap == 0 {
		return 0.0
	}

	precision := float64(overlap) / float64(len(tokensB))
	recall := float64(overlap) / float64(len(tokensA))
	return 2 * precision * recall / (precision + recall)
}

// Jaccard scores the set-level token overlap between two texts.
func Jaccard(a, b string) float64 {
	setA := toSet(tokenize(a))
	setB := toSet(tokenize(b))

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}

	var intersection int
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func toSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
