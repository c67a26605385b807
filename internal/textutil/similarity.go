package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var nonAlnumPattern = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeTitle lowercases a title and reduces it to alphanumeric words
// separated by single spaces.
func NormalizeTitle(title string) string {
	lowered := strings.ToLower(title)
	return strings.Join(Tokenize(lowered), " ")
}

// Tokenize splits lowercase text into alphanumeric tokens.
func Tokenize(text string) []string {
	raw := nonAlnumPattern.Split(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, token := range raw {
		if token == "" {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// TitleSimilarity scores how closely two titles match on a [0,1] scale.
// Equal normalized titles score 1.0. When one contains the other the score
// is the length ratio of the shorter to the longer. Otherwise the score is
// the Jaccard overlap of their token sets.
func TitleSimilarity(a, b string) float64 {
	na := NormalizeTitle(a)
	nb := NormalizeTitle(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1.0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		shorter := utf8.RuneCountInString(na)
		longer := utf8.RuneCountInString(nb)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return float64(shorter) / float64(longer)
	}
	return jaccard(strings.Fields(na), strings.Fields(nb))
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, token := range a {
		setA[token] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, token := range b {
		setB[token] = struct{}{}
	}
	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Ternary is a generic conditional helper that returns a if cond is true, b otherwise.
func Ternary[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}
