package titles

import (
	"strings"
	"unicode"
)

// Score calculates how closely a scraped title matches a search query,
// from 0.0 (completely different) to 1.0 (identical after normalization).
//
// Source sites decorate titles freely ("Queen of Tears (2024) Full HD",
// "Disney's Mulan" vs "Mulan"), so two titles are also considered a strong
// match when one is a word-boundary suffix of the other and covers a
// substantial portion (>60%) of the longer title.
func Score(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)

	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	if score := suffixScore(a, b); score > 0 {
		return score
	}

	distance := levenshtein(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1.0 - float64(distance)/float64(maxLen)
}

// suffixScore handles possessive or branding prefixes: if the shorter
// title is a word-boundary suffix of the longer one and covers most of
// it, score high in proportion to the coverage. Returns 0 when the
// titles have no such relationship.
func suffixScore(a, b string) float64 {
	longer, shorter := a, b
	if len(a) < len(b) {
		longer, shorter = b, a
	}
	if !strings.HasSuffix(longer, shorter) {
		return 0
	}
	prefixLen := len(longer) - len(shorter)
	if prefixLen != 0 && longer[prefixLen-1] != ' ' {
		return 0
	}
	ratio := float64(len(shorter)) / float64(len(longer))
	if ratio < 0.6 {
		return 0
	}
	return 0.90 + ratio*0.10
}

// normalize lowercases, maps "&" to "and", turns separator punctuation
// into spaces and drops everything else, so "Me & You" matches
// "me-and-you".
func normalize(s string) string {
	s = strings.ReplaceAll(s, "&", " and ")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '.' || r == '-' || r == '_':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// levenshtein is the classic edit distance over runes.
func levenshtein(a, b string) int {
	r1 := []rune(a)
	r2 := []rune(b)

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
