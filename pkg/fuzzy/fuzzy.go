// Package fuzzy implements typo-tolerant matching for inbox search.
package fuzzy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LevenshteinDistance calculates the edit distance between two strings after
// normalization (case and accents folded, whitespace collapsed).
func LevenshteinDistance(s1, s2 string) int {
	return distance([]rune(Normalize(s1)), []rune(Normalize(s2)))
}

// distance keeps a single row of the edit matrix.
func distance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(a); i++ {
		prev := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur := min(row[j]+1, row[j-1]+1, prev+cost)
			prev = row[j]
			row[j] = cur
		}
	}
	return row[len(b)]
}

// Threshold is the edit distance tolerated for a query of the given length.
func Threshold(query string) int {
	n := len([]rune(Normalize(query)))
	switch {
	case n <= 3:
		return 1
	case n >= 8:
		return 3
	default:
		return 2
	}
}

// FuzzyMatch checks if query fuzzy-matches text within a given threshold
// threshold is the maximum allowed edit distance
func FuzzyMatch(query, text string, threshold int) bool {
	query = Normalize(query)
	text = Normalize(text)
	if query == "" {
		return false
	}
	if strings.Contains(text, query) {
		return true
	}

	q := []rune(query)
	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, query) || distance(q, []rune(word)) <= threshold {
			return true
		}
	}
	return false
}

// MatchAny reports whether query fuzzy-matches any of the fields.
func MatchAny(query string, fields ...string) bool {
	threshold := Threshold(query)
	for _, f := range fields {
		if FuzzyMatch(query, f, threshold) {
			return true
		}
	}
	return false
}

// Rank scores how well a stored email answers query. Higher is better; 0 means
// no match. Subject hits outweigh sender hits, which outweigh snippet hits.
func Rank(query, subject, sender, snippet string) float64 {
	query = Normalize(query)
	if query == "" {
		return 0
	}
	q := []rune(query)

	score := fieldScore(q, query, Normalize(subject), 100, 50)
	score += fieldScore(q, query, Normalize(sender), 60, 30)
	score += fieldScore(q, query, Normalize(snippet), 30, 15)
	return score
}

func fieldScore(q []rune, query, text string, exact, fuzzy float64) float64 {
	if text == "" {
		return 0
	}
	if strings.Contains(text, query) {
		if containsWord(text, query) {
			return exact * 1.5
		}
		return exact
	}

	best := 0.0
	for _, word := range strings.Fields(text) {
		s := 0.0
		if d := distance(q, []rune(word)); d <= 2 {
			s = fuzzy - float64(d)*fuzzy/4
		}
		if strings.HasPrefix(word, query) {
			s = max(s, fuzzy*0.8)
		}
		best = max(best, s)
	}
	return best
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips diacritics and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)
	if folded, _, err := transform.String(foldAccents, s); err == nil {
		s = folded
	}
	return strings.Join(strings.Fields(s), " ")
}

// containsWord checks if text contains query as a whole word
func containsWord(text, query string) bool {
	for _, word := range strings.Fields(text) {
		if strings.Trim(word, ".,:;!?()[]<>\"'") == query {
			return true
		}
	}
	return false
}
