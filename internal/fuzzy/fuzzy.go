// Package fuzzy scores how similar two action-item descriptions are.
package fuzzy

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Score returns a similarity in 0..100. It takes the better of a plain
// normalised edit-distance ratio and the same ratio over sorted tokens, so
// reordered words still score high.
func Score(a, b string) int {
	na, nb := normalize(a), normalize(b)
	if na == "" && nb == "" {
		return 100
	}
	return max(ratio(na, nb), ratio(sortTokens(na), sortTokens(nb)))
}

// Best returns the index and score of the candidate most similar to needle,
// or -1 when there are no candidates.
func Best(needle string, candidates []string) (int, int) {
	best, bestScore := -1, -1
	for i, c := range candidates {
		if s := Score(needle, c); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore
}

func ratio(a, b string) int {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 100
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	return max(0, (100*(total-dist)+total/2)/total)
}

func normalize(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

func sortTokens(s string) string {
	fields := strings.Fields(s)
	sort.Strings(fields)
	return strings.Join(fields, " ")
}
