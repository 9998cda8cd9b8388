package usecase

import (
	"math"
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"receipt-diagnoser/internal/domain"
)

// VendorSimilarity scores two normalized vendors on 0..100. It takes the best of
// a whole-string edit ratio, the same ratio over sorted tokens, and token set
// overlap, so reordered or merged descriptor words still earn credit. The
// result is symmetric and rounded to one decimal. Both inputs must come from
// normalize.Vendor; the tokens are compared as given.
func VendorSimilarity(a, b domain.NormalizedVendor) float64 {
	if a.IsEmpty() || b.IsEmpty() {
		return 0
	}
	if a.Equal(b) {
		return 100
	}

	at, bt := a.Tokens(), b.Tokens()
	best := indelRatio(strings.Join(at, " "), strings.Join(bt, " "))
	best = math.Max(best, indelRatio(sortedJoin(at), sortedJoin(bt)))
	best = math.Max(best, diceOverlap(at, bt))
	return round1(math.Min(best, 100))
}

// indelRatio is 100 * (1 - insert/delete distance / combined length).
func indelRatio(a, b string) float64 {
	return levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions) * 100
}

func sortedJoin(tokens []string) string {
	sorted := make([]string, len(tokens))
	copy(sorted, tokens)
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}

// diceOverlap is 2|A∩B| / (|A|+|B|) over token sets, scaled to 100.
func diceOverlap(a, b []string) float64 {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	shared := 0
	for _, t := range b {
		if set[t] {
			shared++
		}
	}
	return float64(2*shared) / float64(len(a)+len(b)) * 100
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
