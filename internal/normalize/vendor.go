package normalize

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"receipt-diagnoser/internal/domain"
)

// processorPrefixes are card-processor markers that precede the real merchant name.
var processorPrefixes = []string{
	"sq *",
	"sq*",
	"pp*",
	"pp *",
	"tst*",
	"tst *",
	"grub*",
	"dd *",
	"ue *",
}

// trailingNoise is stripped from the end of a name until none remains.
var trailingNoise = map[string]bool{
	"inc":        true,
	"llc":        true,
	"corp":       true,
	"ltd":        true,
	"co":         true,
	"company":    true,
	"restaurant": true,
	"rest":       true,
	"rstrt":      true,
	"store":      true,
	"stores":     true,
	"services":   true,
	"service":    true,
	"svc":        true,
}

var vendorAliases = map[string]string{
	"amzn":             "amazon",
	"amzn mktp":        "amazon",
	"amazon.com":       "amazon",
	"wmt":              "walmart",
	"wal-mart":         "walmart",
	"walmart.com":      "walmart",
	"sbux":             "starbucks",
	"starbux":          "starbucks",
	"hd supply":        "home depot",
	"the home depot":   "home depot",
	"homedepot":        "home depot",
	"costco whse":      "costco",
	"costco wholesale": "costco",
	"tgt":              "target",
	"target.com":       "target",
	"chick-fil-a":      "chick fil a",
	"mcd":              "mcdonalds",
	"mcdonald's":       "mcdonalds",
}

type alias struct {
	tokens    []string
	canonical []string
}

// aliases holds vendorAliases in token form, longest phrase first.
var aliases = buildAliases(vendorAliases)

var storeNumber = regexp.MustCompile(`#\s*\d+`)

func buildAliases(table map[string]string) []alias {
	out := make([]alias, 0, len(table))
	for raw, canonical := range table {
		tokens := strings.Fields(stripPunctuation(strings.ToLower(raw)))
		if len(tokens) == 0 {
			continue
		}
		out = append(out, alias{tokens: tokens, canonical: strings.Fields(canonical)})
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := len(strings.Join(out[i].tokens, " ")), len(strings.Join(out[j].tokens, " "))
		if li != lj {
			return li > lj
		}
		return strings.Join(out[i].tokens, " ") < strings.Join(out[j].tokens, " ")
	})
	return out
}

// Vendor reduces a receipt vendor or bank descriptor to its canonical token form.
// Applying Vendor to the String() of its own result yields the same value.
func Vendor(raw string) domain.NormalizedVendor {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return domain.NewNormalizedVendor(nil)
	}
	name = foldAccents(name)

	for _, prefix := range processorPrefixes {
		if strings.HasPrefix(name, prefix) {
			name = strings.TrimSpace(name[len(prefix):])
			break
		}
	}
	if i := strings.Index(name, "*"); i >= 0 {
		name = name[:i]
	}
	name = storeNumber.ReplaceAllString(name, "")
	name = stripPunctuation(name)

	tokens := domain.NewNormalizedVendor(strings.Fields(name)).Tokens()
	for len(tokens) > 0 && trailingNoise[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	if canonical, ok := resolveAlias(tokens); ok {
		tokens = canonical
	}

	v := domain.NewNormalizedVendor(tokens)
	slog.Debug("normalized vendor", "raw", raw, "normalized", v.String())
	return v
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// stripPunctuation keeps letters, digits and whitespace. Underscores become spaces,
// everything else is dropped so "joe's" reads as "joes".
func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '_':
			b.WriteRune(' ')
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// resolveAlias tries an exact phrase match, then a leading-token match, then a
// match anywhere in the token sequence.
func resolveAlias(tokens []string) ([]string, bool) {
	if len(tokens) == 0 {
		return nil, false
	}
	for _, a := range aliases {
		if equalTokens(tokens, a.tokens) {
			return a.canonical, true
		}
	}
	for _, a := range aliases {
		if len(tokens) >= len(a.tokens) && equalTokens(tokens[:len(a.tokens)], a.tokens) {
			return a.canonical, true
		}
	}
	for _, a := range aliases {
		for i := 1; i+len(a.tokens) <= len(tokens); i++ {
			if equalTokens(tokens[i:i+len(a.tokens)], a.tokens) {
				return a.canonical, true
			}
		}
	}
	return nil, false
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
