package fuzzy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tier is the coarse match class. Higher tiers are better matches.
type Tier int

const (
	NoMatch Tier = iota
	Matches
	Acronym
	Contains
	WordStartsWith
	StartsWith
	Equal
	CaseSensitiveEqual
)

func (t Tier) String() string {
	switch t {
	case CaseSensitiveEqual:
		return "case-sensitive-equal"
	case Equal:
		return "equal"
	case StartsWith:
		return "starts-with"
	case WordStartsWith:
		return "word-starts-with"
	case Contains:
		return "contains"
	case Acronym:
		return "acronym"
	case Matches:
		return "matches"
	default:
		return "no-match"
	}
}

// Ranking is the result of matching one value against a query.
type Ranking struct {
	Passed bool    `json:"passed"`
	Rank   float64 `json:"rank"`
	Tier   Tier    `json:"tier"`
}

// Threshold is the lowest tier that passes.
const Threshold = Matches

// Rank scores value against query. Subsequence matches score between
// Matches and Acronym, higher when the matched characters sit closer
// together.
func Rank(value, query string) Ranking {
	rank := rank(value, query)
	return Ranking{
		Passed: rank >= float64(Threshold),
		Rank:   rank,
		Tier:   Tier(int(rank)),
	}
}

// Best returns the highest ranking of query over values.
func Best(values []string, query string) Ranking {
	best := Ranking{Tier: NoMatch}
	for _, v := range values {
		if r := Rank(v, query); r.Rank > best.Rank {
			best = r
		}
	}
	return best
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func fold(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return out
}

func rank(value, query string) float64 {
	value = fold(value)
	query = fold(query)

	v := []rune(value)
	q := []rune(query)
	if len(q) > len(v) {
		return float64(NoMatch)
	}
	if value == query {
		return float64(CaseSensitiveEqual)
	}

	lv := strings.ToLower(value)
	lq := strings.ToLower(query)
	switch {
	case lv == lq:
		return float64(Equal)
	case strings.HasPrefix(lv, lq):
		return float64(StartsWith)
	case strings.Contains(lv, " "+lq):
		return float64(WordStartsWith)
	case strings.Contains(lv, lq):
		return float64(Contains)
	case len(q) == 1:
		return float64(NoMatch)
	case strings.Contains(acronym(lv), lq):
		return float64(Acronym)
	}
	return closeness([]rune(lv), []rune(lq))
}

func acronym(s string) string {
	var b strings.Builder
	for _, word := range strings.Split(s, " ") {
		for _, part := range strings.Split(word, "-") {
			for _, r := range part {
				b.WriteRune(r)
				break
			}
		}
	}
	return b.String()
}

// closeness finds query's characters in order within value and scores the
// spread between the first and last match.
func closeness(value, query []rune) float64 {
	next := 0
	matched := 0
	find := func(r rune) int {
		for j := next; j < len(value); j++ {
			if value[j] == r {
				matched++
				return j + 1
			}
		}
		return -1
	}

	first := find(query[0])
	if first < 0 {
		return float64(NoMatch)
	}
	next = first
	for _, r := range query[1:] {
		next = find(r)
		if next < 0 {
			return float64(NoMatch)
		}
	}
	spread := next - first
	if spread < 1 {
		spread = 1
	}
	inOrder := float64(matched) / float64(len(query))
	return float64(Matches) + inOrder/float64(spread)
}
