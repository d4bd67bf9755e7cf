package timefmt

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

// LocaleParam is the query parameter that overrides Accept-Language.
const LocaleParam = "locale"

type pattern struct {
	date string
	time string
}

var supportedTags = []language.Tag{
	language.AmericanEnglish,
	language.BritishEnglish,
	language.German,
	language.French,
	language.Spanish,
	language.Italian,
	language.BrazilianPortuguese,
	language.Dutch,
	language.Russian,
	language.Japanese,
	language.Chinese,
}

// Short-date and simple-time layouts per supported tag, index-aligned with
// supportedTags.
var patterns = []pattern{
	{date: "1/2/2006", time: "3:04 PM"},
	{date: "02/01/2006", time: "15:04"},
	{date: "2.1.2006", time: "15:04"},
	{date: "02/01/2006", time: "15:04"},
	{date: "2/1/2006", time: "15:04"},
	{date: "2/1/2006", time: "15:04"},
	{date: "02/01/2006", time: "15:04"},
	{date: "2-1-2006", time: "15:04"},
	{date: "02.01.2006", time: "15:04"},
	{date: "2006/1/2", time: "15:04"},
	{date: "2006/1/2", time: "15:04"},
}

var tagMatcher = language.NewMatcher(supportedTags)

// DefaultLocale is used when nothing better matches.
func DefaultLocale() string {
	return language.AmericanEnglish.String()
}

// Supported lists the locales with dedicated layouts.
func Supported() []string {
	out := make([]string, len(supportedTags))
	for i, tag := range supportedTags {
		out[i] = tag.String()
	}
	return out
}

// MatchLocale maps an arbitrary BCP 47 identifier to the closest supported
// locale.
func MatchLocale(locale string) string {
	return supportedTags[matchIndex(locale)].String()
}

func matchIndex(locale string) int {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return 0
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return 0
	}
	_, idx, conf := tagMatcher.Match(tag)
	if conf == language.No {
		return 0
	}
	return idx
}

func patternFor(locale string) pattern {
	return patterns[matchIndex(locale)]
}

// ResolveLocale picks the request's locale from the locale query parameter,
// then Accept-Language.
func ResolveLocale(r *http.Request) string {
	if r == nil {
		return DefaultLocale()
	}
	if v := strings.TrimSpace(r.URL.Query().Get(LocaleParam)); v != "" {
		if _, err := language.Parse(v); err == nil {
			return MatchLocale(v)
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			_, idx, conf := tagMatcher.Match(tags...)
			if conf != language.No {
				return supportedTags[idx].String()
			}
		}
	}
	return DefaultLocale()
}
