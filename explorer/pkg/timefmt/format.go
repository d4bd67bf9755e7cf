package timefmt

import (
	"strings"
	"time"
	// Zone data for minimal containers without /usr/share/zoneinfo.
	_ "time/tzdata"
)

const DefaultTimezone = "America/New_York"

var (
	zonedLayouts = []string{
		"2006-01-02 15:04:05 -07:00",
		"2006-01-02 15:04:05 -0700",
		"2006-01-02 15:04:05Z07:00",
		time.RFC3339Nano,
	}
	naiveLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// ParseSQL parses a DB-style timestamp. Strings without an offset are read in
// loc. Fractional seconds are optional.
func ParseSQL(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// LoadLocation returns the named zone, or UTC when it is unknown.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Formatter renders raw timestamps for display. Generic display timestamps
// are parsed in NaiveLocation; outbound timestamps are absolute UTC instants.
type Formatter struct {
	NaiveLocation *time.Location
}

// NewFormatter parses naive timestamps in the process's local zone.
func NewFormatter() Formatter {
	return Formatter{NaiveLocation: time.Local}
}

func (f Formatter) naive() *time.Location {
	if f.NaiveLocation == nil {
		return time.Local
	}
	return f.NaiveLocation
}

// FormatDate renders the calendar date of a naive timestamp in tz.
func (f Formatter) FormatDate(raw, locale, tz string) string {
	t, ok := ParseSQL(raw, f.naive())
	if !ok {
		return ""
	}
	return t.In(LoadLocation(tz)).Format(patternFor(locale).date)
}

// FormatTime renders the time of day of a UTC timestamp in tz.
func (f Formatter) FormatTime(raw, locale, tz string) string {
	t, ok := ParseSQL(raw, time.UTC)
	if !ok {
		return ""
	}
	return t.In(LoadLocation(tz)).Format(patternFor(locale).time)
}

// FormatInstantDate renders the calendar date of an absolute instant.
func (f Formatter) FormatInstantDate(t time.Time, locale, tz string) string {
	return t.In(LoadLocation(tz)).Format(patternFor(locale).date)
}

// Seconds returns the epoch seconds of a naive timestamp, including the
// fractional part.
func (f Formatter) Seconds(raw string) (float64, bool) {
	t, ok := ParseSQL(raw, f.naive())
	if !ok {
		return 0, false
	}
	return float64(t.UnixNano()) / float64(time.Second), true
}
