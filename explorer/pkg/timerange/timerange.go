package timerange

import (
	"math"
	"time"

	"github.com/draup/assetexplorer/explorer/pkg/timefmt"
	"github.com/draup/assetexplorer/nft/pkg/transfer"
)

const (
	SecondsPerDay = 86400
	// UpperPadding keeps the latest activity inside the slider rather than on
	// its edge.
	UpperPadding = 3 * SecondsPerDay

	FallbackMinSeconds = 1632460349
	FallbackMaxSeconds = 1642460349
)

// Range is the legal span of the time cursor.
type Range struct {
	MinSeconds float64 `json:"minSeconds"`
	MaxSeconds float64 `json:"maxSeconds"`
	MinDay     int64   `json:"minDay"`
	MaxDay     int64   `json:"maxDay"`
	// Fallback is set when no record had both timestamps.
	Fallback bool `json:"fallback"`
}

// Fallback is the range used when nothing qualifies.
func Fallback() Range {
	return fromSeconds(FallbackMinSeconds, FallbackMaxSeconds, true)
}

// Derive computes the cursor range from records whose inbound and outbound
// timestamps both parse: the earliest arrival up to the latest departure plus
// padding. Naive timestamps are read in loc.
func Derive(records []transfer.Record, loc *time.Location) Range {
	minSec := math.Inf(1)
	maxSec := math.Inf(-1)
	found := false
	for _, rec := range records {
		in, ok := seconds(rec.InboundAt, loc)
		if !ok {
			continue
		}
		out, ok := seconds(rec.OutboundAt, loc)
		if !ok {
			continue
		}
		found = true
		minSec = math.Min(minSec, in)
		maxSec = math.Max(maxSec, out)
	}
	if !found {
		return Fallback()
	}
	return fromSeconds(minSec, maxSec+UpperPadding, false)
}

func fromSeconds(minSec, maxSec float64, fallback bool) Range {
	r := Range{
		MinSeconds: minSec,
		MaxSeconds: maxSec,
		MinDay:     int64(math.Floor(minSec / SecondsPerDay)),
		MaxDay:     int64(math.Ceil(maxSec / SecondsPerDay)),
		Fallback:   fallback,
	}
	if r.MaxDay < r.MinDay {
		r.MaxDay = r.MinDay
	}
	return r
}

func seconds(raw string, loc *time.Location) (float64, bool) {
	t, ok := timefmt.ParseSQL(raw, loc)
	if !ok {
		return 0, false
	}
	s := float64(t.UnixNano()) / float64(time.Second)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0, false
	}
	return s, true
}

// Clamp limits a cursor day to the range.
func (r Range) Clamp(day int64) int64 {
	return min(max(day, r.MinDay), r.MaxDay)
}

// Contains reports whether day lies within the range.
func (r Range) Contains(day int64) bool {
	return day >= r.MinDay && day <= r.MaxDay
}

// DayStart is the instant a cursor day begins.
func DayStart(day int64) time.Time {
	return time.Unix(day*SecondsPerDay, 0).UTC()
}
