package scene

import (
	"time"

	"github.com/draup/assetexplorer/explorer/pkg/timefmt"
	"github.com/draup/assetexplorer/explorer/pkg/timerange"
	"github.com/draup/assetexplorer/nft/pkg/transfer"
)

const (
	SelectedColor = "#6f6"
	DefaultColor  = "#F7B5CD"
	HiddenColor   = "#bcbcbc"
)

// NoSelection marks that no point is selected.
const NoSelection = -1

// PointState is the derived color and visibility of one record's point.
type PointState struct {
	Index    int    `json:"index"`
	Color    string `json:"color"`
	Display  string `json:"display"`
	Visible  bool   `json:"visible"`
	Selected bool   `json:"selected"`
}

// Classify derives every point's state for the selected index and cursor day.
// A point is visible while the asset was in the wallet on the cursor day: it
// arrived at or before the cursor and left after it. Points missing either
// timestamp are hidden, held assets included.
func Classify(records []transfer.Record, selected int, cursorDay int64, loc *time.Location) []PointState {
	cutoff := float64(cursorDay * timerange.SecondsPerDay)
	out := make([]PointState, len(records))
	for i, rec := range records {
		st := PointState{Index: i, Color: DefaultColor, Display: HiddenColor}
		if i == selected {
			st.Selected = true
			st.Color = SelectedColor
		}
		if Visible(rec, cutoff, loc) {
			st.Visible = true
			st.Display = DefaultColor
		}
		out[i] = st
	}
	return out
}

// Visible applies the visibility rule at a cutoff in epoch seconds.
func Visible(rec transfer.Record, cutoff float64, loc *time.Location) bool {
	in, ok := epochSeconds(rec.InboundAt, loc)
	if !ok {
		return false
	}
	out, ok := epochSeconds(rec.OutboundAt, loc)
	if !ok {
		return false
	}
	return out > cutoff && in <= cutoff
}

func epochSeconds(raw string, loc *time.Location) (float64, bool) {
	t, ok := timefmt.ParseSQL(raw, loc)
	if !ok {
		return 0, false
	}
	return float64(t.UnixNano()) / float64(time.Second), true
}
