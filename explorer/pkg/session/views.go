package session

import (
	"time"

	"github.com/draup/assetexplorer/explorer/pkg/scene"
	"github.com/draup/assetexplorer/explorer/pkg/table"
	"github.com/draup/assetexplorer/explorer/pkg/timerange"
	"github.com/draup/assetexplorer/nft/pkg/transfer"
)

// Table renders the current table page.
func (s *Session) Table() table.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Page(s.fmt, s.locale, s.timezone)
}

// SetFilterInput records the filter text and applies it once typing pauses.
func (s *Session) SetFilterInput(q string) {
	s.mu.Lock()
	s.filterInput = q
	s.notifyLocked()
	s.mu.Unlock()

	s.filter.Trigger(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.table.SetFilter(q)
		s.notifyLocked()
	})
}

// FlushFilter applies a pending filter immediately.
func (s *Session) FlushFilter() bool {
	return s.filter.Flush()
}

func (s *Session) FilterPending() bool {
	return s.filter.Pending()
}

func (s *Session) ToggleSort(id table.ColumnID) (table.Sorting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sorting, err := s.table.ToggleSort(id)
	if err != nil {
		return sorting, err
	}
	s.notifyLocked()
	return sorting, nil
}

func (s *Session) SetSort(id table.ColumnID, dir table.SortDirection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.table.SetSort(id, dir); err != nil {
		return err
	}
	s.notifyLocked()
	return nil
}

// PageAction moves through table pages.
type PageAction string

const (
	PageFirst PageAction = "first"
	PagePrev  PageAction = "prev"
	PageNext  PageAction = "next"
	PageLast  PageAction = "last"
	PageGoto  PageAction = "goto"
)

// Paginate applies a page action. index is only read by PageGoto.
func (s *Session) Paginate(action PageAction, index int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch action {
	case PageFirst:
		s.table.SetPageIndex(0)
	case PagePrev:
		s.table.PrevPage()
	case PageNext:
		s.table.NextPage()
	case PageLast:
		s.table.SetPageIndex(s.table.PageCount() - 1)
	case PageGoto:
		s.table.SetPageIndex(index)
	default:
		return s.table.PageIndex(), ErrInvalidPageAction
	}
	s.notifyLocked()
	return s.table.PageIndex(), nil
}

func (s *Session) SetPageSize(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.table.SetPageSize(n); err != nil {
		return err
	}
	s.notifyLocked()
	return nil
}

// Selection is the detail panel of the selected point.
type Selection struct {
	Index   int              `json:"index"`
	Summary transfer.Summary `json:"summary"`
}

// Explorer is the 3D view snapshot.
type Explorer struct {
	Range     timerange.Range    `json:"range"`
	Cursor    int64              `json:"cursor"`
	ViewAsOf  string             `json:"viewAsOf"`
	Layout    scene.Layout       `json:"layout"`
	Points    []scene.PointState `json:"points"`
	Selected  *Selection         `json:"selected,omitempty"`
	Frame     scene.Frame        `json:"frame"`
	Animating bool               `json:"animating"`
}

func (s *Session) Explorer() Explorer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.explorerLocked()
}

func (s *Session) explorerLocked() Explorer {
	ex := Explorer{
		Range:     s.rng,
		Cursor:    s.cursor,
		ViewAsOf:  s.fmt.FormatInstantDate(timerange.DayStart(s.cursor), s.locale, s.timezone),
		Layout:    s.scene.Layout(),
		Points:    scene.Classify(s.records, s.selected, s.cursor, s.cfg.NaiveLocation),
		Frame:     s.scene.Frame(),
		Animating: s.scene.Animating(),
	}
	if s.selected >= 0 && s.selected < len(s.records) {
		rec := s.records[s.selected]
		sum := rec.Summary()
		sum.InboundAt = s.fmt.FormatDate(rec.InboundAt, s.locale, s.timezone)
		sum.OutboundAt = s.fmt.FormatDate(rec.OutboundAt, s.locale, s.timezone)
		ex.Selected = &Selection{Index: s.selected, Summary: sum}
	}
	return ex
}

// SetCursor moves the time cursor, clamped to the derived range.
func (s *Session) SetCursor(day int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = s.rng.Clamp(day)
	s.notifyLocked()
	return s.cursor
}

func (s *Session) SetLayout(layout scene.Layout) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.scene.SetLayout(layout)
	if changed {
		s.notifyLocked()
	}
	return changed
}

// PointerDown records where a press started.
func (s *Session) PointerDown(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointer.Down(x, y)
}

// Click selects the point when the pointer travelled no further than the
// click threshold since PointerDown. It reports whether the selection
// changed.
func (s *Session) Click(index int, x, y float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.records) {
		return false, ErrInvalidPoint
	}
	if !s.pointer.Click(x, y) {
		return false, nil
	}
	s.selected = index
	s.notifyLocked()
	return true, nil
}

// Tick advances the scene by dt and reports whether transforms were pushed.
func (s *Session) Tick(dt time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene.Tick(dt)
}

func (s *Session) Frame() scene.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene.Frame()
}

func (s *Session) Animating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene.Animating()
}
