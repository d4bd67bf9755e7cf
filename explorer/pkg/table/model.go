package table

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/draup/assetexplorer/explorer/pkg/fuzzy"
	"github.com/draup/assetexplorer/nft/pkg/transfer"
)

// PageSizes are the selectable page sizes.
var PageSizes = []int{10, 20, 30, 40, 50}

const DefaultPageSize = 10

type SortDirection string

const (
	SortNone SortDirection = ""
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

var (
	ErrUnknownColumn   = errors.New("unknown column")
	ErrNotSortable     = errors.New("column is not sortable")
	ErrInvalidPageSize = errors.New("invalid page size")
	ErrInvalidSort     = errors.New("invalid sort direction")
)

// Sorting is the single active sort, if any.
type Sorting struct {
	Column    ColumnID      `json:"column,omitempty"`
	Direction SortDirection `json:"direction,omitempty"`
}

type row struct {
	index int
	rank  fuzzy.Ranking
}

// Model holds the table state for one record set. It is not safe for
// concurrent use.
type Model struct {
	records   []transfer.Record
	filter    string
	sorting   Sorting
	pageIndex int
	pageSize  int

	rows []row
}

func NewModel() *Model {
	m := &Model{pageSize: DefaultPageSize}
	m.recompute()
	return m
}

// SetRecords replaces the record set and returns to the first page.
func (m *Model) SetRecords(records []transfer.Record) {
	m.records = records
	m.pageIndex = 0
	m.recompute()
}

func (m *Model) Records() []transfer.Record { return m.records }

// Count is the number of loaded records, ignoring the filter.
func (m *Model) Count() int { return len(m.records) }

// FilteredCount is the number of records passing the filter.
func (m *Model) FilteredCount() int { return len(m.rows) }

func (m *Model) Filter() string { return m.filter }

// SetFilter applies a global filter and returns to the first page.
func (m *Model) SetFilter(q string) {
	if q == m.filter {
		return
	}
	m.filter = q
	m.pageIndex = 0
	m.recompute()
}

func (m *Model) Sorting() Sorting { return m.sorting }

// ToggleSort advances a column through ascending, descending and unsorted.
// Selecting a different column starts it at ascending.
func (m *Model) ToggleSort(id ColumnID) (Sorting, error) {
	next := SortAsc
	if m.sorting.Column == id {
		switch m.sorting.Direction {
		case SortAsc:
			next = SortDesc
		case SortDesc:
			next = SortNone
		}
	}
	if err := m.SetSort(id, next); err != nil {
		return m.sorting, err
	}
	return m.sorting, nil
}

// SetSort sets the active sort. SortNone clears it.
func (m *Model) SetSort(id ColumnID, dir SortDirection) error {
	col, ok := LookupColumn(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, id)
	}
	if !col.Sortable {
		return fmt.Errorf("%w: %q", ErrNotSortable, id)
	}
	switch dir {
	case SortNone:
		m.sorting = Sorting{}
	case SortAsc, SortDesc:
		m.sorting = Sorting{Column: id, Direction: dir}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSort, dir)
	}
	m.pageIndex = 0
	m.recompute()
	return nil
}

func (m *Model) PageIndex() int { return m.pageIndex }
func (m *Model) PageSize() int  { return m.pageSize }

// PageCount is ceil(filtered rows / page size).
func (m *Model) PageCount() int {
	return (len(m.rows) + m.pageSize - 1) / m.pageSize
}

func (m *Model) CanPrev() bool { return m.pageIndex > 0 }
func (m *Model) CanNext() bool { return m.pageIndex < m.PageCount()-1 }

// NextPage advances one page. It is a no-op on the last page.
func (m *Model) NextPage() bool {
	if !m.CanNext() {
		return false
	}
	m.pageIndex++
	return true
}

// PrevPage goes back one page. It is a no-op on the first page.
func (m *Model) PrevPage() bool {
	if !m.CanPrev() {
		return false
	}
	m.pageIndex--
	return true
}

// SetPageIndex moves to a page, clamped to the valid range.
func (m *Model) SetPageIndex(i int) {
	m.pageIndex = m.clampPage(i)
}

func (m *Model) clampPage(i int) int {
	last := max(m.PageCount()-1, 0)
	return min(max(i, 0), last)
}

// SetPageSize changes the page size, keeping the current top row visible.
func (m *Model) SetPageSize(n int) error {
	if !slices.Contains(PageSizes, n) {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, n)
	}
	top := m.pageIndex * m.pageSize
	m.pageSize = n
	m.pageIndex = m.clampPage(top / n)
	return nil
}

// PageRecords returns the records on the current page.
func (m *Model) PageRecords() []transfer.Record {
	rows := m.pageRows()
	out := make([]transfer.Record, len(rows))
	for i, r := range rows {
		out[i] = m.records[r.index]
	}
	return out
}

func (m *Model) pageRows() []row {
	start := min(m.pageIndex*m.pageSize, len(m.rows))
	end := min(start+m.pageSize, len(m.rows))
	return m.rows[start:end]
}

func (m *Model) recompute() {
	rows := make([]row, 0, len(m.records))
	q := m.filter
	for i, rec := range m.records {
		if q == "" {
			rows = append(rows, row{index: i})
			continue
		}
		best := fuzzy.Ranking{}
		for _, col := range Columns {
			if !col.Filterable {
				continue
			}
			if r := fuzzy.Best(col.filterValues(rec), q); r.Rank > best.Rank {
				best = r
			}
		}
		if best.Passed {
			rows = append(rows, row{index: i, rank: best})
		}
	}

	if m.sorting.Direction != SortNone {
		col, _ := LookupColumn(m.sorting.Column)
		desc := m.sorting.Direction == SortDesc
		slices.SortStableFunc(rows, func(a, b row) int {
			av := col.Accessor(m.records[a.index])
			bv := col.Accessor(m.records[b.index])
			// Empty values stay last in either direction.
			switch {
			case av == "" && bv == "":
				return 0
			case av == "":
				return 1
			case bv == "":
				return -1
			}
			c := compareAlphanumeric(av, bv)
			if desc {
				return -c
			}
			return c
		})
	}

	m.rows = rows
	m.pageIndex = m.clampPage(m.pageIndex)
}

// compareAlphanumeric compares case-insensitively, ordering digit runs by
// numeric value.
func compareAlphanumeric(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	for a != "" && b != "" {
		ad, bd := isDigit(a[0]), isDigit(b[0])
		switch {
		case ad && bd:
			an, arest := splitDigits(a)
			bn, brest := splitDigits(b)
			if c := compareNumeric(an, bn); c != 0 {
				return c
			}
			a, b = arest, brest
		case ad != bd:
			if ad {
				return -1
			}
			return 1
		default:
			if a[0] != b[0] {
				if a[0] < b[0] {
					return -1
				}
				return 1
			}
			a, b = a[1:], b[1:]
		}
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func splitDigits(s string) (string, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
