package table

import (
	"strconv"

	"github.com/draup/assetexplorer/explorer/pkg/fuzzy"
	"github.com/draup/assetexplorer/explorer/pkg/timefmt"
	"github.com/draup/assetexplorer/nft/pkg/transfer"
)

const (
	collectionURL = "https://gem.xyz/collection/"
	addressURL    = "https://etherscan.io/address/"
	txURL         = "https://etherscan.io/tx/"

	txLinkText = "tx"
	mintedText = "Minted"
)

// Badge is the status column's marker.
type Badge struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

var badges = map[transfer.OutboundType]Badge{
	transfer.OutboundBurned:      {Kind: "burned", Text: "🔥"},
	transfer.OutboundHeld:        {Kind: "held", Text: "In wallet"},
	transfer.OutboundTransferred: {Kind: "sent", Text: "Sent"},
}

// StatusBadge maps the outbound classification to its badge. Unknown labels
// have no badge.
func StatusBadge(t transfer.OutboundType) (Badge, bool) {
	b, ok := badges[t]
	return b, ok
}

type Cell struct {
	Column        ColumnID `json:"column"`
	Primary       string   `json:"primary,omitempty"`
	PrimaryURL    string   `json:"primaryUrl,omitempty"`
	Secondary     string   `json:"secondary,omitempty"`
	SecondaryURL  string   `json:"secondaryUrl,omitempty"`
	CollectionURL string   `json:"collectionUrl,omitempty"`
	Badge         *Badge   `json:"badge,omitempty"`
}

type Row struct {
	Index int           `json:"index"`
	Rank  fuzzy.Ranking `json:"rank"`
	Cells []Cell        `json:"cells"`
}

type Header struct {
	ID          string        `json:"id"`
	Label       string        `json:"label"`
	ColSpan     int           `json:"colSpan"`
	Placeholder bool          `json:"placeholder,omitempty"`
	Sortable    bool          `json:"sortable,omitempty"`
	Sorted      SortDirection `json:"sorted,omitempty"`
}

// Page is one rendered page of the table.
type Page struct {
	HeaderGroups  [][]Header `json:"headerGroups"`
	Rows          []Row      `json:"rows"`
	Filter        string     `json:"filter"`
	Placeholder   string     `json:"placeholder"`
	Sorting       Sorting    `json:"sorting"`
	PageIndex     int        `json:"pageIndex"`
	PageSize      int        `json:"pageSize"`
	PageSizes     []int      `json:"pageSizes"`
	PageCount     int        `json:"pageCount"`
	CanPrev       bool       `json:"canPrev"`
	CanNext       bool       `json:"canNext"`
	Count         int        `json:"count"`
	FilteredCount int        `json:"filteredCount"`
}

// FilterPlaceholder is the filter input hint for a record count.
func FilterPlaceholder(count int) string {
	switch count {
	case 0:
		return "loading ..."
	case 1:
		return "1 record ..."
	default:
		return strconv.Itoa(count) + " records ..."
	}
}

// Page renders the current page for a locale and timezone.
func (m *Model) Page(f timefmt.Formatter, locale, tz string) Page {
	pageRows := m.pageRows()
	rows := make([]Row, len(pageRows))
	for i, r := range pageRows {
		rec := m.records[r.index]
		cells := make([]Cell, len(Columns))
		for j, col := range Columns {
			cells[j] = RenderCell(col, rec, f, locale, tz)
		}
		rows[i] = Row{Index: r.index, Rank: r.rank, Cells: cells}
	}

	return Page{
		HeaderGroups:  m.headerGroups(),
		Rows:          rows,
		Filter:        m.filter,
		Placeholder:   FilterPlaceholder(len(m.records)),
		Sorting:       m.sorting,
		PageIndex:     m.pageIndex,
		PageSize:      m.pageSize,
		PageSizes:     PageSizes,
		PageCount:     m.PageCount(),
		CanPrev:       m.CanPrev(),
		CanNext:       m.CanNext(),
		Count:         len(m.records),
		FilteredCount: len(m.rows),
	}
}

// headerGroups returns a group row, with placeholders above ungrouped
// columns, followed by the leaf row.
func (m *Model) headerGroups() [][]Header {
	var top []Header
	leaves := make([]Header, 0, len(Columns))
	for _, col := range Columns {
		if col.Group == "" {
			top = append(top, Header{ID: string(col.ID) + "_placeholder", ColSpan: 1, Placeholder: true})
		} else if n := len(top); n > 0 && !top[n-1].Placeholder && top[n-1].Label == col.Group {
			top[n-1].ColSpan++
		} else {
			top = append(top, Header{ID: col.Group, Label: col.Group, ColSpan: 1})
		}

		h := Header{ID: string(col.ID), Label: col.Header, ColSpan: 1, Sortable: col.Sortable}
		if m.sorting.Column == col.ID {
			h.Sorted = m.sorting.Direction
		}
		leaves = append(leaves, h)
	}
	return [][]Header{top, leaves}
}

// RenderCell renders one record's value for a column.
func RenderCell(col Column, rec transfer.Record, f timefmt.Formatter, locale, tz string) Cell {
	cell := Cell{Column: col.ID}
	switch col.Kind {
	case KindCollection:
		cell.Primary = rec.ProjectName
		cell.Secondary = rec.ShortTokenID()
		if rec.ContractAddress != "" {
			cell.CollectionURL = collectionURL + rec.ContractAddress
		}

	case KindDateTime:
		raw := col.Accessor(rec)
		cell.Primary = f.FormatDate(raw, locale, tz)
		cell.Secondary = f.FormatTime(raw, locale, tz)

	case KindCounterparty:
		switch col.Side {
		case Inbound:
			if rec.InboundType == transfer.InboundMinted {
				cell.Primary = mintedText
			} else if rec.SourceAddress != "" {
				cell.Primary = MiddleEllipsize(rec.SourceAddress)
				cell.PrimaryURL = addressURL + rec.SourceAddress
			}
			if rec.InboundTxHash != "" {
				cell.Secondary = txLinkText
				cell.SecondaryURL = txURL + rec.InboundTxHash
			}
		case Outbound:
			// Blank until the asset leaves the wallet.
			if rec.OutboundTxHash == "" {
				return cell
			}
			if rec.TargetAddress != "" {
				cell.Primary = MiddleEllipsize(rec.TargetAddress)
				cell.PrimaryURL = addressURL + rec.TargetAddress
			}
			cell.Secondary = txLinkText
			cell.SecondaryURL = txURL + rec.OutboundTxHash
		}

	case KindStatus:
		if b, ok := StatusBadge(rec.OutboundType); ok {
			cell.Badge = &b
		}
	}
	return cell
}
