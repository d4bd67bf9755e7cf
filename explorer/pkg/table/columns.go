package table

import (
	"github.com/draup/assetexplorer/nft/pkg/transfer"
)

type ColumnID string

const (
	ColCollection           ColumnID = "collection"
	ColIncomingDate         ColumnID = "incoming_date"
	ColIncomingCounterparty ColumnID = "incoming_counterparty"
	ColOutgoingCounterparty ColumnID = "outgoing_counterparty"
	ColOutgoingDate         ColumnID = "outgoing_date"
	ColStatus               ColumnID = "status"
)

// CellKind selects how a column's cells are rendered.
type CellKind string

const (
	KindCollection   CellKind = "collection"
	KindDateTime     CellKind = "datetime"
	KindCounterparty CellKind = "counterparty"
	KindStatus       CellKind = "status"
)

// Direction names which side of a transfer a cell describes.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Column is one leaf column of the transfers table.
type Column struct {
	ID     ColumnID
	Header string
	Group  string
	Kind   CellKind
	Side   Direction
	// Accessor returns the raw value used for sorting.
	Accessor func(transfer.Record) string
	// FilterValues returns the raw values the global filter matches against.
	// Nil means the accessor value alone.
	FilterValues func(transfer.Record) []string
	Filterable   bool
	Sortable     bool
}

func (c Column) filterValues(r transfer.Record) []string {
	if c.FilterValues != nil {
		return c.FilterValues(r)
	}
	return []string{c.Accessor(r)}
}

const (
	groupIncoming = "incoming"
	groupOutgoing = "outgoing"
)

// Columns are the table's leaf columns in display order.
var Columns = []Column{
	{
		ID:         ColCollection,
		Header:     "Collection",
		Kind:       KindCollection,
		Accessor:   func(r transfer.Record) string { return r.ProjectName },
		Filterable: true,
		Sortable:   true,
	},
	{
		ID:         ColIncomingDate,
		Header:     "date",
		Group:      groupIncoming,
		Kind:       KindDateTime,
		Side:       Inbound,
		Accessor:   func(r transfer.Record) string { return r.InboundAt },
		Filterable: true,
		Sortable:   true,
	},
	{
		ID:       ColIncomingCounterparty,
		Header:   "counterparty",
		Group:    groupIncoming,
		Kind:     KindCounterparty,
		Side:     Inbound,
		Accessor: func(r transfer.Record) string { return r.SourceAddress },
		FilterValues: func(r transfer.Record) []string {
			return []string{r.SourceAddress, r.InboundTxHash}
		},
		Filterable: true,
		Sortable:   true,
	},
	{
		ID:       ColOutgoingCounterparty,
		Header:   "counterparty",
		Group:    groupOutgoing,
		Kind:     KindCounterparty,
		Side:     Outbound,
		Accessor: func(r transfer.Record) string { return r.TargetAddress },
		FilterValues: func(r transfer.Record) []string {
			return []string{r.TargetAddress, r.OutboundTxHash}
		},
		Filterable: true,
		Sortable:   true,
	},
	{
		ID:         ColOutgoingDate,
		Header:     "date",
		Group:      groupOutgoing,
		Kind:       KindDateTime,
		Side:       Outbound,
		Accessor:   func(r transfer.Record) string { return r.OutboundAt },
		Filterable: false,
		Sortable:   true,
	},
	{
		ID:         ColStatus,
		Header:     "status",
		Kind:       KindStatus,
		Accessor:   func(r transfer.Record) string { return string(r.OutboundType) },
		Filterable: true,
		Sortable:   true,
	},
}

// LookupColumn finds a leaf column by id.
func LookupColumn(id ColumnID) (Column, bool) {
	for _, c := range Columns {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}
