// Package report renders a transfers table page for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/draup/assetexplorer/explorer/pkg/table"
	"github.com/draup/assetexplorer/explorer/pkg/timefmt"
	"github.com/draup/assetexplorer/explorer/pkg/timerange"
)

// Options controls how dates are shown.
type Options struct {
	Formatter timefmt.Formatter
	Locale    string
	Timezone  string
}

// Headers are the column titles, with the incoming and outgoing groups
// folded into the leaf names.
func Headers() []string {
	out := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		if col.Group != "" {
			out[i] = col.Group + " " + col.Header
			continue
		}
		out[i] = col.Header
	}
	return out
}

// CellText flattens a rendered cell to a single line.
func CellText(c table.Cell) string {
	if c.Badge != nil {
		return c.Badge.Text
	}
	parts := make([]string, 0, 2)
	if c.Primary != "" {
		parts = append(parts, c.Primary)
	}
	if c.Secondary != "" {
		parts = append(parts, c.Secondary)
	}
	return strings.Join(parts, " ")
}

// Write prints the wallet heading, the page as a table and the slider range.
func Write(w io.Writer, wallet string, page table.Page, rng timerange.Range, opts Options) error {
	if _, err := fmt.Fprintf(w, "%s (%s)\n", wallet, table.FilterPlaceholder(page.Count)); err != nil {
		return err
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader(Headers())
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(false)
	for _, row := range page.Rows {
		line := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			line[i] = CellText(c)
		}
		tw.Append(line)
	}
	pageCount := max(page.PageCount, 1)
	footer := make([]string, len(table.Columns))
	footer[0] = fmt.Sprintf("page %d of %d", page.PageIndex+1, pageCount)
	footer[len(footer)-1] = fmt.Sprintf("%d/%d shown", len(page.Rows), page.FilteredCount)
	tw.SetFooter(footer)
	tw.Render()

	from := opts.Formatter.FormatInstantDate(timerange.DayStart(rng.MinDay), opts.Locale, opts.Timezone)
	to := opts.Formatter.FormatInstantDate(timerange.DayStart(rng.MaxDay), opts.Locale, opts.Timezone)
	suffix := ""
	if rng.Fallback {
		suffix = " (no complete transfers)"
	}
	_, err := fmt.Fprintf(w, "view as of: %s .. %s%s\n", from, to, suffix)
	return err
}
