package ui

import (
	"strings"

	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
)

const (
	cellMaxWidth = 50
	cellTail     = "..."
	columnGap    = "  "
)

var cellWhitespace = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

// Table renders rows as left-aligned columns under a header line. Widths
// count terminal cells, so wide runes and ANSI styling line up.
type Table struct {
	rows [][]string
}

// NewTable starts a table with the given header row.
func NewTable(headers ...string) *Table {
	t := &Table{}
	t.rows = append(t.rows, cleanCells(headers, false))
	return t
}

// AddRow appends a row. Line breaks become spaces and long cells are cut
// with "...".
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cleanCells(cells, true))
}

// Len returns the number of rows below the header.
func (t *Table) Len() int {
	return len(t.rows) - 1
}

func (t *Table) String() string {
	var widths []int
	for _, row := range t.rows {
		for i, cell := range row {
			if i == len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], ansi.PrintableRuneWidth(cell))
		}
	}

	var b strings.Builder
	for _, row := range t.rows {
		last := len(row) - 1
		for i, cell := range row {
			b.WriteString(cell)
			if i < last {
				b.WriteString(strings.Repeat(" ", widths[i]-ansi.PrintableRuneWidth(cell)))
				b.WriteString(columnGap)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func cleanCells(cells []string, limit bool) []string {
	cleaned := make([]string, len(cells))
	for i, cell := range cells {
		cell = cellWhitespace.Replace(cell)
		if limit && ansi.PrintableRuneWidth(cell) > cellMaxWidth {
			cell = truncate.StringWithTail(cell, cellMaxWidth, cellTail)
		}
		cleaned[i] = cell
	}
	return cleaned
}
