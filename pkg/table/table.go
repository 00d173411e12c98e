// Package table provides a simple tabular container with CSV and text output.
//
// A typical use:
//
//	type myRow struct {
//	  Name string
//	  Age  int
//	}
//
//	func (r myRow) Cells() []string {
//	  return []string{r.Name, strconv.Itoa(r.Age)}
//	}
//
//	tbl := table.New("Name", "Age")
//	tbl.AddRow(myRow{"John", 25}, myRow{"Jane", 24})
//	err := tbl.WriteCSV(os.Stdout, table.Params{})
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Row is a single table row, the number of cells must match the table header, if any.
type Row interface {
	Cells() []string
}

// Table is an ordered container of rows with an optional header.
type Table struct {
	Header []string
	Rows   []Row
}

// New creates a new Table with optional column headers.
func New(header ...string) *Table {
	return &Table{Header: header}
}

// AddRow adds one or more rows to the table.
func (t *Table) AddRow(rows ...Row) {
	t.Rows = append(t.Rows, rows...)
}

// Params modify the table output.
type Params struct {
	Rows        int  // max. number of rows to write, 0 = unlimited
	NoHeader    bool // skip the header line
	MaxColWidth int  // for WriteText only, 0 = unlimited, otherwise must be >= 4
}

// WriteCSV writes the table to the writer in the CSV format.
func (t *Table) WriteCSV(w io.Writer, p Params) error {
	cw := csv.NewWriter(w)
	if !p.NoHeader && len(t.Header) > 0 {
		if err := cw.Write(t.Header); err != nil {
			return fmt.Errorf("cannot write header: %w", err)
		}
	}
	for i, r := range t.Rows {
		if p.Rows > 0 && i >= p.Rows {
			break
		}
		if err := cw.Write(r.Cells()); err != nil {
			return fmt.Errorf("cannot write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("cannot flush written rows: %w", err)
	}
	return nil
}

// WriteText writes the table as a text aligned to columns, for ease of reading.
func (t *Table) WriteText(w io.Writer, p Params) error {
	if p.MaxColWidth != 0 && p.MaxColWidth < 4 {
		return fmt.Errorf("MaxColWidth [%d] must be 0 or >= 4", p.MaxColWidth)
	}

	// Measure columns
	var widths []int
	update := func(row []string) error {
		if len(row) == 0 {
			return fmt.Errorf("row size = 0")
		}
		if len(widths) == 0 {
			widths = make([]int, len(row))
		}
		if len(row) != len(widths) {
			return fmt.Errorf("row size [%d] != expected size [%d]", len(row), len(widths))
		}
		for i := range widths {
			if widths[i] < len(row[i]) {
				widths[i] = len(row[i])
				if p.MaxColWidth > 0 && widths[i] > p.MaxColWidth {
					widths[i] = p.MaxColWidth
				}
			}
		}
		return nil
	}

	write := func(row []string) error {
		trimmed := make([]string, len(row))
		for i, s := range row {
			trimmed[i] = s
			if len([]rune(s)) > widths[i] {
				r := []rune(s)[:widths[i]-2]
				trimmed[i] = string(r) + ".."
			}
			trimmed[i] = fmt.Sprintf("%[2]*[1]s", trimmed[i], widths[i])
		}
		_, err := fmt.Fprintf(w, "%s\n", strings.Join(trimmed, " | "))
		return err
	}

	dashedRow := func() []string {
		row := make([]string, len(widths))
		for i, w := range widths {
			row[i] = strings.Repeat("-", w)
		}
		return row
	}

	if !p.NoHeader && len(t.Header) > 0 {
		if err := update(t.Header); err != nil {
			return fmt.Errorf("cannot measure header: %w", err)
		}
	}
	for i, r := range t.Rows {
		if p.Rows > 0 && i >= p.Rows {
			break
		}
		if err := update(r.Cells()); err != nil {
			return fmt.Errorf("cannot measure row: %w", err)
		}
	}

	if !p.NoHeader && len(t.Header) > 0 {
		if err := write(t.Header); err != nil {
			return fmt.Errorf("cannot write header: %w", err)
		}
		if err := write(dashedRow()); err != nil {
			return fmt.Errorf("cannot write header separator: %w", err)
		}
	}
	for i, r := range t.Rows {
		if p.Rows > 0 && i >= p.Rows {
			break
		}
		if err := write(r.Cells()); err != nil {
			return fmt.Errorf("cannot write row: %w", err)
		}
	}
	return nil
}
