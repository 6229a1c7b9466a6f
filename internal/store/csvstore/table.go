package csvstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/JakeFAU/recipe-harvester/internal/recipe"
)

// Row is one data row keyed by column name.
type Row map[string]string

// RowFromRecord builds a row holding rec's fields.
func RowFromRecord(rec recipe.Record) Row {
	row := make(Row, len(recipe.Columns()))
	row.SetRecord(rec)
	return row
}

// SetRecord overwrites the canonical cells with rec's fields.
func (r Row) SetRecord(rec recipe.Record) {
	for _, col := range recipe.Columns() {
		r[col] = rec.Get(col)
	}
}

// Record extracts the canonical cells.
func (r Row) Record() recipe.Record {
	var rec recipe.Record
	for _, col := range recipe.Columns() {
		rec.Set(col, r[col])
	}
	return rec
}

type table struct {
	Header []string
	Rows   []Row
}

// readTable parses a store file. The header becomes the canonical columns followed by any
// extra columns in file order. A completely empty file is an empty table.
func readTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	fileHeader, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &table{Header: recipe.Columns()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(fileHeader) > 0 {
		fileHeader[0] = strings.TrimPrefix(fileHeader[0], "\ufeff")
	}

	t := &table{Header: mergeHeader(fileHeader)}
	for {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		row := make(Row, len(t.Header))
		for i, cell := range cells {
			if i < len(fileHeader) {
				row[fileHeader[i]] = cell
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func mergeHeader(fileHeader []string) []string {
	header := recipe.Columns()
	for _, col := range fileHeader {
		if col != "" && !slices.Contains(header, col) {
			header = append(header, col)
		}
	}
	return header
}

func (t *table) encode(w io.Writer) error {
	qw := newQuotedWriter(w)
	qw.Write(t.Header)
	cells := make([]string, len(t.Header))
	for _, row := range t.Rows {
		for i, col := range t.Header {
			cells[i] = row[col]
		}
		qw.Write(cells)
	}
	return qw.Flush()
}
