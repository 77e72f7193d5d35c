package retrieval

import (
	"encoding/json"
	"fmt"
	"io"
)

// absentCell is the type of the Absent sentinel.
type absentCell struct{}

func (absentCell) String() string { return "" }

// Absent marks a table cell whose column was missing from the contributing
// page or file. It is a distinct sentinel rather than an empty string or nil
// so callers can tell "absent" apart from a genuinely empty value.
var Absent = absentCell{}

// Row is one decoded record with its columns in source order.
type Row struct {
	columns []string
	values  map[string]any
}

// NewRow creates an empty row.
func NewRow() Row {
	return Row{values: make(map[string]any)}
}

// Set adds or replaces a column value, preserving first-set column order.
func (r *Row) Set(column string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = value
}

// Get returns the value for a column and whether it is present.
func (r Row) Get(column string) (any, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Columns returns the row's columns in source order.
func (r Row) Columns() []string {
	return r.columns
}

// Len returns the number of columns in the row.
func (r Row) Len() int {
	return len(r.columns)
}

// AssembledTable is the final per-query result: rows concatenated in fetch
// order with a stable column set. The column set is the union of all
// contributing pages or files, in first-seen order; cells for columns a row
// never carried read as Absent.
type AssembledTable struct {
	columns []string
	seen    map[string]bool
	rows    []Row
}

// NewAssembledTable creates an empty table.
func NewAssembledTable() *AssembledTable {
	return &AssembledTable{seen: make(map[string]bool)}
}

// Append adds one row, extending the column set with any new columns.
func (t *AssembledTable) Append(row Row) {
	for _, col := range row.columns {
		if !t.seen[col] {
			t.seen[col] = true
			t.columns = append(t.columns, col)
		}
	}
	t.rows = append(t.rows, row)
}

// AppendAll adds rows in order.
func (t *AssembledTable) AppendAll(rows []Row) {
	for _, row := range rows {
		t.Append(row)
	}
}

// Columns returns the union column set in first-seen order.
func (t *AssembledTable) Columns() []string {
	return t.columns
}

// NumRows returns the number of rows.
func (t *AssembledTable) NumRows() int {
	return len(t.rows)
}

// Cell returns the value at row index i and the given column.
// Missing cells return the Absent sentinel.
func (t *AssembledTable) Cell(i int, column string) any {
	if i < 0 || i >= len(t.rows) {
		return Absent
	}
	if v, ok := t.rows[i].Get(column); ok {
		return v
	}
	return Absent
}

// Row returns the row at index i.
func (t *AssembledTable) Row(i int) Row {
	return t.rows[i]
}

// decodeRows decodes a JSON array of objects into rows, preserving each
// object's key order. Numbers stay json.Number so values round-trip to CSV
// without float formatting artifacts.
func decodeRows(r io.Reader) ([]Row, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("decode rows: expected array, got %v", tok)
	}

	var rows []Row
	for dec.More() {
		row, err := decodeRow(dec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}

	return rows, nil
}

// decodeRow decodes one object token-by-token so key order survives.
func decodeRow(dec *json.Decoder) (Row, error) {
	tok, err := dec.Token()
	if err != nil {
		return Row{}, fmt.Errorf("decode row: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return Row{}, fmt.Errorf("decode row: expected object, got %v", tok)
	}

	row := NewRow()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Row{}, fmt.Errorf("decode row key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return Row{}, fmt.Errorf("decode row key: expected string, got %v", keyTok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return Row{}, fmt.Errorf("decode row value for %q: %w", key, err)
		}
		row.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return Row{}, fmt.Errorf("decode row: %w", err)
	}

	return row, nil
}
