// Package csvout serializes assembled tables to CSV. Persistence is the
// caller's side of the retrieval contract: the retrieval client returns one
// table per query and this package turns it into a file.
package csvout

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/openairdata/campd-client/pkg/retrieval"
)

// Writer serializes AssembledTables to CSV.
type Writer struct {
	// AbsentMarker is written for cells the table marks Absent
	// (default: empty string).
	AbsentMarker string
}

// Write serializes the table: a header row of the union column set in
// first-seen order, then one record per row in fetch order.
func (w Writer) Write(out io.Writer, table *retrieval.AssembledTable) error {
	cw := csv.NewWriter(out)

	columns := table.Columns()
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(columns))
	for i := 0; i < table.NumRows(); i++ {
		for j, col := range columns {
			record[j] = w.formatCell(table.Cell(i, col))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile serializes the table to path, creating parent directories.
func (w Writer) WriteFile(path string, table *retrieval.AssembledTable) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := w.Write(f, table); err != nil {
		return err
	}

	return f.Close()
}

// formatCell renders one cell value.
func (w Writer) formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		if value == retrieval.Absent {
			return w.AbsentMarker
		}
		return fmt.Sprint(v)
	}
}

// FileName builds the conventional per-query output name,
// {dataset}_{stateCode}_{beginYear}_{endYear}.csv.
func FileName(dataset, stateCode string, beginYear, endYear int) string {
	return fmt.Sprintf("%s_%s_%d_%d.csv", strings.ToLower(dataset), stateCode, beginYear, endYear)
}
