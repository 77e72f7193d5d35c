package retrieval

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"
)

// BulkFilesPath is the path prefix under which catalog entry payloads are
// served, relative to the gateway base URL.
const BulkFilesPath = "/bulk-files/"

// CatalogMetadata is the declared classification of a catalog entry.
type CatalogMetadata struct {
	DataType    string `json:"dataType"`
	DataSubType string `json:"dataSubType,omitempty"`
	Year        int    `json:"year,omitempty"`
	Quarter     int    `json:"quarter,omitempty"`
	StateCode   string `json:"stateCode,omitempty"`
}

// CatalogEntry describes one downloadable file in the bulk catalog.
type CatalogEntry struct {
	Filename    string          `json:"filename"`
	S3Path      string          `json:"s3Path"`
	MegaBytes   float64         `json:"megaBytes"`
	LastUpdated time.Time       `json:"lastUpdated"`
	Metadata    CatalogMetadata `json:"metadata"`
}

// MatchesType reports whether the entry's declared data type equals the
// target category, case-insensitively. Filtering policy lives with the
// caller; this is just the common predicate.
func (e CatalogEntry) MatchesType(dataType string) bool {
	return strings.EqualFold(e.Metadata.DataType, dataType)
}

// FetchCatalog retrieves the full bulk-file catalog in one request.
// The catalog is returned whole; there is no pagination.
func (r *Retriever) FetchCatalog(ctx context.Context, endpoint string) ([]CatalogEntry, error) {
	resp, err := r.client.Get(ctx, endpoint, nil)
	if err != nil {
		queriesTotal.WithLabelValues("catalog", "error").Inc()
		return nil, fmt.Errorf("fetch catalog %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	var entries []CatalogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		queriesTotal.WithLabelValues("catalog", "error").Inc()
		return nil, fmt.Errorf("decode catalog %s: %w", endpoint, err)
	}

	queriesTotal.WithLabelValues("catalog", "ok").Inc()
	r.logger.Info().
		Str("endpoint", endpoint).
		Int("entries", len(entries)).
		Msg("Catalog fetched")

	return entries, nil
}

// DownloadEntries fetches each selected entry's CSV payload and concatenates
// the rows into one table. Entries are processed in their given order;
// column names are normalized to lowerCamelCase so files written under
// different header conventions align, and cells for columns a file never
// carried read as Absent.
//
// Failure policy: the first failing entry aborts the download and is
// reported with that entry's context. Rows from earlier entries are
// discarded with it; a caller wanting the skip-and-continue behavior can
// download entries one at a time.
func (r *Retriever) DownloadEntries(ctx context.Context, entries []CatalogEntry) (*AssembledTable, error) {
	table := NewAssembledTable()

	for i, entry := range entries {
		if i > 0 {
			if err := r.pause(ctx); err != nil {
				return nil, fmt.Errorf("download %s: %w", entry.Filename, err)
			}
		}

		resp, err := r.client.Get(ctx, BulkFilesPath+strings.TrimPrefix(entry.S3Path, "/"), nil)
		if err != nil {
			queriesTotal.WithLabelValues("bulk", "error").Inc()
			return nil, fmt.Errorf("download %s: %w", entry.Filename, err)
		}

		rows, err := parseCSVRows(resp.Body)
		resp.Body.Close()
		if err != nil {
			queriesTotal.WithLabelValues("bulk", "error").Inc()
			return nil, fmt.Errorf("parse %s: %w", entry.Filename, err)
		}

		table.AppendAll(rows)
		rowsFetchedTotal.WithLabelValues("bulk").Add(float64(len(rows)))
		r.observer.EntryDownloaded(entry, len(rows))
	}

	queriesTotal.WithLabelValues("bulk", "ok").Inc()
	return table, nil
}

// parseCSVRows reads a CSV payload into rows keyed by normalized header
// names. Ragged records are tolerated: short records simply lack trailing
// columns (they become Absent in the assembled table).
func parseCSVRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = NormalizeColumn(name)
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}

		row := NewRow()
		for i, value := range record {
			if i >= len(columns) {
				break
			}
			row.Set(columns[i], value)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// NormalizeColumn converts a CSV header name to the canonical lowerCamelCase
// convention used by the JSON endpoints, so bulk and paginated results for
// the same dataset share a column set.
//
//	"Facility Name"        -> "facilityName"
//	"SO2 Mass (short tons)" -> "so2MassShortTons"
func NormalizeColumn(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return ""
	}

	var b strings.Builder
	for i, word := range words {
		if i == 0 {
			b.WriteString(strings.ToLower(word))
			continue
		}
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}

	return b.String()
}
