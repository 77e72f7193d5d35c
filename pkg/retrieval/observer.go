package retrieval

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/openairdata/campd-client/pkg/logging"
)

// Observer receives structured progress events from the retrieval loops.
// The fetch logic itself stays free of output concerns; implementations
// decide whether events become log lines, progress bars, or test assertions.
type Observer interface {
	// QueryStarted fires after a successful probe (paginated mode) or
	// before the single request of the other modes. totalRecords and
	// totalPages are zero when unknown.
	QueryStarted(spec QuerySpec, totalRecords, totalPages int)

	// PageFetched fires after each page is decoded.
	PageFetched(spec QuerySpec, page, rows int)

	// EntryDownloaded fires after each catalog entry payload is decoded.
	EntryDownloaded(entry CatalogEntry, rows int)

	// WindowAdvisory fires when a streaming window exceeds the recommended
	// size. Non-fatal; the request is still issued.
	WindowAdvisory(spec QuerySpec, window time.Duration, message string)

	// QueryFinished fires once per spec with the final row count, or the
	// error that aborted it.
	QueryFinished(spec QuerySpec, rows int, err error)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) QueryStarted(QuerySpec, int, int)                {}
func (NopObserver) PageFetched(QuerySpec, int, int)                 {}
func (NopObserver) EntryDownloaded(CatalogEntry, int)               {}
func (NopObserver) WindowAdvisory(QuerySpec, time.Duration, string) {}
func (NopObserver) QueryFinished(QuerySpec, int, error)             {}

// LogObserver emits events as zerolog records.
type LogObserver struct {
	logger zerolog.Logger
}

// NewLogObserver creates an observer logging under the retrieval component.
func NewLogObserver() *LogObserver {
	return &LogObserver{logger: logging.NewLogger("retrieval")}
}

func (o *LogObserver) QueryStarted(spec QuerySpec, totalRecords, totalPages int) {
	o.logger.Info().
		Str("query", spec.Label()).
		Str("endpoint", spec.Endpoint).
		Int("total_records", totalRecords).
		Int("total_pages", totalPages).
		Msg("Query started")
}

func (o *LogObserver) PageFetched(spec QuerySpec, page, rows int) {
	o.logger.Debug().
		Str("query", spec.Label()).
		Int("page", page).
		Int("rows", rows).
		Msg("Page fetched")
}

func (o *LogObserver) EntryDownloaded(entry CatalogEntry, rows int) {
	o.logger.Info().
		Str("filename", entry.Filename).
		Float64("megabytes", entry.MegaBytes).
		Int("rows", rows).
		Msg("Catalog entry downloaded")
}

func (o *LogObserver) WindowAdvisory(spec QuerySpec, window time.Duration, message string) {
	o.logger.Warn().
		Str("query", spec.Label()).
		Dur("window", window).
		Msg(message)
}

func (o *LogObserver) QueryFinished(spec QuerySpec, rows int, err error) {
	if err != nil {
		o.logger.Error().
			Str("query", spec.Label()).
			Err(err).
			Msg("Query failed")
		return
	}
	o.logger.Info().
		Str("query", spec.Label()).
		Int("rows", rows).
		Msg("Query finished")
}
