package main

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openairdata/campd-client/pkg/csvout"
	"github.com/openairdata/campd-client/pkg/retrieval"
)

var annualCmd = &cobra.Command{
	Use:   "annual",
	Short: "Download annual apportioned emissions, one CSV per state",
	RunE:  runAnnual,
}

func init() {
	f := annualCmd.Flags()
	f.StringSlice("states", nil, "state codes to fetch (e.g. CA,TX)")
	f.Int("begin-year", 1995, "first year of the range (inclusive)")
	f.Int("end-year", 2024, "last year of the range (inclusive)")
	f.Int("concurrency", 1, "states fetched in parallel (each state stays sequential)")
	annualCmd.MarkFlagRequired("states")
}

func runAnnual(cmd *cobra.Command, args []string) error {
	states, _ := cmd.Flags().GetStringSlice("states")
	beginYear, _ := cmd.Flags().GetInt("begin-year")
	endYear, _ := cmd.Flags().GetInt("end-year")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	if endYear < beginYear {
		return fmt.Errorf("end-year %d before begin-year %d", endYear, beginYear)
	}

	r, err := newRetriever()
	if err != nil {
		return err
	}

	years := make([]int, 0, endYear-beginYear+1)
	for y := beginYear; y <= endYear; y++ {
		years = append(years, y)
	}

	specs := make([]retrieval.QuerySpec, len(states))
	for i, state := range states {
		specs[i] = retrieval.NewPaginatedQuery(
			"annual-"+state,
			annualEmissionsEndpoint,
			retrieval.Filters{}.
				AddInts("year", years...).
				Add("stateCode", state),
			viper.GetInt("page-size"),
		)
	}

	results := r.FetchAll(cmd.Context(), specs, retrieval.BatchConfig{MaxConcurrency: concurrency})

	outDir := viper.GetString("out-dir")
	writer := csvout.Writer{}
	failed := 0

	// Completed queries are persisted even when a later one failed.
	for i, res := range results {
		if res.Err != nil {
			failed++
			log.Error().Err(res.Err).Str("state", states[i]).Msg("State fetch failed - no CSV written")
			continue
		}

		path := filepath.Join(outDir, csvout.FileName("emissions-annual", states[i], beginYear, endYear))
		if err := writer.WriteFile(path, res.Table); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}

		log.Info().
			Str("state", states[i]).
			Int("rows", res.Table.NumRows()).
			Str("path", path).
			Msg("CSV written")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d states failed", failed, len(states))
	}
	return nil
}
