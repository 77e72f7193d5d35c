package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openairdata/campd-client/pkg/csvout"
	"github.com/openairdata/campd-client/pkg/retrieval"
)

var hourlyCmd = &cobra.Command{
	Use:   "hourly",
	Short: "Download hourly apportioned emissions for a date window",
	RunE:  runHourly,
}

func init() {
	f := hourlyCmd.Flags()
	f.String("state", "", "state code to fetch (e.g. CA)")
	f.String("begin-date", "", "window start, YYYY-MM-DD (inclusive)")
	f.String("end-date", "", "window end, YYYY-MM-DD (inclusive)")
	hourlyCmd.MarkFlagRequired("state")
	hourlyCmd.MarkFlagRequired("begin-date")
	hourlyCmd.MarkFlagRequired("end-date")
}

func runHourly(cmd *cobra.Command, args []string) error {
	state, _ := cmd.Flags().GetString("state")
	beginStr, _ := cmd.Flags().GetString("begin-date")
	endStr, _ := cmd.Flags().GetString("end-date")

	begin, err := time.Parse(retrieval.DateFormat, beginStr)
	if err != nil {
		return fmt.Errorf("parse begin-date: %w", err)
	}
	end, err := time.Parse(retrieval.DateFormat, endStr)
	if err != nil {
		return fmt.Errorf("parse end-date: %w", err)
	}

	spec, err := retrieval.NewWindowQuery(
		"hourly-"+state,
		hourlyEmissionsEndpoint,
		retrieval.Filters{}.Add("stateCode", state),
		begin, end,
	)
	if err != nil {
		return err
	}

	r, err := newRetriever()
	if err != nil {
		return err
	}

	table, mappings, err := r.FetchWindow(cmd.Context(), spec)
	if err != nil {
		return err
	}

	for _, m := range mappings {
		log.Debug().Str("label", m.Label).Str("column", m.Value).Msg("Field mapping")
	}

	name := fmt.Sprintf("emissions-hourly_%s_%s_%s.csv", state, beginStr, endStr)
	path := filepath.Join(viper.GetString("out-dir"), name)
	if err := (csvout.Writer{}).WriteFile(path, table); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	log.Info().
		Str("state", state).
		Int("rows", table.NumRows()).
		Int("columns", len(table.Columns())).
		Str("path", path).
		Msg("CSV written")

	return nil
}
