package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kilianp07/coldchain/core/pipeline"
	"github.com/kilianp07/coldchain/infra/logger"
)

var pivotFlags struct {
	cargoValue float64
	remaining  float64
	eta        float64
	travel     map[string]string
}

var pivotCmd = &cobra.Command{
	Use:   "pivot",
	Short: "Run the emergency market triage with explicit values",
	RunE:  runPivot,
}

func init() {
	f := pivotCmd.Flags()
	f.Float64Var(&pivotFlags.cargoValue, "cargo-value", 700000, "cargo value")
	f.Float64Var(&pivotFlags.remaining, "remaining-hours", 3, "remaining shelf life in hours")
	f.Float64Var(&pivotFlags.eta, "eta-hours", 4, "hours to the primary destination")
	f.StringToStringVar(&pivotFlags.travel, "travel", nil, "travel time overrides, market_id=hours")
	rootCmd.AddCommand(pivotCmd)
}

func parseTravel(in map[string]string) (map[string]float64, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(in))
	for id, v := range in {
		h, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("travel time for %s: %w", id, err)
		}
		out[id] = h
	}
	return out, nil
}

func runPivot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	travel, err := parseTravel(pivotFlags.travel)
	if err != nil {
		return err
	}
	pl, err := pipeline.New(cfg.Pipeline(), nil, logger.New("pivot"))
	if err != nil {
		return err
	}
	res, err := pl.Triage(pivotFlags.cargoValue, pivotFlags.remaining, pivotFlags.eta, travel)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
