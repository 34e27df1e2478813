package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/coldchain/app"
	"github.com/kilianp07/coldchain/core/pipeline"
	"github.com/kilianp07/coldchain/infra/logger"
	"github.com/kilianp07/coldchain/qa/scenarios"
)

var scenarioJSON bool

var scenarioCmd = &cobra.Command{
	Use:   "scenario FILE...",
	Short: "Replay scripted telemetry scenarios and check the decisions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScenario,
}

func init() {
	scenarioCmd.Flags().BoolVar(&scenarioJSON, "json", false, "print reports as JSON")
	rootCmd.AddCommand(scenarioCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New("scenario")
	predictor, err := app.LoadPredictor(cfg.Predictor.ModelPath, log)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		sc, err := scenarios.Load(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		// Each scenario gets its own pipeline so weight or market state never leaks.
		pl, err := pipeline.New(cfg.Pipeline(), predictor, log)
		if err != nil {
			return err
		}
		rep, err := scenarios.Run(pl, sc, cfg.Liability.Parties)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if !rep.Passed() {
			failed++
		}
		if scenarioJSON {
			if err := json.NewEncoder(out).Encode(rep); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprint(out, rep.String()); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
	}
	return nil
}
