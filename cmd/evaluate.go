package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/coldchain/app"
	"github.com/kilianp07/coldchain/core/history"
	"github.com/kilianp07/coldchain/core/model"
	"github.com/kilianp07/coldchain/core/pipeline"
	"github.com/kilianp07/coldchain/infra/logger"
)

var evalFlags struct {
	temperature float64
	humidity    float64
	vibration   float64
	cargoValue  float64
	road        string
	delay       float64
	summary     bool
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate one telemetry reading against the configured facilities",
	RunE:  runEvaluate,
}

func init() {
	f := evaluateCmd.Flags()
	f.Float64Var(&evalFlags.temperature, "temperature", model.NeutralTemperature, "temperature in °C")
	f.Float64Var(&evalFlags.humidity, "humidity", model.NeutralHumidity, "relative humidity in %")
	f.Float64Var(&evalFlags.vibration, "vibration", model.NeutralVibration, "vibration in G")
	f.Float64Var(&evalFlags.cargoValue, "cargo-value", 0, "cargo value, defaults to the configured value")
	f.StringVar(&evalFlags.road, "road", "Good", "road condition of the current leg")
	f.Float64Var(&evalFlags.delay, "delay-hours", -1, "transit delay in hours, defaults to the route travel time")
	f.BoolVar(&evalFlags.summary, "summary", false, "print the explanation summary instead of the full bundle")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	road, err := model.ParseRoadCondition(evalFlags.road)
	if err != nil {
		return err
	}
	log := logger.New("evaluate")
	predictor, err := app.LoadPredictor(cfg.Predictor.ModelPath, log)
	if err != nil {
		return err
	}
	pl, err := pipeline.New(cfg.Pipeline(), predictor, log)
	if err != nil {
		return err
	}
	session, err := history.NewSession(cfg.History)
	if err != nil {
		return err
	}

	req := pipeline.Request{
		Sample: model.TelemetrySample{
			Temperature: evalFlags.temperature,
			Humidity:    evalFlags.humidity,
			Vibration:   evalFlags.vibration,
		},
		Facilities:    cfg.Facilities,
		CargoValue:    cfg.CargoValue,
		RoadCondition: road,
		Parties:       cfg.Liability.Parties,
	}
	if evalFlags.cargoValue > 0 {
		req.CargoValue = evalFlags.cargoValue
	}
	if evalFlags.delay >= 0 {
		d := evalFlags.delay
		req.TransitDelayHours = &d
	}
	b, err := pl.Evaluate(session, req)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if evalFlags.summary {
		_, err = fmt.Fprintf(out, "%s: %s (%s, %.2f days)\n", b.Decision.Kind(), b.Explanation.Summary, b.Explanation.Confidence, b.Estimate.BlendedDays)
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}
