package cmd

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/coldchain/infra/logger"
	"github.com/kilianp07/coldchain/simulator"
)

var simFlags struct {
	broker   string
	topic    string
	interval time.Duration
	count    int
	chaos    bool
	seed     int64
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Generate shipment telemetry, to stdout or an MQTT topic",
	RunE:  runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simFlags.broker, "broker", "", "MQTT broker URL; empty prints samples as JSON lines")
	f.StringVar(&simFlags.topic, "topic", "coldchain/telemetry", "MQTT telemetry topic")
	f.DurationVar(&simFlags.interval, "interval", time.Second, "time between samples")
	f.IntVar(&simFlags.count, "count", 10, "number of samples, 0 runs until interrupted")
	f.BoolVar(&simFlags.chaos, "chaos", false, "simulate a cooling failure")
	f.Int64Var(&simFlags.seed, "seed", 0, "random seed, 0 uses the clock")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	g := simulator.New(simFlags.seed)
	ctx := contextOf(cmd)
	if simFlags.broker != "" {
		_, err := simulator.Publish(ctx, g, simulator.PublishConfig{
			Broker:   simFlags.broker,
			Topic:    simFlags.topic,
			Interval: simFlags.interval,
			Chaos:    simFlags.chaos,
			Count:    simFlags.count,
		}, logger.New("simulator"))
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	for i := 0; simFlags.count == 0 || i < simFlags.count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(simFlags.interval):
			}
		}
		if err := enc.Encode(g.Sample(simFlags.chaos)); err != nil {
			return err
		}
	}
	return nil
}
