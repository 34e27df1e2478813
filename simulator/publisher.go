package simulator

import (
	"context"
	"encoding/json"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/coldchain/core/logger"
)

var newMQTTClient = func(broker, clientID string) (paho.Client, error) {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	opts.AutoReconnect = true
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return cli, nil
}

// PublishConfig describes where simulated telemetry is sent.
type PublishConfig struct {
	Broker   string
	ClientID string
	Topic    string
	Interval time.Duration
	Chaos    bool
	// Count stops after that many samples. Zero runs until ctx is done.
	Count int
}

// Publish streams simulated samples to an MQTT topic and returns the number
// sent.
func Publish(ctx context.Context, g *Generator, cfg PublishConfig, log logger.Logger) (int, error) {
	log = logger.OrNop(log)
	if cfg.ClientID == "" {
		cfg.ClientID = "coldchain-sim"
	}
	if cfg.Topic == "" {
		cfg.Topic = "coldchain/telemetry"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	cli, err := newMQTTClient(cfg.Broker, cfg.ClientID)
	if err != nil {
		return 0, err
	}
	defer cli.Disconnect(250)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sent := 0
	chaos := func() bool { return cfg.Chaos }
	for s := range g.Stream(ctx, cfg.Interval, chaos) {
		payload, err := json.Marshal(s)
		if err != nil {
			return sent, err
		}
		token := cli.Publish(cfg.Topic, 1, false, payload)
		if token.Wait() && token.Error() != nil {
			log.Warnf("publish sample: %v", token.Error())
			continue
		}
		sent++
		log.Debugf("published %.1f°C %.1f%% %.2fG", s.Temperature, s.Humidity, s.Vibration)
		if cfg.Count > 0 && sent >= cfg.Count {
			return sent, nil
		}
	}
	return sent, nil
}
