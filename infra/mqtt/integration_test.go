//go:build !no_containers

package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/coldchain/core/pipeline"
	"github.com/kilianp07/coldchain/internal/testutil"
)

func TestClient_Mosquitto(t *testing.T) {
	if !testutil.DockerAvailable() {
		t.Skip("docker not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	broker, cleanup, err := testutil.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("unable to start mosquitto: %v", err)
	}
	defer cleanup()

	cli, err := NewClient(Config{Broker: broker, QoS: map[string]byte{"telemetry": 1, "decision": 1}}, nil)
	require.NoError(t, err)
	defer cli.Close()

	got := make(chan string, 1)
	probe := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("probe-sub"))
	require.NoError(t, waitToken(probe.Connect()))
	defer probe.Disconnect(100)
	require.NoError(t, waitToken(probe.Subscribe("coldchain/decisions", 1, func(_ paho.Client, m paho.Message) {
		var s struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(m.Payload(), &s) == nil {
			got <- s.ID
		}
	})))

	// allow the client subscription from OnConnect to settle
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, waitToken(probe.Publish("coldchain/telemetry", 1, false, []byte(`{"temperature":5,"humidity":50,"vibration":0.2}`))))
	select {
	case s := <-cli.Samples():
		assert.Equal(t, 5.0, s.Temperature)
	case <-time.After(5 * time.Second):
		t.Fatal("no telemetry received")
	}

	require.NoError(t, cli.PublishDecision(pipeline.Bundle{ID: "d-42", Decision: pipeline.Proceed{Destination: "Original"}}))
	select {
	case id := <-got:
		assert.Equal(t, "d-42", id)
	case <-time.After(5 * time.Second):
		t.Fatal("no decision received")
	}
}

func waitToken(tok paho.Token) error {
	tok.Wait()
	return tok.Error()
}
