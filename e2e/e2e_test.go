//go:build !no_containers

package e2e

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/coldchain/app"
	"github.com/kilianp07/coldchain/config"
	"github.com/kilianp07/coldchain/core/factory"
	"github.com/kilianp07/coldchain/internal/testutil"
	"github.com/kilianp07/coldchain/simulator"
)

const (
	influxOrg    = "e2e_org"
	influxBucket = "e2e_bucket"
	influxToken  = "e2e-token"
)

// junitReport is a minimal JUnit XML report so CI systems can display the
// results.
type junitReport struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string  `xml:"name,attr"`
	Failure *string `xml:"failure,omitempty"`
	Time    float64 `xml:"time,attr"`
}

func writeJUnit(path string, rep junitReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	return enc.Encode(rep)
}

// startInflux starts an InfluxDB 2.7 container already set up with the e2e
// organisation, bucket and token.
func startInflux(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "e2e",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "e2e-password",
			"DOCKER_INFLUXDB_INIT_ORG":         influxOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      influxBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": influxToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	host, err := cont.Host(ctx)
	require.NoError(t, err)
	port, err := cont.MappedPort(ctx, "8086")
	require.NoError(t, err)
	return cont, fmt.Sprintf("http://%s:%s", host, port.Port())
}

// Test_E2E_TelemetryToInflux streams simulated telemetry through Mosquitto
// into the service and checks that every decision lands in InfluxDB.
func Test_E2E_TelemetryToInflux(t *testing.T) {
	if !testutil.DockerAvailable() {
		t.Skip("docker not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	start := time.Now()

	influxCont, influxURL := startInflux(ctx, t)
	defer influxCont.Terminate(ctx) //nolint:errcheck
	broker, cleanup, err := testutil.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("unable to start mosquitto: %v", err)
	}
	defer cleanup()
	t.Logf("InfluxDB started at %s, Mosquitto at %s", influxURL, broker)

	influx := NewInfluxClient(influxURL, influxOrg, influxBucket, influxToken)
	defer influx.Close()
	require.Eventually(t, func() bool {
		_, err := influx.CountPoints(ctx, "decision")
		return err == nil
	}, 30*time.Second, 500*time.Millisecond, "influx setup did not complete")

	cfg := &config.Config{}
	cfg.Source.Mode = config.SourceMQTT
	cfg.MQTT.Broker = broker
	cfg.MQTT.ClientID = "coldchain-e2e"
	cfg.API.Address = "127.0.0.1:0"
	cfg.Metrics.Sinks = []factory.ModuleConfig{{
		Type: "influx",
		Conf: map[string]any{
			"url":      influxURL,
			"token":    influxToken,
			"org":      influxOrg,
			"bucket":   influxBucket,
			"shipment": "e2e",
		},
	}}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	svc, err := app.New(cfg)
	require.NoError(t, err)
	runCtx, stop := context.WithCancel(ctx)
	runErr := make(chan error, 1)
	go func() { runErr <- svc.Run(runCtx) }()

	const samples = 10
	sent, err := simulator.Publish(ctx, simulator.New(7), simulator.PublishConfig{
		Broker:   broker,
		ClientID: "coldchain-e2e-sim",
		Topic:    cfg.MQTT.TelemetryTopic,
		Interval: 100 * time.Millisecond,
		Count:    samples,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, samples, sent)

	require.Eventually(t, func() bool { return svc.Status().Readings >= samples/2 }, 30*time.Second, 100*time.Millisecond)
	require.Eventually(t, func() bool {
		n, err := influx.CountPoints(ctx, "decision")
		return err == nil && n >= samples/2
	}, 30*time.Second, 500*time.Millisecond)

	stop()
	require.NoError(t, <-runErr)
	require.NoError(t, svc.Close())

	rep := junitReport{Name: "e2e", Tests: 1, Cases: []junitTestCase{{Name: t.Name(), Time: time.Since(start).Seconds()}}}
	if err := writeJUnit(filepath.Join(t.TempDir(), "e2e.xml"), rep); err != nil {
		t.Logf("write junit: %v", err)
	}
}
