// Package mqtt connects the decision service to an MQTT broker: sensor
// telemetry arrives on a subscribed topic and decision summaries are
// published back for dashboards and drivers.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/coldchain/core/logger"
	"github.com/kilianp07/coldchain/core/model"
)

// Config defines the broker connection and topics.
type Config struct {
	Broker         string          `json:"broker"`
	ClientID       string          `json:"client_id"`
	Username       string          `json:"username"`
	Password       string          `json:"password"`
	TelemetryTopic string          `json:"telemetry_topic"`
	DecisionTopic  string          `json:"decision_topic"`
	UseTLS         bool            `json:"use_tls"`
	ClientCert     string          `json:"client_cert"`
	ClientKey      string          `json:"client_key"`
	CABundle       string          `json:"ca_bundle"`
	QoS            map[string]byte `json:"qos"`
	LWTTopic       string          `json:"lwt_topic"`
	LWTPayload     string          `json:"lwt_payload"`
	MaxRetries     int             `json:"max_retries"`
	BackoffMS      int             `json:"backoff_ms"`
	// Buffer is the number of samples queued before new ones are dropped.
	Buffer    int         `json:"buffer"`
	TLSConfig *tls.Config `json:"-"`
}

// SetDefaults fills the topics, client id and retry settings.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "coldchain-" + uuid.NewString()[:8]
	}
	if c.TelemetryTopic == "" {
		c.TelemetryTopic = "coldchain/telemetry"
	}
	if c.DecisionTopic == "" {
		c.DecisionTopic = "coldchain/decisions"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 100
	}
	if c.Buffer == 0 {
		c.Buffer = 64
	}
}

// Validate checks that a broker is set.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("%w: mqtt broker is required", model.ErrConfiguration)
	}
	if c.MaxRetries < 0 || c.BackoffMS < 0 || c.Buffer < 0 {
		return fmt.Errorf("%w: mqtt retry and buffer settings must not be negative", model.ErrConfiguration)
	}
	return nil
}

func (c Config) qos(kind string) byte {
	if q, ok := c.QoS[kind]; ok {
		return q
	}
	return 0
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Client is both the telemetry source and the decision publisher.
type Client struct {
	cli     pahoClient
	cfg     Config
	log     logger.Logger
	samples chan model.TelemetrySample
	now     func() time.Time

	mu     sync.Mutex
	closed bool
}

// NewClient connects to the broker. The telemetry subscription is renewed on
// every reconnect.
func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log = logger.OrNop(log)
	c := &Client{
		cfg:     cfg,
		log:     log,
		samples: make(chan model.TelemetrySample, cfg.Buffer),
		now:     time.Now,
	}
	opts.OnConnect = func(pc paho.Client) {
		log.Infof("mqtt connected, subscribing to %s", cfg.TelemetryTopic)
		if token := pc.Subscribe(cfg.TelemetryTopic, cfg.qos("telemetry"), c.onTelemetry); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe %s: %v", cfg.TelemetryTopic, token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("mqtt connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to mqtt broker")
	}
	cli := newMQTTClient(opts)
	c.cli = cli
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return c, nil
}

// NewClientOptions builds paho options from cfg.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.qos("lwt"), true)
	}
	return opts, nil
}

// LoadTLSConfig reads the client certificate and CA bundle.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, errors.New("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, errors.New("ca bundle contains no certificates")
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// telemetryMessage is the wire format of a sensor reading. Timestamp is epoch
// seconds and defaults to the receive time.
type telemetryMessage struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Vibration   *float64 `json:"vibration"`
	Timestamp   int64    `json:"timestamp"`
}

// DecodeTelemetry parses one message. Missing readings get neutral values.
func DecodeTelemetry(payload []byte, now time.Time) (model.TelemetrySample, error) {
	var m telemetryMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return model.TelemetrySample{}, fmt.Errorf("decode telemetry: %w", err)
	}
	if m.Temperature == nil && m.Humidity == nil && m.Vibration == nil {
		return model.TelemetrySample{}, errors.New("decode telemetry: no sensor readings")
	}
	s := model.TelemetrySample{
		Temperature: model.NeutralTemperature,
		Humidity:    model.NeutralHumidity,
		Vibration:   model.NeutralVibration,
		Timestamp:   m.Timestamp,
	}
	if m.Temperature != nil {
		s.Temperature = *m.Temperature
	}
	if m.Humidity != nil {
		s.Humidity = *m.Humidity
	}
	if m.Vibration != nil {
		s.Vibration = *m.Vibration
	}
	if s.Timestamp == 0 {
		s.Timestamp = now.Unix()
	}
	return s, nil
}

func (c *Client) onTelemetry(_ paho.Client, msg paho.Message) {
	s, err := DecodeTelemetry(msg.Payload(), c.now())
	if err != nil {
		c.log.Warnf("topic %s: %v", msg.Topic(), err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.samples <- s:
	default:
		c.log.Warnf("telemetry queue full, dropping sample at %d", s.Timestamp)
	}
}

// Samples returns the telemetry channel. It is closed by Close.
func (c *Client) Samples() <-chan model.TelemetrySample { return c.samples }

// Publish sends payload to topic, retrying with exponential backoff.
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	backoff := time.Duration(c.cfg.BackoffMS) * time.Millisecond
	var err error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		token := c.cli.Publish(topic, qos, retained, payload)
		token.Wait()
		if err = token.Error(); err == nil {
			return nil
		}
		c.log.Warnf("publish to %s attempt %d failed: %v", topic, attempt+1, err)
		if attempt < c.cfg.MaxRetries {
			time.Sleep(backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("publish to %s: %w", topic, err)
}

// Close disconnects and closes the sample channel.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.cli != nil && c.cli.IsConnected() {
		c.cli.Disconnect(250)
	}
	close(c.samples)
}
