// Package mqtt publishes dispenser telemetry to an MQTT broker using the
// Eclipse Paho client.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/petbuddy/dispenser/core/model"
	"github.com/petbuddy/dispenser/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
	Retain      bool   `json:"retain"`
	IntervalMS  int    `json:"interval_ms"`
	UseTLS      bool   `json:"use_tls"`
	ClientCert  string `json:"client_cert"`
	ClientKey   string `json:"client_key"`
	CABundle    string `json:"ca_bundle"`

	TLSConfig *tls.Config `json:"-"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "dispenser"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "dispenser"
	}
	if c.IntervalMS <= 0 {
		c.IntervalMS = 1000
	}
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// PahoPublisher implements telemetry.Publisher using Eclipse Paho.
type PahoPublisher struct {
	cli    pahoClient
	prefix string
	qos    byte
	retain bool
	logger logger.Logger
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoPublisher connects to the MQTT broker described by cfg.
func NewPahoPublisher(cfg Config) (*PahoPublisher, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_publisher")
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &PahoPublisher{
		cli:    c,
		prefix: cfg.TopicPrefix,
		qos:    cfg.QoS,
		retain: cfg.Retain,
		logger: log,
	}, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
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
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
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
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

type powerPayload struct {
	BusVoltageVolts float32 `json:"bus_voltage_volts"`
	CurrentAmps     float32 `json:"current_amps"`
	PowerWatts      float32 `json:"power_watts"`
	Timestamp       int64   `json:"timestamp"`
}

type weightPayload struct {
	Grams     int32 `json:"grams"`
	Timestamp int64 `json:"timestamp"`
}

type statusPayload struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// PublishPower publishes the latest power reading.
func (p *PahoPublisher) PublishPower(r model.PowerReading) error {
	return p.publish("power", powerPayload{
		BusVoltageVolts: r.BusVoltageVolts,
		CurrentAmps:     r.CurrentAmps,
		PowerWatts:      r.PowerWatts,
		Timestamp:       time.Now().Unix(),
	})
}

// PublishWeight publishes the latest converted weight reading.
func (p *PahoPublisher) PublishWeight(r model.WeightReading) error {
	return p.publish("weight", weightPayload{
		Grams:     r.Grams,
		Timestamp: time.Now().Unix(),
	})
}

// PublishStatus publishes the dispenser status.
func (p *PahoPublisher) PublishStatus(status string) error {
	return p.publish("status", statusPayload{
		Status:    status,
		Timestamp: time.Now().Unix(),
	})
}

func (p *PahoPublisher) publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	full := p.prefix + "/" + topic
	token := p.cli.Publish(full, p.qos, p.retain, data)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", full, token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (p *PahoPublisher) Close() error {
	p.cli.Disconnect(250)
	return nil
}
