// Package mqtt publishes plan-ready notifications over MQTT.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/studyplan/infra/logger"
)

// ErrAckTimeout is returned when no acknowledgment arrives before the deadline.
var ErrAckTimeout = errors.New("timeout waiting for ack")

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker       string      `json:"broker"`
	ClientID     string      `json:"client_id"`
	Username     string      `json:"username"`
	Password     string      `json:"password"`
	TopicPrefix  string      `json:"topic_prefix"`
	AckTopic     string      `json:"ack_topic"`
	AckTimeoutMS int         `json:"ack_timeout_ms"`
	QoS          byte        `json:"qos"`
	Retain       bool        `json:"retain"`
	UseTLS       bool        `json:"use_tls"`
	ClientCert   string      `json:"client_cert"`
	ClientKey    string      `json:"client_key"`
	CABundle     string      `json:"ca_bundle"`
	LWTTopic     string      `json:"lwt_topic"`
	LWTPayload   string      `json:"lwt_payload"`
	MaxRetries   int         `json:"max_retries"`
	BackoffMS    int         `json:"backoff_ms"`
	TLSConfig    *tls.Config `json:"-"`
}

// SetDefaults fills the topic prefix, retry count and backoff.
func (c *Config) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "studyplan"
	}
	if c.ClientID == "" {
		c.ClientID = "studyplan-" + uuid.NewString()[:8]
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the broker address and QoS level.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("mqtt: qos %d out of range", c.QoS)
	}
	if c.AckTimeoutMS > 0 && c.AckTopic == "" {
		return fmt.Errorf("mqtt: ack_timeout_ms requires ack_topic")
	}
	return nil
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

// Notification is the payload published when a student's plan is ready.
type Notification struct {
	ID        string `json:"notification_id"`
	StudentID string `json:"student_id"`
	Timestamp int64  `json:"timestamp"`
}

// Notifier publishes one Notification per student to
// <prefix>/students/<id>/plan and optionally waits for an acknowledgment.
type Notifier struct {
	cli        pahoClient
	cfg        Config
	log        logger.Logger
	ackTimeout time.Duration
	backoff    time.Duration

	mu   sync.Mutex
	acks map[string]chan struct{}
}

// NewNotifier connects to the broker and subscribes to the ack topic when one is set.
func NewNotifier(cfg Config) (*Notifier, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_notifier")
	n := &Notifier{
		cfg:        cfg,
		log:        log,
		ackTimeout: time.Duration(cfg.AckTimeoutMS) * time.Millisecond,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		acks:       make(map[string]chan struct{}),
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if cfg.AckTopic == "" {
			return
		}
		if token := c.Subscribe(cfg.AckTopic, cfg.QoS, n.onAck); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
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
	n.cli = c
	return n, nil
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
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.QoS, false)
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
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("ca bundle %s has no certificates", c.CABundle)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// Topic returns the plan topic of a student.
func (n *Notifier) Topic(studentID string) string {
	return fmt.Sprintf("%s/students/%s/plan", strings.TrimSuffix(n.cfg.TopicPrefix, "/"), studentID)
}

func (n *Notifier) onAck(_ paho.Client, msg paho.Message) {
	var m struct {
		ID string `json:"notification_id"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		n.log.Errorf("failed to decode ack: %v", err)
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if ch, ok := n.acks[m.ID]; ok {
		select {
		case ch <- struct{}{}:
		default:
		}
		n.log.Debugf("received ack %s", m.ID)
	}
}

// Notify publishes the plan-ready message for studentID, retrying with
// exponential backoff. When an ack timeout is configured it then waits for
// the matching acknowledgment.
func (n *Notifier) Notify(ctx context.Context, studentID string) error {
	msg := Notification{ID: uuid.NewString(), StudentID: studentID, Timestamp: time.Now().UnixMilli()}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var ack chan struct{}
	if n.ackTimeout > 0 {
		ack = make(chan struct{}, 1)
		n.mu.Lock()
		n.acks[msg.ID] = ack
		n.mu.Unlock()
		defer func() {
			n.mu.Lock()
			delete(n.acks, msg.ID)
			n.mu.Unlock()
		}()
	}

	topic := n.Topic(studentID)
	var publishErr error
	for attempt := 0; attempt <= n.cfg.MaxRetries; attempt++ {
		token := n.cli.Publish(topic, n.cfg.QoS, n.cfg.Retain, payload)
		token.Wait()
		if publishErr = token.Error(); publishErr == nil {
			n.log.Infof("sent notification %s to %s", msg.ID, topic)
			break
		}
		n.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt == n.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(n.backoff * time.Duration(1<<attempt)):
		}
	}
	if publishErr != nil {
		return fmt.Errorf("publish %s: %w", topic, publishErr)
	}
	if ack == nil {
		return nil
	}

	timer := time.NewTimer(n.ackTimeout)
	defer timer.Stop()
	select {
	case <-ack:
		return nil
	case <-timer.C:
		return fmt.Errorf("student %s: %w", studentID, ErrAckTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect gracefully closes the MQTT connection.
func (n *Notifier) Disconnect() {
	if n.cli != nil && n.cli.IsConnected() {
		n.cli.Disconnect(250)
	}
}
