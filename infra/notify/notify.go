// Package notify announces schedule changes to downstream consumers over
// MQTT. Booking frontends subscribe to the update topic and refresh their
// trip listings when a regeneration lands.
package notify

import (
	"encoding/json"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nikhiltv/tripforge/infra/logger"
)

// DefaultTopic is where schedule updates are published.
const DefaultTopic = "tripforge/trips/updated"

// Config defines the connection parameters for the MQTT notifier.
type Config struct {
	Enabled  bool   `json:"enabled"`
	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Topic    string `json:"topic"`
	QoS      byte   `json:"qos"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.ClientID == "" {
		c.ClientID = "tripforge-" + uuid.NewString()[:8]
	}
}

// Update is the payload published after a run.
type Update struct {
	TripsCreated int       `json:"trips_created"`
	Running      int       `json:"running"`
	Shortfalls   int       `json:"shortfalls"`
	Depots       int       `json:"depots"`
	At           time.Time `json:"at"`
}

// Notifier publishes schedule updates.
type Notifier interface {
	PublishUpdate(u Update) error
	Close()
}

// NopNotifier discards updates.
type NopNotifier struct{}

func (NopNotifier) PublishUpdate(Update) error { return nil }
func (NopNotifier) Close()                     {}

// MQTTNotifier publishes updates to an MQTT broker via Eclipse Paho.
type MQTTNotifier struct {
	cli   paho.Client
	topic string
	qos   byte
	log   logger.Logger
}

// NewMQTTNotifier connects to the broker. Connection failure is an error;
// callers that want best-effort delivery should fall back to NopNotifier.
func NewMQTTNotifier(cfg Config) (*MQTTNotifier, error) {
	cfg.SetDefaults()
	log := logger.New("notify")

	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}

	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &MQTTNotifier{cli: cli, topic: cfg.Topic, qos: cfg.QoS, log: log}, nil
}

// PublishUpdate sends the update as JSON to the configured topic.
func (n *MQTTNotifier) PublishUpdate(u Update) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return err
	}
	token := n.cli.Publish(n.topic, n.qos, false, payload)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	n.log.Debugf("published update to %s", n.topic)
	return nil
}

// Close disconnects from the broker.
func (n *MQTTNotifier) Close() {
	n.cli.Disconnect(250)
}
