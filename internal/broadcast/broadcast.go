package broadcast

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// Event is one incident change, published so live map clients can refresh
// without polling.
type Event struct {
	Action string    `json:"action"` // created, updated, deleted
	ID     string    `json:"id"`
	Tipo   string    `json:"tipo"`
	Sector string    `json:"sector"`
	At     time.Time `json:"at"`
}

// Publisher emits incident change events. Publishing is best-effort; a lost
// event never fails the originating request.
type Publisher interface {
	Publish(event Event)
	Close()
}

// NewNoop returns a publisher that drops every event, used when no broker
// is configured.
func NewNoop() Publisher { return noopPublisher{} }

type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
func (noopPublisher) Close()        {}

// MQTTPublisher publishes events to an MQTT topic.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	log    *logrus.Logger
}

// NewMQTT connects to the broker and returns the publisher.
func NewMQTT(brokerURL, topic string, log *logrus.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID("incidentes-api").
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return &MQTTPublisher{client: client, topic: topic, log: log}, nil
}

// Publish sends the event without blocking the caller on delivery.
func (p *MQTTPublisher) Publish(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.WithError(err).Warn("could not marshal broadcast event")
		return
	}

	token := p.client.Publish(p.topic, 0, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			p.log.WithFields(logrus.Fields{
				"action": event.Action,
				"id":     event.ID,
			}).WithError(token.Error()).Warn("could not publish broadcast event")
		}
	}()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
