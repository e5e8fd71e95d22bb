package alarm

import (
	"context"

	"github.com/goccy/go-json"

	"sensor-endpoint/internal/mqtt"
)

// Publisher publishes a payload on a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// MQTTSender publishes alarms as JSON to the master controller's topic.
type MQTTSender struct {
	pub   Publisher
	topic string
}

// NewMQTTSender creates a sender; template may contain a {serial} placeholder.
func NewMQTTSender(pub Publisher, template, serial string) *MQTTSender {
	return &MQTTSender{pub: pub, topic: mqtt.Topic(template, serial)}
}

func (m *MQTTSender) Name() string { return "mqtt" }

func (m *MQTTSender) Send(_ context.Context, a Alarm) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return m.pub.Publish(m.topic, payload)
}
