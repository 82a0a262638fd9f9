package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"trafficmonitor/internal/dto"
	"trafficmonitor/internal/logger"
)

const (
	mqttQoS            = 1
	mqttConnectTimeout = 5 * time.Second
	mqttPublishTimeout = 2 * time.Second
)

// mqttPublisher is the subset of mqtt.Client used by MQTTSink.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTSink publishes each event as JSON to <topic>/<junction>.
type MQTTSink struct {
	client mqttPublisher
	topic  string
}

// NewMQTTSink connects to broker with automatic reconnection.
func NewMQTTSink(broker, topic, clientID string, logger *logger.Logger) (*MQTTSink, error) {
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(c mqtt.Client) {
		logger.Info("MQTT connection established: %s", broker)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		logger.Warning("MQTT connection lost, will auto-reconnect: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}

	return newMQTTSink(client, topic), nil
}

func newMQTTSink(client mqttPublisher, topic string) *MQTTSink {
	return &MQTTSink{client: client, topic: strings.TrimSuffix(topic, "/")}
}

func (s *MQTTSink) Name() string {
	return "mqtt"
}

func (s *MQTTSink) Send(ctx context.Context, ev dto.CountEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := fmt.Sprintf("%s/%s", s.topic, ev.Junction)
	token := s.client.Publish(topic, mqttQoS, false, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s failed: %w", topic, err)
	}
	return nil
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
