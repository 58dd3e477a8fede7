package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/scituinsk/BE-Smart-Farming/internal/hub"
	"github.com/scituinsk/BE-Smart-Farming/internal/logger"
)

const (
	// statusTopicPattern receives device status reports for every module.
	statusTopicPattern = "devices/+/status"
	// controlTopicFormat is where outbound commands for one module go.
	controlTopicFormat = "devices/%s/control"

	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second

	connectRetryInterval = 2 * time.Second
	maxReconnectInterval = 30 * time.Second
)

// controlMessage is the JSON body published to a device's control topic.
type controlMessage struct {
	Command  string `json:"command"`
	Duration int64  `json:"duration,omitempty"`
	Source   string `json:"source,omitempty"`
}

// Bridge relays between the MQTT broker and the in-process broadcast hub.
// Inbound device status reports are forwarded into the device's group as
// system-origin messages; outbound commands are published to the device's
// control topic.
type Bridge struct {
	broker string
	hub    *hub.Hub
	client mqtt.Client
}

// New creates a bridge for the provided broker URL (e.g. tcp://host:1883).
func New(broker string, h *hub.Hub) *Bridge {
	return &Bridge{broker: broker, hub: h}
}

// Connect establishes the broker connection and subscribes to device
// status topics. The subscription is re-established on every reconnect.
func (b *Bridge) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.broker)
	opts.SetClientID("farming-server-" + uuid.NewString()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(connectRetryInterval)
	opts.SetMaxReconnectInterval(maxReconnectInterval)

	opts.OnConnect = func(c mqtt.Client) {
		logger.InfoKV(ctx, "MQTT connection established", "broker", b.broker)

		token := c.Subscribe(statusTopicPattern, 0, b.handleStatus)
		if !token.WaitTimeout(connectTimeout) || token.Error() != nil {
			logger.ErrorKV(ctx, "Failed to subscribe to device status topics",
				"pattern", statusTopicPattern, "error", token.Error())
		}
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.WarnKV(ctx, "MQTT connection lost, reconnecting", "error", err)
	}

	b.client = mqtt.NewClient(opts)

	token := b.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect to %s: timeout", b.broker)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect to %s: %w", b.broker, err)
	}

	return nil
}

// handleStatus forwards one device status report into its module's group.
func (b *Bridge) handleStatus(_ mqtt.Client, msg mqtt.Message) {
	ctx := logger.WithName(context.Background(), "bridge")

	serial, ok := serialFromStatusTopic(msg.Topic())
	if !ok {
		logger.DebugKV(ctx, "Status message on unexpected topic", "topic", msg.Topic())

		return
	}

	b.hub.Publish(ctx, hub.GroupName(serial), string(msg.Payload()), "", hub.OriginSystem)
}

// PublishControl sends a command to one device's control topic.
func (b *Bridge) PublishControl(_ context.Context, serialID, command string, duration int64, source string) error {
	body, err := json.Marshal(controlMessage{
		Command:  command,
		Duration: duration,
		Source:   source,
	})
	if err != nil {
		return fmt.Errorf("marshal control message: %w", err)
	}

	topic := fmt.Sprintf(controlTopicFormat, serialID)

	token := b.client.Publish(topic, 0, false, body)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", topic)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	return nil
}

// Close disconnects from the broker, allowing in-flight work to finish.
func (b *Bridge) Close() {
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(250)
	}
}

// serialFromStatusTopic extracts the module serial from a
// devices/<serial>/status topic.
func serialFromStatusTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "devices" || parts[2] != "status" || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}
