package device

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/headpad/internal/log"
)

// MQTTConfig describes the broker a remote joystick bridge listens on.
type MQTTConfig struct {
	Broker   string `json:"broker"`
	Topic    string `json:"topic"`
	ClientID string `json:"client_id"`
	QoS      byte   `json:"qos"`
	Retained bool   `json:"retained"`
}

// DefaultMQTTConfig returns the settings for a local broker.
func DefaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Broker:   "tcp://localhost:1883",
		Topic:    "headpad/joystick",
		ClientID: "headpad",
	}
}

// Report is the message published once per sync.
type Report struct {
	Time    time.Time `json:"time"`
	Axes    []AxisVal `json:"axes"`
	Buttons []string  `json:"buttons"`
}

// AxisVal is one axis in a Report.
type AxisVal struct {
	Axis  string `json:"axis"`
	Value int32  `json:"value"`
}

func newReport(s *State, at time.Time) Report {
	r := Report{Time: at, Buttons: []string{}}
	for _, a := range []Axis{AbsX, AbsY, AbsRX, AbsRY} {
		if v, ok := s.Axes[a]; ok {
			r.Axes = append(r.Axes, AxisVal{Axis: a.String(), Value: v})
		}
	}
	for _, b := range s.Pressed() {
		r.Buttons = append(r.Buttons, b.String())
	}
	return r
}

// MQTTSink publishes the accumulated gamepad state as one JSON report
// per Sync.
type MQTTSink struct {
	mu      sync.Mutex
	state   State
	publish func(payload []byte) error
	close   func()
	closed  bool
}

// NewMQTTSink connects to the broker.
func NewMQTTSink(cfg MQTTConfig) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	log.Info("connected to MQTT", "broker", cfg.Broker, "topic", cfg.Topic)

	publish := func(payload []byte) error {
		token := client.Publish(cfg.Topic, cfg.QoS, cfg.Retained, payload)
		token.Wait()
		return token.Error()
	}
	return newMQTTSink(publish, func() { client.Disconnect(250) }), nil
}

func newMQTTSink(publish func([]byte) error, closeFn func()) *MQTTSink {
	return &MQTTSink{publish: publish, close: closeFn}
}

func (m *MQTTSink) WriteAxis(a Axis, v int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.state.SetAxis(a, v)
	return nil
}

func (m *MQTTSink) WriteButton(b Button, pressed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.state.SetButton(b, pressed)
	return nil
}

func (m *MQTTSink) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	payload, err := json.Marshal(newReport(&m.state, time.Now()))
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := m.publish(payload); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	return nil
}

func (m *MQTTSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.close != nil {
		m.close()
	}
	return nil
}
