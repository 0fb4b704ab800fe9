package device

import (
	"fmt"
	"strings"
)

// Sink kinds accepted by Open.
const (
	KindLog    = "log"
	KindUinput = "uinput"
	KindMQTT   = "mqtt"
	KindSerial = "serial"
)

// Config selects and configures the output sinks.
type Config struct {
	// Kinds lists the sinks to open, e.g. ["uinput", "mqtt"].
	Kinds []string `json:"kinds"`
	// Helper is the uinput helper command line.
	Helper []string     `json:"helper"`
	MQTT   MQTTConfig   `json:"mqtt"`
	Serial SerialConfig `json:"serial"`
}

// DefaultConfig logs reports without touching a device.
func DefaultConfig() Config {
	return Config{
		Kinds:  []string{KindLog},
		Helper: []string{"python3", "scripts/uinput_helper.py"},
		MQTT:   DefaultMQTTConfig(),
		Serial: DefaultSerialConfig(),
	}
}

// ParseKinds splits a comma separated sink list.
func ParseKinds(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(strings.ToLower(k)); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Open builds the sinks named in cfg. Sinks already opened are closed
// again when a later one fails.
func Open(cfg Config) (Sink, error) {
	if len(cfg.Kinds) == 0 {
		return &LogSink{}, nil
	}

	var sinks Multi
	for _, kind := range cfg.Kinds {
		s, err := openOne(kind, cfg)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sinks, nil
}

func openOne(kind string, cfg Config) (Sink, error) {
	switch kind {
	case KindLog:
		return &LogSink{}, nil
	case KindUinput:
		if len(cfg.Helper) == 0 {
			return nil, fmt.Errorf("uinput sink: no helper command configured")
		}
		return NewProcessSink(cfg.Helper[0], cfg.Helper[1:]...)
	case KindMQTT:
		return NewMQTTSink(cfg.MQTT)
	case KindSerial:
		return NewSerialSink(cfg.Serial)
	default:
		return nil, fmt.Errorf("unknown sink %q", kind)
	}
}
