package device

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"go.bug.st/serial"

	"github.com/ayusman/headpad/internal/log"
)

// SerialConfig describes a microcontroller HID bridge.
type SerialConfig struct {
	Port     string `json:"port"`
	BaudRate int    `json:"baud_rate"`
}

// DefaultSerialConfig returns the settings of a typical USB CDC bridge.
func DefaultSerialConfig() SerialConfig {
	return SerialConfig{Port: "/dev/ttyACM0", BaudRate: 115200}
}

// SerialSink sends one text frame per Sync to a microcontroller that
// presents itself to the host as a USB gamepad:
//
//	J <x> <y> <rx> <ry> <buttons-hex>\n
//
// where the button mask has bit i set for the i-th entry of Buttons().
type SerialSink struct {
	mu     sync.Mutex
	port   io.WriteCloser
	state  State
	closed bool
}

// NewSerialSink opens the serial port.
func NewSerialSink(cfg SerialConfig) (*SerialSink, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	log.Info("serial bridge opened", "port", cfg.Port, "baud", cfg.BaudRate)
	return NewFrameSink(port), nil
}

// NewFrameSink writes bridge frames to any writer.
func NewFrameSink(w io.WriteCloser) *SerialSink {
	return &SerialSink{port: w}
}

func (s *SerialSink) WriteAxis(a Axis, v int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.state.SetAxis(a, v)
	return nil
}

func (s *SerialSink) WriteButton(b Button, pressed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.state.SetButton(b, pressed)
	return nil
}

func (s *SerialSink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := io.WriteString(s.port, encodeFrame(&s.state)); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

func (s *SerialSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.port.Close()
}

func encodeFrame(st *State) string {
	var mask uint32
	for i, b := range Buttons() {
		if st.Buttons[b] {
			mask |= 1 << i
		}
	}
	var sb strings.Builder
	sb.WriteString("J")
	for _, a := range []Axis{AbsX, AbsY, AbsRX, AbsRY} {
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatInt(int64(st.Axis(a)), 10))
	}
	sb.WriteByte(' ')
	sb.WriteString(strconv.FormatUint(uint64(mask), 16))
	sb.WriteByte('\n')
	return sb.String()
}
