// Package keymap maps keyboard keys to gamepad buttons.
package keymap

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ayusman/headpad/internal/device"
	"github.com/ayusman/headpad/internal/log"
)

// ErrUnknownButton is returned by Parse for a button name that the
// virtual gamepad does not have.
var ErrUnknownButton = errors.New("unknown button")

// Map is a static key to button table. It is built once at startup and
// only read afterwards.
type Map struct {
	keys map[string]device.Button
}

// DefaultBindings are the face-buttons bound to their own letters.
func DefaultBindings() map[string]string {
	return map[string]string{
		"x": "BTN_X",
		"y": "BTN_Y",
		"a": "BTN_A",
		"b": "BTN_B",
	}
}

// Default returns the map built from DefaultBindings.
func Default() *Map {
	m, _ := Parse(DefaultBindings())
	return m
}

// Parse validates bindings of single keys to evdev button names. Keys
// are case-insensitive and must be a single character.
func Parse(bindings map[string]string) (*Map, error) {
	m := &Map{keys: make(map[string]device.Button, len(bindings))}
	for key, name := range bindings {
		k := normalize(key)
		if len([]rune(k)) != 1 {
			return nil, fmt.Errorf("key %q: must be a single character", key)
		}
		b, ok := device.ParseButton(name)
		if !ok {
			return nil, fmt.Errorf("key %q: %w %q", key, ErrUnknownButton, name)
		}
		m.keys[k] = b
	}
	return m, nil
}

// Lookup returns the button bound to key. Unknown keys report false.
func (m *Map) Lookup(key string) (device.Button, bool) {
	b, ok := m.keys[normalize(key)]
	return b, ok
}

// Bindings returns the table as key to button name, sorted by key.
func (m *Map) Bindings() []Binding {
	out := make([]Binding, 0, len(m.keys))
	for k, b := range m.keys {
		out = append(out, Binding{Key: k, Button: b.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Binding is one row of the key table.
type Binding struct {
	Key    string `json:"key"`
	Button string `json:"button"`
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// ButtonWriter is the part of device.Guard the listener needs.
type ButtonWriter interface {
	Button(b device.Button, pressed bool) error
}

// Listener forwards key presses and releases as button events.
type Listener struct {
	keys *Map
	out  ButtonWriter
}

// NewListener creates a listener writing through out.
func NewListener(keys *Map, out ButtonWriter) *Listener {
	return &Listener{keys: keys, out: out}
}

// Key handles one key transition. Keys without a binding are ignored
// and report false.
func (l *Listener) Key(key string, pressed bool) (bool, error) {
	b, ok := l.keys.Lookup(key)
	if !ok {
		return false, nil
	}
	if err := l.out.Button(b, pressed); err != nil {
		return true, err
	}
	log.Debug("key forwarded", "key", key, "button", b.String(), "pressed", pressed)
	return true, nil
}
