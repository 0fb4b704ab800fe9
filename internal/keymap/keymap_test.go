package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/headpad/internal/device"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		bindings map[string]string
		wantErr  error
		ok       bool
	}{
		{"defaults", DefaultBindings(), nil, true},
		{"short names", map[string]string{"q": "start"}, nil, true},
		{"unknown button", map[string]string{"q": "BTN_TURBO"}, ErrUnknownButton, false},
		{"multi-char key", map[string]string{"space": "BTN_A"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse(tt.bindings)
			if tt.ok {
				require.NoError(t, err)
				assert.NotNil(t, m)
				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestMap_Lookup(t *testing.T) {
	m := Default()

	b, ok := m.Lookup("x")
	assert.True(t, ok)
	assert.Equal(t, device.BtnX, b)

	b, ok = m.Lookup("B")
	assert.True(t, ok)
	assert.Equal(t, device.BtnB, b)

	_, ok = m.Lookup("z")
	assert.False(t, ok)

	assert.Equal(t, []Binding{
		{"a", "BTN_A"}, {"b", "BTN_B"}, {"x", "BTN_X"}, {"y", "BTN_Y"},
	}, m.Bindings())
}

func TestListener(t *testing.T) {
	rec := device.NewRecorder()
	g := device.NewGuard(rec, device.StickRight, device.BtnLeft)
	l := NewListener(Default(), g)

	handled, err := l.Key("a", true)
	require.NoError(t, err)
	assert.True(t, handled)

	handled, err = l.Key("a", false)
	require.NoError(t, err)
	assert.True(t, handled)

	handled, err = l.Key("q", true)
	require.NoError(t, err)
	assert.False(t, handled)

	assert.Equal(t, []device.Event{
		device.ButtonEvent(device.BtnA, true), device.SyncEvent(),
		device.ButtonEvent(device.BtnA, false), device.SyncEvent(),
	}, rec.Events())
}
