package device

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCloser struct {
	*bytes.Buffer
	closed bool
}

func (n *nopCloser) Close() error {
	n.closed = true
	return nil
}

func TestParseButton(t *testing.T) {
	tests := []struct {
		in   string
		want Button
		ok   bool
	}{
		{"BTN_X", BtnX, true},
		{"btn_a", BtnA, true},
		{"y", BtnY, true},
		{" dpad_up ", BtnDpadUp, true},
		{"BTN_NOPE", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseButton(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStick_Axes(t *testing.T) {
	x, y := StickLeft.Axes()
	assert.Equal(t, AbsX, x)
	assert.Equal(t, AbsY, y)

	x, y = StickRight.Axes()
	assert.Equal(t, AbsRX, x)
	assert.Equal(t, AbsRY, y)

	assert.False(t, Stick("middle").Valid())
	assert.Equal(t, "ABS_RX", AbsRX.String())
	assert.Equal(t, "BTN_LEFT", BtnLeft.String())
}

func TestMulti_FansOut(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	m := Multi{a, b}

	require.NoError(t, m.WriteAxis(AbsX, 7))
	require.NoError(t, m.Sync())

	want := []Event{AxisEvent(AbsX, 7), SyncEvent()}
	assert.Equal(t, want, a.Events())
	assert.Equal(t, want, b.Events())

	require.NoError(t, b.Close())
	err := m.WriteButton(BtnA, true)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Len(t, a.Events(), 3)
}

func TestStreamSink_JSONLines(t *testing.T) {
	buf := &nopCloser{Buffer: &bytes.Buffer{}}
	s := NewStreamSink(buf)

	require.NoError(t, s.WriteAxis(AbsRX, -677))
	assert.Zero(t, buf.Len(), "events are buffered until sync")
	require.NoError(t, s.WriteButton(BtnA, true))
	require.NoError(t, s.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var got []Event
	for _, l := range lines {
		var e Event
		require.NoError(t, json.Unmarshal([]byte(l), &e))
		got = append(got, e)
	}
	assert.Equal(t, []Event{AxisEvent(AbsRX, -677), ButtonEvent(BtnA, true), SyncEvent()}, got)
	assert.JSONEq(t, `{"type":"abs","code":3,"value":-677}`, lines[0])

	require.NoError(t, s.Close())
	assert.True(t, buf.closed)
	assert.ErrorIs(t, s.Sync(), ErrClosed)
}

func TestMQTTSink_PublishesReportPerSync(t *testing.T) {
	var published [][]byte
	closed := false
	m := newMQTTSink(func(p []byte) error {
		published = append(published, p)
		return nil
	}, func() { closed = true })

	require.NoError(t, m.WriteAxis(AbsRX, 100))
	require.NoError(t, m.WriteAxis(AbsRY, -5))
	require.NoError(t, m.WriteButton(BtnB, true))
	require.NoError(t, m.Sync())
	require.NoError(t, m.WriteButton(BtnB, false))
	require.NoError(t, m.Sync())

	require.Len(t, published, 2)

	var r Report
	require.NoError(t, json.Unmarshal(published[0], &r))
	assert.Equal(t, []AxisVal{{"ABS_RX", 100}, {"ABS_RY", -5}}, r.Axes)
	assert.Equal(t, []string{"BTN_B"}, r.Buttons)

	require.NoError(t, json.Unmarshal(published[1], &r))
	assert.Empty(t, r.Buttons)

	require.NoError(t, m.Close())
	assert.True(t, closed)
	assert.ErrorIs(t, m.WriteAxis(AbsX, 1), ErrClosed)
}

func TestMQTTSink_PublishError(t *testing.T) {
	m := newMQTTSink(func([]byte) error { return errors.New("broker down") }, nil)
	assert.ErrorContains(t, m.Sync(), "broker down")
}

func TestSerialSink_Frames(t *testing.T) {
	buf := &nopCloser{Buffer: &bytes.Buffer{}}
	s := NewFrameSink(buf)

	require.NoError(t, s.WriteAxis(AbsRX, -677))
	require.NoError(t, s.WriteButton(BtnA, true))
	require.NoError(t, s.Sync())
	require.NoError(t, s.WriteButton(BtnA, false))
	require.NoError(t, s.WriteAxis(AbsRY, 12))
	require.NoError(t, s.Sync())

	// BtnA is the third advertised button.
	assert.Equal(t, "J 0 0 -677 0 4\nJ 0 0 -677 12 0\n", buf.String())

	require.NoError(t, s.Close())
	assert.True(t, buf.closed)
}

func TestOpen(t *testing.T) {
	s, err := Open(Config{})
	require.NoError(t, err)
	assert.IsType(t, &LogSink{}, s)

	s, err = Open(Config{Kinds: []string{KindLog, KindLog}})
	require.NoError(t, err)
	assert.Len(t, s, 2)

	_, err = Open(Config{Kinds: []string{"joystick"}})
	assert.Error(t, err)

	_, err = Open(Config{Kinds: []string{KindUinput}})
	assert.Error(t, err)

	assert.Equal(t, []string{"uinput", "mqtt"}, ParseKinds(" uinput, MQTT ,,"))
}
