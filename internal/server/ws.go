package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/headpad/internal/log"
	"github.com/ayusman/headpad/internal/tracking"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local connections only
	},
}

const (
	signalBuffer = 8
	writeWait    = time.Second
)

// SignalMessage is exchanged on /api/signal. The server sends "frame"
// messages for every processed frame. Clients send "key" messages to
// press or release the mapped gamepad buttons and get a "key" reply.
type SignalMessage struct {
	Type    string                `json:"type"`
	Frame   *tracking.FrameResult `json:"frame,omitempty"`
	Key     string                `json:"key,omitempty"`
	Pressed bool                  `json:"pressed,omitempty"`
	Handled bool                  `json:"handled,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// SignalHandler streams frame results over WebSocket and forwards key
// events from the client to the device.
type SignalHandler struct {
	app Controller
}

// NewSignalHandler creates a SignalHandler.
func NewSignalHandler(app Controller) *SignalHandler {
	return &SignalHandler{app: app}
}

// ServeHTTP upgrades the connection and serves it until either side
// closes.
func (h *SignalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	frames, unsubscribe := h.app.Subscribe(signalBuffer)
	defer unsubscribe()

	c := &signalConn{conn: conn}
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readKeys(c)
	}()

	for {
		select {
		case <-done:
			return
		case res, ok := <-frames:
			if !ok {
				return
			}
			if err := c.send(SignalMessage{Type: "frame", Frame: &res}); err != nil {
				return
			}
		}
	}
}

// readKeys handles client messages until the connection fails.
func (h *SignalHandler) readKeys(c *signalConn) {
	for {
		var msg SignalMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("signal client read failed", "err", err)
			}
			return
		}
		if msg.Type != "key" {
			continue
		}

		reply := SignalMessage{Type: "key", Key: msg.Key, Pressed: msg.Pressed}
		handled, err := h.app.Keys().Key(msg.Key, msg.Pressed)
		reply.Handled = handled
		if err != nil {
			reply.Error = err.Error()
		}
		if err := c.send(reply); err != nil {
			return
		}
	}
}

// signalConn serializes writes; gorilla connections allow one writer.
type signalConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *signalConn) send(msg SignalMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}
