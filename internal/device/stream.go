package device

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/ayusman/headpad/internal/log"
)

// StreamSink writes events as JSON lines, one object per event:
//
//	{"type":"abs","code":3,"value":-677}
//	{"type":"key","code":304,"value":1}
//	{"type":"syn","code":0,"value":0}
//
// Events are buffered and flushed on Sync.
type StreamSink struct {
	mu     sync.Mutex
	w      *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
	closed bool
}

// NewStreamSink writes events to wc.
func NewStreamSink(wc io.WriteCloser) *StreamSink {
	bw := bufio.NewWriter(wc)
	return &StreamSink{w: bw, enc: json.NewEncoder(bw), closer: wc}
}

func (s *StreamSink) write(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.enc.Encode(e); err != nil {
		return err
	}
	if e.Kind == KindSync {
		return s.w.Flush()
	}
	return nil
}

func (s *StreamSink) WriteAxis(a Axis, v int32) error         { return s.write(AxisEvent(a, v)) }
func (s *StreamSink) WriteButton(b Button, pressed bool) error { return s.write(ButtonEvent(b, pressed)) }
func (s *StreamSink) Sync() error                             { return s.write(SyncEvent()) }

func (s *StreamSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	ferr := s.w.Flush()
	if err := s.closer.Close(); err != nil {
		return err
	}
	return ferr
}

// ProcessSink drives a uinput helper process over its stdin. The helper
// creates the virtual gamepad and replays the JSON events.
type ProcessSink struct {
	*StreamSink
	cmd *exec.Cmd
}

// NewProcessSink starts the helper command.
func NewProcessSink(name string, args ...string) (*ProcessSink, error) {
	cmd := exec.Command(name, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start uinput helper: %w", err)
	}
	log.Info("uinput helper started", "cmd", name, "pid", cmd.Process.Pid)

	return &ProcessSink{StreamSink: NewStreamSink(stdin), cmd: cmd}, nil
}

// Close closes the helper's stdin and waits for it to exit.
func (p *ProcessSink) Close() error {
	if err := p.StreamSink.Close(); err != nil {
		return err
	}
	return p.cmd.Wait()
}
