// Package movementlog persists smoothed head movement samples.
package movementlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/ayusman/headpad/internal/log"
	"github.com/ayusman/headpad/internal/tracking"
)

// Sample is one persisted movement measurement.
type Sample = tracking.MovementSample

// Writer appends a batch of samples to durable storage.
type Writer interface {
	Append(samples []Sample) error
}

// Header is the first row of every movement CSV file.
var Header = []string{"timestamp", "dx", "dy", "speed"}

// CSVLog appends samples to a CSV file. The header is written only when
// the file is created, so restarts keep appending to the same table.
type CSVLog struct {
	mu   sync.Mutex
	f    *os.File
	w    *csv.Writer
	path string
}

// OpenCSV opens or creates path for appending.
func OpenCSV(path string) (*CSVLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open movement log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat movement log: %w", err)
	}

	c := &CSVLog{f: f, w: csv.NewWriter(f), path: path}
	if info.Size() == 0 {
		if err := c.w.Write(Header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
		c.w.Flush()
		if err := c.w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	return c, nil
}

// Path returns the file location.
func (c *CSVLog) Path() string { return c.path }

// Append writes samples and flushes them to the file.
func (c *CSVLog) Append(samples []Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range samples {
		if err := c.w.Write(record(s)); err != nil {
			return fmt.Errorf("write sample: %w", err)
		}
	}
	c.w.Flush()
	return c.w.Error()
}

// Close flushes and closes the file.
func (c *CSVLog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.Flush()
	return errors.Join(c.w.Error(), c.f.Close())
}

// record formats a sample; the timestamp is Unix seconds.
func record(s Sample) []string {
	ts := float64(s.Timestamp.UnixNano()) / float64(time.Second)
	return []string{
		strconv.FormatFloat(ts, 'f', 6, 64),
		strconv.FormatFloat(s.DX, 'f', -1, 64),
		strconv.FormatFloat(s.DY, 'f', -1, 64),
		strconv.FormatFloat(s.Speed, 'f', -1, 64),
	}
}

// Batcher defaults.
const (
	DefaultMinMovement = 2.0
	DefaultBatchSize   = 10
)

// BatcherConfig controls filtering and flushing.
type BatcherConfig struct {
	// MinMovement drops samples whose |dx| and |dy| are both below it.
	MinMovement float64
	// BatchSize is the number of buffered samples that triggers a flush.
	BatchSize int
}

// DefaultBatcherConfig returns the defaults.
func DefaultBatcherConfig() BatcherConfig {
	return BatcherConfig{MinMovement: DefaultMinMovement, BatchSize: DefaultBatchSize}
}

// Batcher buffers samples and hands them to every writer in batches.
type Batcher struct {
	mu      sync.Mutex
	cfg     BatcherConfig
	writers []Writer
	buf     []Sample
	written int
	dropped int
}

// NewBatcher creates a batcher over writers.
func NewBatcher(cfg BatcherConfig, writers ...Writer) *Batcher {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Batcher{cfg: cfg, writers: writers, buf: make([]Sample, 0, cfg.BatchSize)}
}

// Add buffers s unless it is below the movement floor, flushing when the
// batch is full. It reports whether the sample was kept.
func (b *Batcher) Add(s Sample) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if math.Abs(s.DX) < b.cfg.MinMovement && math.Abs(s.DY) < b.cfg.MinMovement {
		b.dropped++
		return false, nil
	}
	b.buf = append(b.buf, s)
	if len(b.buf) >= b.cfg.BatchSize {
		return true, b.flushLocked()
	}
	return true, nil
}

// Flush writes any buffered samples.
func (b *Batcher) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked()
}

// SetWriters replaces the writers after flushing to the old ones.
func (b *Batcher) SetWriters(writers ...Writer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.flushLocked()
	b.writers = writers
	return err
}

// Stats returns the number of samples written and dropped so far.
func (b *Batcher) Stats() (written, dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written, b.dropped
}

// flushLocked hands the buffer to every writer. A failing writer does not
// stop the others; the batch is dropped either way.
func (b *Batcher) flushLocked() error {
	if len(b.buf) == 0 {
		return nil
	}
	batch := append([]Sample(nil), b.buf...)
	b.buf = b.buf[:0]

	var errs []error
	for _, w := range b.writers {
		if err := w.Append(batch); err != nil {
			log.Warn("movement log write failed", "samples", len(batch), "err", err)
			errs = append(errs, err)
		}
	}
	b.written += len(batch)
	return errors.Join(errs...)
}

// Close flushes the remaining samples.
func (b *Batcher) Close() error {
	return b.Flush()
}
