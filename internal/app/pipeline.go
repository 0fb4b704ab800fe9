package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/headpad/internal/gesture"
	"github.com/ayusman/headpad/internal/log"
	"github.com/ayusman/headpad/internal/tracking"
)

// Run calibrates if needed and then drives the frame loop until ctx is
// done or the camera fails. A camera failure ends the loop with an
// error wrapping tracking.ErrCaptureFailure.
//
// The loop runs at the active frame rate while the scene or the head
// moves and drops to the idle rate after the idle timeout.
func (a *App) Run(ctx context.Context) error {
	if err := a.openCamera(); err != nil {
		return err
	}
	if a.Session() == nil {
		if err := a.Calibrate(ctx); err != nil {
			return err
		}
	}

	pacer := newPacer(a.cfg.Camera.ActiveFPS, a.cfg.Camera.IdleFPS, a.cfg.IdleTimeout())
	ticker := time.NewTicker(pacer.interval())
	defer ticker.Stop()

	log.Info("frame loop started", "session", a.SessionID(), "fps", a.cfg.Camera.ActiveFPS)
	centered := false

	for {
		select {
		case <-ctx.Done():
			log.Info("frame loop stopped")
			return ctx.Err()
		case <-a.recalibrate:
			if err := a.Calibrate(ctx); err != nil {
				if errors.Is(err, tracking.ErrCaptureFailure) || ctx.Err() != nil {
					return err
				}
				log.Warn("recalibration failed, keeping previous session", "err", err)
			}
			continue
		case <-ticker.C:
		}

		if !a.Enabled() {
			if !centered {
				if err := a.guard.Center(); err != nil {
					log.Warn("failed to center device", "err", err)
				}
				centered = true
			}
			continue
		}
		centered = false

		res, active, err := a.step()
		if err != nil {
			return err
		}

		if pacer.observe(active || res.Flags.Any(), res.Time) {
			fps := pacer.fps()
			a.camera.SetFPS(fps)
			ticker.Reset(pacer.interval())

			a.mu.Lock()
			a.idle = pacer.idle
			a.mu.Unlock()
			if pacer.idle {
				// A gesture cannot span an idle period.
				a.recognizer.Reset()
			}
			log.Debug("frame rate changed", "fps", fps, "idle", pacer.idle)
		}
	}
}

// Step processes exactly one frame. It is what Run does on every tick
// and is exposed for callers that drive their own clock.
func (a *App) Step() (tracking.FrameResult, error) {
	res, _, err := a.step()
	return res, err
}

// step reads one frame and pushes it through extraction, the session,
// the device, the sample log and the gesture recognizer. active reports
// scene activity.
func (a *App) step() (res tracking.FrameResult, active bool, err error) {
	sess := a.Session()
	if sess == nil {
		return res, false, ErrNotCalibrated
	}

	frame, err := a.camera.ReadFrame()
	if err != nil {
		return res, false, fmt.Errorf("%w: %v", tracking.ErrCaptureFailure, err)
	}
	defer frame.Close()
	a.tap.put(frame)

	active, _ = a.activity.Detect(frame)

	obs, err := a.extractor.Observe(frame)
	if err != nil {
		// Treated like a frame without a face.
		log.Debug("landmark detection failed", "err", err)
	}

	res = sess.Step(obs)

	if err := a.guard.Emit(res.Signal); err != nil {
		log.Warn("device write failed", "err", err)
	}
	if sample, ok := res.Sample(); ok {
		if _, err := a.batcher.Add(sample); err != nil {
			log.Warn("sample log write failed", "err", err)
		}
	}
	if res.Recentered {
		log.Debug("recentered", "session", a.SessionID(), "stable_frames", res.StableFrames)
	}
	if res.Detected && a.cfg.Gestures.Enabled {
		p := gesture.PathPoint{X: res.Smoothed.DX, Y: res.Smoothed.DY, Timestamp: res.Time.UnixMilli()}
		if m, ok := a.recognizer.Observe(p); ok {
			a.fireGesture(m)
		}
	}

	a.publish(res)
	return res, active, nil
}

// pacer switches between the active and the idle frame rate.
type pacer struct {
	active, idleFPS int
	timeout         time.Duration
	idle            bool
	lastActivity    time.Time
}

func newPacer(active, idle int, timeout time.Duration) *pacer {
	if active < 1 {
		active = 1
	}
	if idle < 1 || idle > active {
		idle = active
	}
	return &pacer{active: active, idleFPS: idle, timeout: timeout, lastActivity: time.Now()}
}

func (p *pacer) fps() int {
	if p.idle {
		return p.idleFPS
	}
	return p.active
}

func (p *pacer) interval() time.Duration {
	return time.Second / time.Duration(p.fps())
}

// observe records one frame and reports whether the rate changed.
func (p *pacer) observe(active bool, at time.Time) bool {
	if active {
		p.lastActivity = at
		if p.idle {
			p.idle = false
			return true
		}
		return false
	}
	if !p.idle && at.Sub(p.lastActivity) > p.timeout {
		p.idle = true
		return true
	}
	return false
}
