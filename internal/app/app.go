// Package app wires the camera, the landmark extractor, the tracking
// session and the output device into the headpad frame loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/headpad/internal/capture"
	"github.com/ayusman/headpad/internal/config"
	"github.com/ayusman/headpad/internal/device"
	"github.com/ayusman/headpad/internal/face"
	"github.com/ayusman/headpad/internal/gesture"
	"github.com/ayusman/headpad/internal/keymap"
	"github.com/ayusman/headpad/internal/log"
	"github.com/ayusman/headpad/internal/movementlog"
	"github.com/ayusman/headpad/internal/plugin"
	"github.com/ayusman/headpad/internal/store"
	"github.com/ayusman/headpad/internal/tracking"
)

// ErrNotCalibrated is returned by Step before the first calibration.
var ErrNotCalibrated = errors.New("not calibrated")

// Options holds the collaborators of an App. Nil fields are built from
// Settings.
type Options struct {
	Settings *config.Config
	Store    *store.Store
	Camera   capture.Camera
	Detector face.Detector
	Sink     device.Sink
	Plugins  *plugin.Runner
}

// GestureEvent records a recognized head gesture and the action it ran.
type GestureEvent struct {
	Gesture string    `json:"gesture"`
	Score   float64   `json:"score"`
	Plugin  string    `json:"plugin,omitempty"`
	Action  string    `json:"action,omitempty"`
	Error   string    `json:"error,omitempty"`
	Time    time.Time `json:"time"`
}

// Status is a point-in-time view of the app.
type Status struct {
	Enabled     bool                  `json:"enabled"`
	Calibrated  bool                  `json:"calibrated"`
	SessionID   string                `json:"session_id,omitempty"`
	Idle        bool                  `json:"idle"`
	FPS         int                   `json:"fps"`
	Session     *tracking.Snapshot    `json:"session,omitempty"`
	Last        *tracking.FrameResult `json:"last_frame,omitempty"`
	LastGesture *GestureEvent         `json:"last_gesture,omitempty"`
	Written     int                   `json:"samples_written"`
	Dropped     int                   `json:"samples_dropped"`
}

// App is the headpad runtime.
type App struct {
	cfg        *config.Config
	store      *store.Store
	camera     capture.Camera
	extractor  *face.Extractor
	activity   *capture.ActivityDetector
	guard      *device.Guard
	keys       *keymap.Listener
	batcher    *movementlog.Batcher
	csv        *movementlog.CSVLog
	matcher    *gesture.Matcher
	recognizer *gesture.Recognizer
	plugins    *plugin.Runner
	tap        FrameTap

	enabled     atomic.Bool
	recalibrate chan struct{}
	actions     sync.WaitGroup

	mu          sync.RWMutex
	session     *tracking.Session
	sessionID   string
	last        *tracking.FrameResult
	lastGesture *GestureEvent
	idle        bool
	subs        map[int]chan tracking.FrameResult
	nextSub     int
}

// New builds an App. The camera is not opened until Calibrate or Run.
func New(opts Options) (*App, error) {
	cfg := opts.Settings
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	a := &App{
		cfg:         cfg,
		store:       opts.Store,
		camera:      opts.Camera,
		activity:    capture.NewActivityDetector(cfg.Camera.ActivityThreshold),
		matcher:     gesture.NewMatcher(),
		plugins:     opts.Plugins,
		recalibrate: make(chan struct{}, 1),
		subs:        make(map[int]chan tracking.FrameResult),
	}
	a.recognizer = gesture.NewRecognizer(a.matcher, cfg.RecognizerConfig())
	a.enabled.Store(true)

	if a.camera == nil {
		a.camera = capture.NewCamera(cfg.CaptureConfig())
	}

	det := opts.Detector
	if det == nil {
		mesh, err := face.NewMeshDetector(cfg.FaceConfig())
		if err != nil {
			log.Warn("face mesh not available, using mock detector", "err", err)
			det = face.NewMockDetector()
		} else {
			det = mesh
		}
	}
	a.extractor = face.NewExtractor(det)
	a.extractor.MouthThreshold = cfg.Face.MouthThreshold
	a.extractor.WinkThreshold = cfg.Face.WinkThreshold

	sink := opts.Sink
	if sink == nil {
		var err error
		if sink, err = device.Open(cfg.Device); err != nil {
			return nil, fmt.Errorf("open device: %w", err)
		}
	}
	a.guard = device.NewGuard(sink, device.Stick(cfg.Mapper.Stick), cfg.PrimaryButton())

	keys := keymap.Default()
	if len(cfg.Keys) > 0 {
		var err error
		if keys, err = keymap.Parse(cfg.Keys); err != nil {
			a.guard.Close()
			return nil, err
		}
	}
	a.keys = keymap.NewListener(keys, a.guard)

	if cfg.Samples.CSVPath != "" {
		csv, err := movementlog.OpenCSV(cfg.Samples.CSVPath)
		if err != nil {
			a.guard.Close()
			return nil, err
		}
		a.csv = csv
	}
	a.batcher = movementlog.NewBatcher(cfg.BatcherConfig(), a.sampleWriters("")...)

	if a.plugins == nil {
		a.plugins = plugin.NewRunner(plugin.NewManager(cfg.PluginDir), plugin.NewExecutor(cfg.PluginTimeout()))
	}
	if err := a.plugins.Manager().Discover(); err != nil {
		log.Warn("plugin discovery failed", "dir", cfg.PluginDir, "err", err)
	}
	if err := a.LoadGestures(); err != nil {
		log.Warn("failed to load gestures", "err", err)
	}

	return a, nil
}

func (a *App) sampleWriters(sessionID string) []movementlog.Writer {
	var writers []movementlog.Writer
	if a.csv != nil {
		writers = append(writers, a.csv)
	}
	if a.store != nil && sessionID != "" && a.cfg.Samples.Store {
		writers = append(writers, a.store.Movements().ForSession(sessionID))
	}
	return writers
}

func (a *App) openCamera() error {
	if a.camera.IsOpen() {
		return nil
	}
	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("%w: %v", tracking.ErrCaptureFailure, err)
	}
	a.camera.SetFPS(a.cfg.Camera.ActiveFPS)
	return nil
}

// Calibrate samples the neutral head position and starts a new tracking
// session. On failure the previous session, if any, stays active.
func (a *App) Calibrate(ctx context.Context) error {
	if err := a.openCamera(); err != nil {
		return err
	}

	log.Info("calibrating, look straight at the camera", "frames", a.cfg.Calibration.Frames)
	state, err := tracking.Calibrate(ctx, a.extractor.NoseSource(a.camera.ReadFrame), a.cfg.CalibrationConfig())
	if err != nil {
		return err
	}
	sess, err := tracking.NewSession(state, a.cfg.TrackingConfig())
	if err != nil {
		return err
	}

	id := uuid.NewString()
	if a.store != nil {
		err := a.store.Sessions().Create(&store.Session{
			ID:                 id,
			NeutralX:           state.Neutral.X,
			NeutralY:           state.Neutral.Y,
			ThresholdX:         state.Thresholds.X,
			ThresholdY:         state.Thresholds.Y,
			SpreadX:            state.Spread.X,
			SpreadY:            state.Spread.Y,
			CalibrationSamples: state.Samples,
			Filter:             a.cfg.Filter.Strategy,
		})
		if err != nil {
			log.Warn("failed to record session", "session", id, "err", err)
		}
	}

	a.endSession()
	if err := a.batcher.SetWriters(a.sampleWriters(id)...); err != nil {
		log.Warn("flushing samples of previous session failed", "err", err)
	}

	a.mu.Lock()
	a.session = sess
	a.sessionID = id
	a.last = nil
	a.mu.Unlock()

	a.recognizer.Reset()
	if err := a.guard.Center(); err != nil {
		log.Warn("failed to center device", "err", err)
	}

	log.Info("calibrated",
		"session", id,
		"neutral_x", state.Neutral.X,
		"neutral_y", state.Neutral.Y,
		"samples", state.Samples,
		"spread_x", state.Spread.X,
		"spread_y", state.Spread.Y,
	)
	return nil
}

// endSession stamps the end time of the current store session.
func (a *App) endSession() {
	a.mu.RLock()
	id := a.sessionID
	a.mu.RUnlock()
	if a.store == nil || id == "" {
		return
	}
	if err := a.store.Sessions().End(id, time.Now()); err != nil {
		log.Warn("failed to close session", "session", id, "err", err)
	}
}

// RequestCalibration asks the running loop to recalibrate before the
// next frame.
func (a *App) RequestCalibration() {
	select {
	case a.recalibrate <- struct{}{}:
	default:
	}
}

// Recenter forces a neutral output on the next detected frame. It
// reports false before the first calibration.
func (a *App) Recenter() bool {
	sess := a.Session()
	if sess == nil {
		return false
	}
	sess.Recenter()
	return true
}

// SetEnabled turns the output on or off. While disabled frames are
// still paced but nothing is read or written.
func (a *App) SetEnabled(enabled bool) {
	if a.enabled.Swap(enabled) != enabled {
		log.Info("output toggled", "enabled", enabled)
	}
}

// Enabled reports whether the output is on.
func (a *App) Enabled() bool {
	return a.enabled.Load()
}

// Session returns the active tracking session, or nil.
func (a *App) Session() *tracking.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// SessionID returns the id of the active session.
func (a *App) SessionID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sessionID
}

// Status returns the current state.
func (a *App) Status() Status {
	written, dropped := a.batcher.Stats()

	a.mu.RLock()
	defer a.mu.RUnlock()

	st := Status{
		Enabled:     a.Enabled(),
		Calibrated:  a.session != nil,
		SessionID:   a.sessionID,
		Idle:        a.idle,
		FPS:         a.camera.FPS(),
		Last:        a.last,
		LastGesture: a.lastGesture,
		Written:     written,
		Dropped:     dropped,
	}
	if a.session != nil {
		snap := a.session.Snapshot()
		st.Session = &snap
	}
	return st
}

// Subscribe returns a channel receiving every frame result. Slow
// subscribers miss frames. The returned func unsubscribes.
func (a *App) Subscribe(buffer int) (<-chan tracking.FrameResult, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan tracking.FrameResult, buffer)

	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = ch
	a.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			if _, ok := a.subs[id]; ok {
				delete(a.subs, id)
				close(ch)
			}
			a.mu.Unlock()
		})
	}
}

func (a *App) publish(res tracking.FrameResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last = &res
	for _, ch := range a.subs {
		select {
		case ch <- res:
		default:
		}
	}
}

// Keys returns the key listener that forwards keys to the device.
func (a *App) Keys() *keymap.Listener { return a.keys }

// Guard returns the serialized device writer.
func (a *App) Guard() *device.Guard { return a.guard }

// Camera returns the camera.
func (a *App) Camera() capture.Camera { return a.camera }

// Frames returns the tap holding the latest processed frame.
func (a *App) Frames() *FrameTap { return &a.tap }

// Matcher returns the head gesture matcher.
func (a *App) Matcher() *gesture.Matcher { return a.matcher }

// Plugins returns the plugin runner.
func (a *App) Plugins() *plugin.Runner { return a.plugins }

// Store returns the database, which may be nil.
func (a *App) Store() *store.Store { return a.store }

// Close waits for running actions, flushes samples, ends the session and
// releases the camera, the detector and the device.
func (a *App) Close() error {
	a.actions.Wait()

	var errs []error
	if err := a.batcher.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.csv != nil {
		if err := a.csv.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.endSession()

	if err := a.guard.Center(); err != nil && !errors.Is(err, device.ErrClosed) {
		errs = append(errs, err)
	}
	if err := a.guard.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.camera.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.extractor.Detector().Close(); err != nil {
		errs = append(errs, err)
	}
	a.activity.Close()
	if err := a.tap.Close(); err != nil {
		errs = append(errs, err)
	}

	a.mu.Lock()
	for id, ch := range a.subs {
		close(ch)
		delete(a.subs, id)
	}
	a.mu.Unlock()

	return errors.Join(errs...)
}
