// Package app runs the live camera pipeline: camera frames go through the
// hand detector into a recognition session, and letter changes are fed to
// the output plugins.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ayusman/fingerspell/internal/capture"
	"github.com/ayusman/fingerspell/internal/detector"
	"github.com/ayusman/fingerspell/internal/logging"
	"github.com/ayusman/fingerspell/internal/plugin"
	"github.com/ayusman/fingerspell/internal/session"
	"github.com/ayusman/fingerspell/internal/store"
)

// DefaultChangeThreshold is the percentage of pixels that must change
// between frames to count as activity.
const DefaultChangeThreshold = 1.0

// ErrRunning is returned by Start when the pipeline is already running.
var ErrRunning = errors.New("pipeline already running")

// Config holds configuration options for the application.
type Config struct {
	CameraID        int
	FrameWidth      int
	FrameHeight     int
	ChangeThreshold float64
	// Targets starts a practice drill over these letters, e.g. "ABC".
	Targets string

	IdleFPS   int
	ActiveFPS int

	Detector detector.Config
}

// App is the camera pipeline.
type App struct {
	config     Config
	sessions   *session.Manager
	camera     capture.Camera
	change     *capture.ChangeDetector
	detector   detector.Detector
	dispatcher *plugin.Dispatcher
	onUpdate   func(session.Update)
	logger     logging.Logger

	enabled atomic.Bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	runErr  error
	current *session.Session
}

// Option configures an App.
type Option func(*App)

// WithCamera replaces the default device camera.
func WithCamera(c capture.Camera) Option {
	return func(a *App) { a.camera = c }
}

// WithDetector replaces the MediaPipe detector.
func WithDetector(d detector.Detector) Option {
	return func(a *App) { a.detector = d }
}

// WithDispatcher sends every new letter to the output plugins.
func WithDispatcher(d *plugin.Dispatcher) Option {
	return func(a *App) { a.dispatcher = d }
}

// OnUpdate registers a callback for letter changes and drill progress.
// It runs on the recognition goroutine and must not block.
func OnUpdate(fn func(session.Update)) Option {
	return func(a *App) { a.onUpdate = fn }
}

// WithLogger sets the pipeline logger.
func WithLogger(l logging.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates a new App. Detection starts enabled.
func New(sessions *session.Manager, config Config, opts ...Option) *App {
	if config.ChangeThreshold <= 0 {
		config.ChangeThreshold = DefaultChangeThreshold
	}

	a := &App{
		config:   config,
		sessions: sessions,
		change:   capture.NewChangeDetector(config.ChangeThreshold),
		logger:   logging.Named("app"),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.enabled.Store(true)

	if a.camera == nil {
		a.camera = capture.NewCamera(config.CameraID, capture.WithResolution(config.FrameWidth, config.FrameHeight))
	}
	if a.detector == nil {
		// Try MediaPipe first, fall back to a detector that never sees a hand.
		if mp, err := detector.NewMediaPipeDetector(config.Detector); err == nil {
			a.detector = mp
			a.logger.Infow("using mediapipe hand detection", "script", mp.Script())
		} else {
			a.logger.Warnw("mediapipe not available, using mock detector", "error", err)
			a.detector = detector.NewMockDetector()
		}
	}
	return a
}

// SetEnabled pauses or resumes detection without closing the camera.
func (a *App) SetEnabled(enabled bool) {
	a.enabled.Store(enabled)
	a.logger.Infow("detection toggled", "enabled", enabled)
}

// IsEnabled returns whether detection is currently enabled.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// Session returns the running session, or nil.
func (a *App) Session() *session.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Start opens the camera and begins a camera session.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done != nil {
		return ErrRunning
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	s, err := a.sessions.Start(store.SourceCamera, a.config.Targets, a.handle)
	if err != nil {
		a.camera.Close()
		return err
	}

	src := newCameraSource(a.camera, a.change, a.detector, a.enabled.Load, a.config, a.logger)
	a.camera.SetFPS(src.throttle.FPS())

	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})
	a.current = s
	a.runErr = nil

	go a.run(ctx, s, src)

	a.logger.Infow("detection pipeline started", "session", s.ID, "targets", a.config.Targets)
	return nil
}

func (a *App) run(ctx context.Context, s *session.Session, src *cameraSource) {
	err := s.Engine().Run(ctx, src)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if endErr := s.End(); endErr != nil {
		a.logger.Errorw("failed to end session", "session", s.ID, "error", endErr)
	}

	a.mu.Lock()
	a.runErr = err
	done := a.done
	a.mu.Unlock()

	if err != nil {
		a.logger.Errorw("detection pipeline failed", "error", err)
	} else {
		a.logger.Infow("detection pipeline finished", "session", s.ID)
	}
	close(done)
}

// Wait blocks until the pipeline finishes and returns its error. A stopped
// pipeline or an exhausted camera returns nil.
func (a *App) Wait() error {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()

	if done == nil {
		return nil
	}
	<-done

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runErr
}

// Stop halts the pipeline and closes the camera. The detectors stay usable
// for another Start.
func (a *App) Stop() error {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.mu.Unlock()

	if done == nil {
		return nil
	}
	cancel()
	<-done

	a.mu.Lock()
	err := a.runErr
	a.cancel = nil
	a.done = nil
	a.current = nil
	a.mu.Unlock()

	if cerr := a.camera.Close(); cerr != nil {
		a.logger.Warnw("error closing camera", "error", cerr)
	}
	a.change.Reset()

	a.logger.Infow("detection pipeline stopped")
	return err
}

// Close stops the pipeline and releases the detectors.
func (a *App) Close() error {
	err := a.Stop()
	a.change.Close()
	if derr := a.detector.Close(); derr != nil {
		a.logger.Warnw("error closing detector", "error", derr)
	}
	return err
}

func (a *App) handle(u session.Update) {
	if a.dispatcher != nil {
		a.dispatcher.Dispatch(u.Detection.Letter, u.Detection.Confidence)
	}
	if a.onUpdate != nil {
		a.onUpdate(u)
	}
}

// Bindings serves per-letter plugin bindings from the store.
type Bindings struct {
	Store *store.Store
}

// Bindings implements plugin.BindingSource.
func (b Bindings) Bindings(letter string) ([]plugin.Binding, error) {
	rows, err := b.Store.Bindings().ListByLetter(letter)
	if err != nil {
		return nil, err
	}

	out := make([]plugin.Binding, 0, len(rows))
	for _, r := range rows {
		out = append(out, plugin.Binding{Plugin: r.PluginName, Action: r.ActionName, Config: r.Config})
	}
	return out, nil
}
