// Package recognizer turns a stream of hand landmark frames into stable
// finger-spelling letters.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/fingerspell/internal/gesture"
	"github.com/ayusman/fingerspell/internal/landmark"
	"github.com/ayusman/fingerspell/internal/logging"
)

var (
	// ErrMalformedFrame is returned for frames that are neither empty nor a full hand.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrFrameDropped is returned when a frame arrives while another is being processed.
	ErrFrameDropped = errors.New("frame dropped: engine busy")
	// ErrDuplicateFrame is returned for frames not newer than the last processed one.
	ErrDuplicateFrame = errors.New("duplicate or out-of-order frame")
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid recognizer config")
)

// Frame is one landmark observation. Landmarks is empty when no hand is visible.
type Frame struct {
	Timestamp int64              `json:"timestamp"` // ms, monotonic
	Landmarks []landmark.Point3D `json:"landmarks"`
}

// FrameSource supplies frames to Engine.Run. Next blocks until a frame is
// available; io.EOF ends the run.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
}

// Config holds every recognition threshold.
type Config struct {
	AcceptThreshold       float64
	TieEpsilon            float64
	HysteresisFrames      int
	HysteresisMinDuration time.Duration
	ResetTimeout          time.Duration
	MotionHold            time.Duration
	ConfidenceDecay       float64
	Tracker               gesture.TrackerConfig
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		AcceptThreshold:  0.8,
		TieEpsilon:       gesture.DefaultTieEpsilon,
		HysteresisFrames: 3,
		ResetTimeout:     time.Second,
		MotionHold:       600 * time.Millisecond,
		ConfidenceDecay:  0.95,
		Tracker:          gesture.DefaultTrackerConfig(),
	}
}

// Validate checks that the thresholds are usable.
func (c Config) Validate() error {
	switch {
	case c.AcceptThreshold < gesture.MinConfidence || c.AcceptThreshold > 1:
		return fmt.Errorf("%w: accept threshold %v not in [%v, 1]", ErrInvalidConfig, c.AcceptThreshold, gesture.MinConfidence)
	case c.TieEpsilon < 0 || c.TieEpsilon >= 0.5:
		return fmt.Errorf("%w: tie epsilon %v", ErrInvalidConfig, c.TieEpsilon)
	case c.HysteresisFrames < 1:
		return fmt.Errorf("%w: hysteresis frames must be at least 1", ErrInvalidConfig)
	case c.HysteresisMinDuration < 0:
		return fmt.Errorf("%w: negative hysteresis duration", ErrInvalidConfig)
	case c.ResetTimeout <= 0:
		return fmt.Errorf("%w: reset timeout must be positive", ErrInvalidConfig)
	case c.MotionHold < 0:
		return fmt.Errorf("%w: negative motion hold", ErrInvalidConfig)
	case c.ConfidenceDecay <= 0 || c.ConfidenceDecay > 1:
		return fmt.Errorf("%w: confidence decay %v not in (0, 1]", ErrInvalidConfig, c.ConfidenceDecay)
	case c.Tracker.ToleranceFactor < 1:
		return fmt.Errorf("%w: tolerance factor %v below 1", ErrInvalidConfig, c.Tracker.ToleranceFactor)
	case c.Tracker.TriggerThreshold <= 0 || c.Tracker.TriggerThreshold > 1:
		return fmt.Errorf("%w: trigger threshold %v", ErrInvalidConfig, c.Tracker.TriggerThreshold)
	case c.Tracker.Cooldown < 0:
		return fmt.Errorf("%w: negative cool-down", ErrInvalidConfig)
	case c.Tracker.MinSamples < 2:
		return fmt.Errorf("%w: min samples must be at least 2", ErrInvalidConfig)
	}
	return nil
}

func (c Config) arbiter() ArbiterConfig {
	return ArbiterConfig{
		AcceptThreshold:       c.AcceptThreshold,
		HysteresisFrames:      c.HysteresisFrames,
		HysteresisMinDuration: c.HysteresisMinDuration,
		ResetTimeout:          c.ResetTimeout,
		MotionHold:            c.MotionHold,
		ConfidenceDecay:       c.ConfidenceDecay,
	}
}

// Stats counts frames by outcome.
type Stats struct {
	Processed uint64 `json:"processed"`
	Dropped   uint64 `json:"dropped"`
	Malformed uint64 `json:"malformed"`
	Duplicate uint64 `json:"duplicate"`
	Changes   uint64 `json:"changes"`
}

// Frame rejection reasons passed to Recorder.FrameRejected.
const (
	RejectDropped   = "dropped"
	RejectMalformed = "malformed"
	RejectDuplicate = "duplicate"
)

// Recorder receives engine measurements, e.g. for metrics.
type Recorder interface {
	FrameProcessed(d time.Duration)
	FrameRejected(reason string)
	DetectionChanged(letter string)
	MotionTransition(letter, status string)
}

type nopRecorder struct{}

func (nopRecorder) FrameProcessed(time.Duration)    {}
func (nopRecorder) FrameRejected(string)            {}
func (nopRecorder) DetectionChanged(string)         {}
func (nopRecorder) MotionTransition(string, string) {}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder sets the measurement recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// OnDetectionChanged registers the callback fired, synchronously, each time the
// stable letter changes.
func OnDetectionChanged(fn func(Detection)) Option {
	return func(e *Engine) { e.onChange = fn }
}

// OnMotionTransition registers the callback fired for each motion tracker transition.
func OnMotionTransition(fn func(gesture.Transition)) Option {
	return func(e *Engine) { e.onMotion = fn }
}

// Engine runs the classifier, the motion tracker and the arbiter for one session.
// PushFrame and Run may be called from any goroutine; only one frame is processed
// at a time and frames arriving meanwhile are dropped.
type Engine struct {
	lib        *gesture.Library
	cfg        Config
	classifier *gesture.Classifier
	tracker    *gesture.Tracker
	arbiter    *Arbiter

	logger   logging.Logger
	recorder Recorder
	onChange func(Detection)
	onMotion func(gesture.Transition)

	busy   atomic.Bool
	lastTS int64
	seen   bool

	mu      sync.RWMutex
	current Detection

	processed atomic.Uint64
	dropped   atomic.Uint64
	malformed atomic.Uint64
	duplicate atomic.Uint64
	changes   atomic.Uint64
}

// New creates an engine over a shared library.
func New(lib *gesture.Library, cfg Config, opts ...Option) (*Engine, error) {
	if lib == nil {
		return nil, errors.New("recognizer: nil library")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	trackerCfg := cfg.Tracker
	trackerCfg.AcceptThreshold = cfg.AcceptThreshold

	e := &Engine{
		lib:        lib,
		cfg:        cfg,
		classifier: gesture.NewClassifier(lib, cfg.TieEpsilon),
		tracker:    gesture.NewTracker(lib, trackerCfg),
		arbiter:    NewArbiter(cfg.arbiter()),
		logger:     logging.Nop(),
		recorder:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Library returns the letter library the engine recognizes.
func (e *Engine) Library() *gesture.Library {
	return e.lib
}

// PushFrame processes one frame synchronously. It returns ErrFrameDropped if
// another frame is in flight, ErrMalformedFrame or ErrDuplicateFrame for bad
// input. Rejected frames never change the stable letter.
func (e *Engine) PushFrame(f Frame) error {
	if !e.busy.CompareAndSwap(false, true) {
		e.reject(&e.dropped, RejectDropped)
		return ErrFrameDropped
	}
	defer e.busy.Store(false)
	return e.process(f)
}

// Current returns the stable detection.
func (e *Engine) Current() Detection {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// Stats returns the frame counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Processed: e.processed.Load(),
		Dropped:   e.dropped.Load(),
		Malformed: e.malformed.Load(),
		Duplicate: e.duplicate.Load(),
		Changes:   e.changes.Load(),
	}
}

// Reset cancels motion tracking and clears the stable letter, firing the
// change callback if a letter was set. It returns ErrFrameDropped while a
// frame is in flight.
func (e *Engine) Reset(ts int64) error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrFrameDropped
	}
	defer e.busy.Store(false)

	for _, tr := range e.tracker.Cancel(ts) {
		e.motion(tr)
	}
	if det, changed := e.arbiter.Reset(ts); changed {
		e.changed(det)
	}
	return nil
}

// Run feeds frames from src until it returns an error or ctx is done. Frames
// read while the engine is not ready to take them are dropped, never queued.
// io.EOF ends the run cleanly.
func (e *Engine) Run(ctx context.Context, src FrameSource) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan Frame)
	errc := make(chan error, 1)

	go func() {
		defer close(frames)
		for {
			f, err := src.Next(ctx)
			if err != nil {
				errc <- err
				return
			}
			// The handoff only succeeds while the consumer is waiting; the
			// reader never stalls behind a frame in flight.
			select {
			case frames <- f:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			default:
				e.reject(&e.dropped, RejectDropped)
			}
		}
	}()

	for f := range frames {
		if err := e.PushFrame(f); err != nil && !errors.Is(err, ErrFrameDropped) {
			e.logger.Debugw("frame rejected", "timestamp", f.Timestamp, "error", err)
		}
	}

	if err := <-errc; !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (e *Engine) process(f Frame) error {
	start := time.Now()

	var hand *landmark.Hand
	switch n := len(f.Landmarks); n {
	case 0:
	case landmark.NumLandmarks:
		h, _ := landmark.FromSlice(f.Landmarks)
		if !finite(&h) {
			e.reject(&e.malformed, RejectMalformed)
			return fmt.Errorf("%w: non-finite coordinate", ErrMalformedFrame)
		}
		hand = &h
	default:
		e.reject(&e.malformed, RejectMalformed)
		return fmt.Errorf("%w: %d landmarks, want 0 or %d", ErrMalformedFrame, n, landmark.NumLandmarks)
	}

	if e.seen && f.Timestamp <= e.lastTS {
		e.reject(&e.duplicate, RejectDuplicate)
		return fmt.Errorf("%w: %d after %d", ErrDuplicateFrame, f.Timestamp, e.lastTS)
	}
	e.seen = true
	e.lastTS = f.Timestamp

	obs := gesture.Observation{Timestamp: f.Timestamp, Hand: hand}
	var top *gesture.Candidate
	if hand != nil {
		obs.Fingers = gesture.AnalyzeHand(hand)
		if cands := e.classifier.Rank(obs.Fingers, e.arbiter.Current().Letter); len(cands) > 0 {
			top = &cands[0]
		}
		obs.Top = top
	}

	var confirmed *gesture.Transition
	for _, tr := range e.tracker.Update(obs) {
		e.motion(tr)
		if tr.To == gesture.StatusConfirmed {
			confirmed = &tr
		}
	}

	det, changed := e.arbiter.Update(f.Timestamp, top, confirmed)
	e.mu.Lock()
	e.current = det
	e.mu.Unlock()
	if changed {
		e.changed(det)
	}

	e.processed.Add(1)
	e.recorder.FrameProcessed(time.Since(start))
	return nil
}

func (e *Engine) motion(tr gesture.Transition) {
	e.recorder.MotionTransition(tr.Letter, tr.To.String())
	e.logger.Debugw("motion transition",
		"letter", tr.Letter,
		"from", tr.From.String(),
		"to", tr.To.String(),
		"reason", string(tr.Reason),
		"timestamp", tr.Timestamp,
	)
	if e.onMotion != nil {
		e.onMotion(tr)
	}
}

func (e *Engine) changed(det Detection) {
	e.mu.Lock()
	e.current = det
	e.mu.Unlock()

	e.changes.Add(1)
	e.recorder.DetectionChanged(det.Letter)
	e.logger.Infow("detection changed", "letter", det.Letter, "confidence", det.Confidence, "since", det.Since)
	if e.onChange != nil {
		e.onChange(det)
	}
}

func (e *Engine) reject(counter *atomic.Uint64, reason string) {
	counter.Add(1)
	e.recorder.FrameRejected(reason)
}

func finite(h *landmark.Hand) bool {
	for _, p := range h.Points {
		for _, v := range [3]float64{p.X, p.Y, p.Z} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
