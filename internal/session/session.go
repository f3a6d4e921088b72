// Package session runs one recognizer per frame stream and records its
// detections.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/ayusman/fingerspell/internal/gesture"
	"github.com/ayusman/fingerspell/internal/logging"
	"github.com/ayusman/fingerspell/internal/metrics"
	"github.com/ayusman/fingerspell/internal/practice"
	"github.com/ayusman/fingerspell/internal/recognizer"
	"github.com/ayusman/fingerspell/internal/store"
)

var (
	// ErrSessionEnded is returned when attaching to a finished session.
	ErrSessionEnded = errors.New("session has ended")
	// ErrSessionBusy is returned when a session already has a live stream.
	ErrSessionBusy = errors.New("session already streaming")
)

// Update is delivered to listeners each time the stable letter changes.
type Update struct {
	SessionID string
	Detection recognizer.Detection
	// Practice is set when the change completed the current drill target.
	Practice *practice.Progress
}

// Manager creates sessions and tracks the live ones.
type Manager struct {
	store   *store.Store
	lib     *gesture.Library
	cfg     recognizer.Config
	metrics *metrics.Manager
	logger  logging.Logger

	mu   sync.Mutex
	live map[string]*Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithMetrics records engine and session metrics.
func WithMetrics(m *metrics.Manager) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithLogger sets the manager logger.
func WithLogger(l logging.Logger) Option {
	return func(mgr *Manager) {
		if l != nil {
			mgr.logger = l
		}
	}
}

// NewManager creates a manager. The library is shared by every session.
func NewManager(st *store.Store, lib *gesture.Library, cfg recognizer.Config, opts ...Option) (*Manager, error) {
	if st == nil || lib == nil {
		return nil, errors.New("session: store and library are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		store:  st,
		lib:    lib,
		cfg:    cfg,
		logger: logging.Nop(),
		live:   make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Library returns the shared letter library.
func (m *Manager) Library() *gesture.Library {
	return m.lib
}

// Create records a new session. targets, if not empty, starts a practice
// drill over those letters when the session is attached.
func (m *Manager) Create(source, targets string) (*store.Session, error) {
	letters := practice.ParseTargets(targets)
	if len(letters) > 0 {
		// Validate now so a bad drill fails at creation, not at attach.
		if _, err := practice.New(m.lib, targets); err != nil {
			return nil, err
		}
	}

	rec := &store.Session{
		ID:      uuid.New().String(),
		Source:  source,
		Targets: strings.Join(letters, ""),
	}
	if err := m.store.Sessions().Create(rec); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return rec, nil
}

// Start creates a session and attaches to it.
func (m *Manager) Start(source, targets string, listener func(Update)) (*Session, error) {
	rec, err := m.Create(source, targets)
	if err != nil {
		return nil, err
	}
	return m.Attach(rec.ID, listener)
}

// Attach starts a live engine for a stored session. Only one stream may be
// attached at a time; the returned Session must be ended with End.
func (m *Manager) Attach(id string, listener func(Update)) (*Session, error) {
	rec, err := m.store.Sessions().GetByID(id)
	if err != nil {
		return nil, err
	}
	if !rec.Active() {
		return nil, ErrSessionEnded
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live[id]; ok {
		return nil, ErrSessionBusy
	}

	s := &Session{
		ID:       id,
		Source:   rec.Source,
		mgr:      m,
		listener: listener,
		started:  time.Now(),
		logger:   m.logger,
	}

	if rec.Targets != "" {
		if s.drill, err = practice.New(m.lib, rec.Targets); err != nil {
			return nil, err
		}
	}

	opts := []recognizer.Option{
		recognizer.WithLogger(m.logger),
		recognizer.OnDetectionChanged(s.changed),
	}
	if m.metrics != nil {
		opts = append(opts, recognizer.WithRecorder(m.metrics))
	}
	if s.engine, err = recognizer.New(m.lib, m.cfg, opts...); err != nil {
		return nil, err
	}

	m.live[id] = s
	if m.metrics != nil {
		m.metrics.SessionStarted()
	}
	m.logger.Infow("session attached", "session", id, "source", rec.Source, "targets", rec.Targets)
	return s, nil
}

// Live returns the number of attached sessions.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// IsLive reports whether a stream is attached to the session.
func (m *Manager) IsLive(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live[id]
	return ok
}

func (m *Manager) detach(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live[id]; ok {
		delete(m.live, id)
		if m.metrics != nil {
			m.metrics.SessionEnded()
		}
	}
}

// Session is a live recognizer bound to a stored session.
type Session struct {
	ID     string
	Source string

	mgr      *Manager
	engine   *recognizer.Engine
	drill    *practice.Drill
	listener func(Update)
	started  time.Time
	logger   logging.Logger

	endOnce sync.Once
	endErr  error
}

// Engine returns the session's recognizer.
func (s *Session) Engine() *recognizer.Engine {
	return s.engine
}

// Drill returns the practice drill, or nil when the session has no targets.
func (s *Session) Drill() *practice.Drill {
	return s.drill
}

// changed runs on the engine's processing goroutine.
func (s *Session) changed(det recognizer.Detection) {
	err := s.mgr.store.Detections().Create(&store.Detection{
		SessionID:  s.ID,
		Letter:     det.Letter,
		Confidence: det.Confidence,
		SinceMs:    det.Since,
	})
	if err != nil {
		s.logger.Warnw("failed to record detection", "session", s.ID, "letter", det.Letter, "error", err)
	}

	u := Update{SessionID: s.ID, Detection: det}
	if s.drill != nil {
		if p, ok := s.drill.Observe(det.Letter); ok {
			u.Practice = &p
		}
	}
	if s.listener != nil {
		s.listener(u)
	}
}

// End detaches the session and stores its final frame counters. It is safe
// to call more than once.
func (s *Session) End() error {
	s.endOnce.Do(func() {
		stats := s.engine.Stats()
		s.mgr.detach(s.ID)
		s.endErr = s.mgr.store.Sessions().End(s.ID, store.SessionStats{
			Processed: int64(stats.Processed),
			Dropped:   int64(stats.Dropped),
			Malformed: int64(stats.Malformed),
			Duplicate: int64(stats.Duplicate),
		})
		s.logger.Infow("session ended",
			"session", s.ID,
			"frames", humanize.Comma(int64(stats.Processed)),
			"dropped", humanize.Comma(int64(stats.Dropped)),
			"letters", stats.Changes,
			"duration", humanize.RelTime(s.started, time.Now(), "", ""),
		)
	})
	return s.endErr
}
