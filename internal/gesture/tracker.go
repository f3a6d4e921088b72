package gesture

import (
	"time"

	"github.com/ayusman/fingerspell/internal/landmark"
)

// Status is the lifecycle state of a motion letter.
type Status int

const (
	StatusIdle Status = iota
	StatusTracking
	StatusConfirmed
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusTracking:
		return "tracking"
	case StatusConfirmed:
		return "confirmed"
	case StatusExpired:
		return "expired"
	}
	return "unknown"
}

// Reason explains a status transition.
type Reason string

const (
	ReasonTrigger   Reason = "trigger"
	ReasonMatched   Reason = "matched"
	ReasonTimeout   Reason = "timeout"
	ReasonHandLost  Reason = "hand_lost"
	ReasonConflict  Reason = "conflict"
	ReasonCancelled Reason = "cancelled"
	ReasonCooldown  Reason = "cooldown"
)

// MotionState is the progress of one motion letter.
type MotionState struct {
	Letter           string
	Status           Status
	StartTime        int64 // ms, frame that triggered tracking
	Samples          []PathPoint
	ExpectedDuration time.Duration

	endedAt int64
	origin  landmark.Point3D
	scale   float64
}

// Transition records a status change of a motion letter.
type Transition struct {
	Letter     string
	From       Status
	To         Status
	Reason     Reason
	Timestamp  int64
	Confidence float64 // signature confidence, set on confirmation
}

// TrackerConfig holds the motion tracking thresholds.
type TrackerConfig struct {
	ToleranceFactor  float64       // accepted duration is expected/f .. expected*f
	TriggerThreshold float64       // trigger pose score needed to start tracking
	AcceptThreshold  float64       // static confidence that competes with a lost trigger
	Cooldown         time.Duration // pause after a confirmation or expiry
	MinSamples       int
}

// DefaultTrackerConfig returns the default tracking thresholds.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		ToleranceFactor:  1.15,
		TriggerThreshold: 0.85,
		AcceptThreshold:  0.8,
		Cooldown:         500 * time.Millisecond,
		MinSamples:       6,
	}
}

// Observation is what the tracker needs to know about a frame.
type Observation struct {
	Timestamp int64
	Hand      *landmark.Hand // nil when no hand is visible
	Fingers   [5]FingerState
	Top       *Candidate // best static candidate, if any
}

// Tracker runs the motion state machine of every motion letter in a library.
// It is not safe for concurrent use.
type Tracker struct {
	lib       *Library
	cfg       TrackerConfig
	states    []*MotionState
	holdUntil int64
	lastTS    int64
	seen      bool
}

// NewTracker creates a tracker with every motion letter idle. Zero thresholds
// fall back to DefaultTrackerConfig.
func NewTracker(lib *Library, cfg TrackerConfig) *Tracker {
	def := DefaultTrackerConfig()
	if cfg.ToleranceFactor < 1 {
		cfg.ToleranceFactor = def.ToleranceFactor
	}
	if cfg.TriggerThreshold <= 0 {
		cfg.TriggerThreshold = def.TriggerThreshold
	}
	if cfg.AcceptThreshold <= 0 {
		cfg.AcceptThreshold = def.AcceptThreshold
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = def.MinSamples
	}

	t := &Tracker{lib: lib, cfg: cfg}
	for _, letter := range lib.motionLetters {
		t.states = append(t.states, &MotionState{
			Letter:           letter,
			ExpectedDuration: lib.motion[letter].ExpectedDuration,
		})
	}
	return t
}

// Update advances every motion letter with a frame and returns the transitions
// that happened, in letter order. Frames not newer than the last one are ignored.
func (t *Tracker) Update(obs Observation) []Transition {
	if t.seen && obs.Timestamp <= t.lastTS {
		return nil
	}
	t.seen = true
	t.lastTS = obs.Timestamp
	ts := obs.Timestamp

	var out []Transition
	cooldown := t.cfg.Cooldown.Milliseconds()
	for _, st := range t.states {
		if (st.Status == StatusConfirmed || st.Status == StatusExpired) && ts-st.endedAt >= cooldown {
			out = append(out, t.move(st, StatusIdle, ReasonCooldown, ts, 0))
		}
	}

	if obs.Hand == nil {
		for _, st := range t.states {
			if st.Status == StatusTracking {
				out = append(out, t.move(st, StatusExpired, ReasonHandLost, ts, 0))
			}
		}
		return out
	}

	var winner *MotionState
	for _, st := range t.states {
		spec := t.lib.motion[st.Letter]
		switch st.Status {
		case StatusIdle:
			if ts < t.holdUntil {
				continue
			}
			if Score(spec.Trigger, obs.Fingers) < t.cfg.TriggerThreshold {
				continue
			}
			st.StartTime = ts
			st.origin = obs.Hand.Points[spec.Landmark]
			st.scale = obs.Hand.Scale()
			if st.scale < 1e-9 {
				st.scale = 1
			}
			st.Samples = []PathPoint{{Timestamp: ts}}
			out = append(out, t.move(st, StatusTracking, ReasonTrigger, ts, 0))

		case StatusTracking:
			elapsed := time.Duration(ts-st.StartTime) * time.Millisecond
			if elapsed > t.maxDuration(st) {
				out = append(out, t.move(st, StatusExpired, ReasonTimeout, ts, 0))
				continue
			}
			if Score(spec.Trigger, obs.Fingers) < t.cfg.TriggerThreshold &&
				obs.Top != nil && obs.Top.Confidence >= t.cfg.AcceptThreshold {
				out = append(out, t.move(st, StatusExpired, ReasonConflict, ts, 0))
				continue
			}

			p := obs.Hand.Points[spec.Landmark]
			st.Samples = append(st.Samples, PathPoint{
				X:         (p.X - st.origin.X) / st.scale,
				Y:         (p.Y - st.origin.Y) / st.scale,
				Timestamp: ts,
			})

			if winner != nil || elapsed < t.minDuration(st) || len(st.Samples) < t.cfg.MinSamples {
				continue
			}
			if ok, conf := spec.Signature.Match(st.Samples); ok {
				out = append(out, t.move(st, StatusConfirmed, ReasonMatched, ts, conf))
				winner = st
			}
		}
	}

	if winner != nil {
		for _, st := range t.states {
			if st != winner && st.Status == StatusTracking {
				out = append(out, t.move(st, StatusExpired, ReasonCancelled, ts, 0))
			}
		}
		t.holdUntil = ts + cooldown
	}

	return out
}

// Cancel expires every tracking letter, e.g. when the session is reset.
func (t *Tracker) Cancel(ts int64) []Transition {
	var out []Transition
	for _, st := range t.states {
		if st.Status == StatusTracking {
			out = append(out, t.move(st, StatusExpired, ReasonCancelled, ts, 0))
		}
	}
	return out
}

// States returns a snapshot of every motion letter.
func (t *Tracker) States() []MotionState {
	out := make([]MotionState, len(t.states))
	for i, st := range t.states {
		out[i] = *st
		out[i].Samples = append([]PathPoint(nil), st.Samples...)
	}
	return out
}

// State returns a snapshot of one motion letter.
func (t *Tracker) State(letter string) (MotionState, bool) {
	letter = normalizeLetter(letter)
	for _, st := range t.states {
		if st.Letter == letter {
			s := *st
			s.Samples = append([]PathPoint(nil), st.Samples...)
			return s, true
		}
	}
	return MotionState{}, false
}

func (t *Tracker) move(st *MotionState, to Status, reason Reason, ts int64, conf float64) Transition {
	tr := Transition{
		Letter:     st.Letter,
		From:       st.Status,
		To:         to,
		Reason:     reason,
		Timestamp:  ts,
		Confidence: conf,
	}
	st.Status = to
	switch to {
	case StatusConfirmed, StatusExpired:
		st.endedAt = ts
	case StatusIdle:
		st.Samples = nil
	}
	return tr
}

func (t *Tracker) minDuration(st *MotionState) time.Duration {
	return time.Duration(float64(st.ExpectedDuration) / t.cfg.ToleranceFactor)
}

func (t *Tracker) maxDuration(st *MotionState) time.Duration {
	return time.Duration(float64(st.ExpectedDuration) * t.cfg.ToleranceFactor)
}
