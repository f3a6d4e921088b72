package recognizer

import (
	"time"

	"github.com/ayusman/fingerspell/internal/gesture"
)

// Detection is the stabilized output letter. An empty Letter means no letter.
type Detection struct {
	Letter        string  `json:"letter"`
	Confidence    float64 `json:"confidence"`
	Since         int64   `json:"since"`           // ms, frame that made the letter stable
	LastFrameTime int64   `json:"last_frame_time"` // ms, latest processed frame
}

// ArbiterConfig holds the stabilization thresholds.
type ArbiterConfig struct {
	AcceptThreshold       float64
	HysteresisFrames      int
	HysteresisMinDuration time.Duration
	ResetTimeout          time.Duration
	MotionHold            time.Duration
	ConfidenceDecay       float64
}

// Arbiter merges static candidates and motion confirmations into one stable letter.
// It is not safe for concurrent use.
type Arbiter struct {
	cfg    ArbiterConfig
	stable Detection

	pending      string
	pendingCount int
	pendingSince int64

	lastSupport int64
	holdUntil   int64
	lastTS      int64
	seen        bool
}

// NewArbiter creates an arbiter with no stable letter.
func NewArbiter(cfg ArbiterConfig) *Arbiter {
	if cfg.HysteresisFrames < 1 {
		cfg.HysteresisFrames = 1
	}
	return &Arbiter{cfg: cfg}
}

// Current returns the stable detection.
func (a *Arbiter) Current() Detection {
	return a.stable
}

// Update folds one frame into the stable detection and reports whether the
// letter changed. top is the best static candidate, if any; confirmed is the
// motion confirmation of this frame, if any. Stale frames are ignored.
func (a *Arbiter) Update(ts int64, top *gesture.Candidate, confirmed *gesture.Transition) (Detection, bool) {
	if a.seen && ts <= a.lastTS {
		return a.stable, false
	}
	a.seen = true
	a.lastTS = ts
	a.stable.LastFrameTime = ts

	// Motion confirmations already span many frames, so they skip hysteresis.
	if confirmed != nil {
		a.clearPending()
		a.lastSupport = ts
		a.holdUntil = ts + a.cfg.MotionHold.Milliseconds()
		if a.stable.Letter == confirmed.Letter {
			a.stable.Confidence = confirmed.Confidence
			return a.stable, false
		}
		return a.promote(confirmed.Letter, confirmed.Confidence, ts), true
	}

	if top == nil || top.Confidence < a.cfg.AcceptThreshold {
		a.clearPending()
		a.decay()
		if a.stable.Letter != "" && ts-a.lastSupport >= a.cfg.ResetTimeout.Milliseconds() {
			return a.promote("", 0, ts), true
		}
		return a.stable, false
	}

	a.lastSupport = ts
	if top.Letter == a.stable.Letter {
		a.clearPending()
		a.stable.Confidence = top.Confidence
		return a.stable, false
	}

	a.decay()
	if ts < a.holdUntil {
		a.clearPending()
		return a.stable, false
	}

	if top.Letter != a.pending {
		a.pending = top.Letter
		a.pendingCount = 0
		a.pendingSince = ts
	}
	a.pendingCount++

	if a.pendingCount >= a.cfg.HysteresisFrames &&
		ts-a.pendingSince >= a.cfg.HysteresisMinDuration.Milliseconds() {
		return a.promote(top.Letter, top.Confidence, ts), true
	}
	return a.stable, false
}

// Reset drops the stable letter and reports whether it was set.
func (a *Arbiter) Reset(ts int64) (Detection, bool) {
	a.clearPending()
	a.holdUntil = 0
	if a.stable.Letter == "" {
		return a.stable, false
	}
	return a.promote("", 0, ts), true
}

func (a *Arbiter) promote(letter string, conf float64, ts int64) Detection {
	a.clearPending()
	a.stable = Detection{
		Letter:        letter,
		Confidence:    conf,
		Since:         ts,
		LastFrameTime: ts,
	}
	return a.stable
}

func (a *Arbiter) decay() {
	if a.stable.Letter != "" {
		a.stable.Confidence *= a.cfg.ConfidenceDecay
	}
}

func (a *Arbiter) clearPending() {
	a.pending = ""
	a.pendingCount = 0
	a.pendingSince = 0
}
