// Package practice runs a finger-spelling drill: the learner is shown a
// target letter and the drill advances when the recognizer detects it.
package practice

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/ayusman/fingerspell/internal/gesture"
)

// ErrNoTargets is returned when a drill is created without target letters.
var ErrNoTargets = errors.New("practice: no target letters")

// Progress is a snapshot of the drill.
type Progress struct {
	Target    string `json:"target"`
	Hint      string `json:"hint"`
	Completed int    `json:"completed"`
	Rounds    int    `json:"rounds"`
	Matched   string `json:"matched,omitempty"`
}

// Drill cycles through target letters. It is safe for concurrent use.
type Drill struct {
	mu        sync.Mutex
	lib       *gesture.Library
	targets   []string
	idx       int
	completed int
}

// ParseTargets splits a target string such as "abc" or "A, B, C" into
// upper-case letters, ignoring whitespace and commas.
func ParseTargets(s string) []string {
	var out []string
	for _, r := range s {
		if unicode.IsSpace(r) || r == ',' {
			continue
		}
		out = append(out, strings.ToUpper(string(r)))
	}
	return out
}

// New creates a drill over targets. Every target must be a letter of lib.
func New(lib *gesture.Library, targets string) (*Drill, error) {
	letters := ParseTargets(targets)
	if len(letters) == 0 {
		return nil, ErrNoTargets
	}
	for _, l := range letters {
		if !lib.Contains(l) {
			return nil, fmt.Errorf("%w: %q", gesture.ErrUnknownLetter, l)
		}
	}
	return &Drill{lib: lib, targets: letters}, nil
}

// Targets returns the target letters in order.
func (d *Drill) Targets() []string {
	return append([]string(nil), d.targets...)
}

// Target returns the letter the learner should sign next.
func (d *Drill) Target() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.targets[d.idx]
}

// Hint returns the hint for the current target.
func (d *Drill) Hint() string {
	return d.lib.Hint(d.Target())
}

// Completed returns how many targets have been matched.
func (d *Drill) Completed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completed
}

// Progress returns the current snapshot.
func (d *Drill) Progress() Progress {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.progress("")
}

// Observe feeds a detected letter to the drill. It reports true and
// advances to the next target when letter matches the current one.
func (d *Drill) Observe(letter string) (Progress, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	letter = strings.ToUpper(strings.TrimSpace(letter))
	if letter == "" || letter != d.targets[d.idx] {
		return d.progress(""), false
	}

	d.completed++
	d.idx = (d.idx + 1) % len(d.targets)
	return d.progress(letter), true
}

// Skip moves to the next target without counting a match.
func (d *Drill) Skip() Progress {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.idx = (d.idx + 1) % len(d.targets)
	return d.progress("")
}

func (d *Drill) progress(matched string) Progress {
	target := d.targets[d.idx]
	return Progress{
		Target:    target,
		Hint:      d.lib.Hint(target),
		Completed: d.completed,
		Rounds:    d.completed / len(d.targets),
		Matched:   matched,
	}
}
