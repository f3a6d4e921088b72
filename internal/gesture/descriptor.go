package gesture

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrUnknownLetter is returned for letters outside the configured alphabet.
	ErrUnknownLetter = errors.New("unknown letter")
	// ErrNoDescriptor is returned when a letter has no static descriptor, e.g. a motion letter.
	ErrNoDescriptor = errors.New("letter has no static descriptor")
	// ErrInvalidLibrary is returned when descriptors or motion specs fail validation.
	ErrInvalidLibrary = errors.New("invalid gesture library")
)

// CurlExpectation is one acceptable curl for a finger.
type CurlExpectation struct {
	Curl   Curl    `json:"curl"`
	Weight float64 `json:"weight"`
}

// DirectionExpectation is one acceptable pointing direction for a finger.
type DirectionExpectation struct {
	Direction Direction `json:"direction"`
	Weight    float64   `json:"weight"`
}

// Descriptor describes the hand shape of a static letter. A finger may list several
// acceptable alternatives; the best weighted match counts.
type Descriptor struct {
	Letter     string
	Curls      [5][]CurlExpectation
	Directions [5][]DirectionExpectation
	Tolerance  float64 // scales how far an observation may deviate; 1 is nominal
}

// NewDescriptor starts an empty descriptor for the letter with nominal tolerance.
func NewDescriptor(letter string) *Descriptor {
	return &Descriptor{Letter: letter, Tolerance: 1}
}

// AddCurl adds an acceptable curl for the finger.
func (d *Descriptor) AddCurl(f Finger, c Curl, weight float64) *Descriptor {
	d.Curls[f] = append(d.Curls[f], CurlExpectation{Curl: c, Weight: weight})
	return d
}

// AddDirection adds an acceptable direction for the finger.
func (d *Descriptor) AddDirection(f Finger, dir Direction, weight float64) *Descriptor {
	d.Directions[f] = append(d.Directions[f], DirectionExpectation{Direction: dir, Weight: weight})
	return d
}

// Clone returns a deep copy of the descriptor.
func (d *Descriptor) Clone() *Descriptor {
	c := &Descriptor{Letter: d.Letter, Tolerance: d.Tolerance}
	for f := range d.Curls {
		c.Curls[f] = append([]CurlExpectation(nil), d.Curls[f]...)
		c.Directions[f] = append([]DirectionExpectation(nil), d.Directions[f]...)
	}
	return c
}

func (d *Descriptor) validate() error {
	if d.Tolerance <= 0 {
		return fmt.Errorf("%w: %s: tolerance must be positive", ErrInvalidLibrary, d.Letter)
	}
	features := 0
	for f := range d.Curls {
		for _, e := range d.Curls[f] {
			if e.Weight <= 0 {
				return fmt.Errorf("%w: %s: non-positive weight on %s curl", ErrInvalidLibrary, d.Letter, Finger(f))
			}
			features++
		}
		for _, e := range d.Directions[f] {
			if e.Weight <= 0 {
				return fmt.Errorf("%w: %s: non-positive weight on %s direction", ErrInvalidLibrary, d.Letter, Finger(f))
			}
			features++
		}
	}
	if features == 0 {
		return fmt.Errorf("%w: %s: descriptor has no features", ErrInvalidLibrary, d.Letter)
	}
	return nil
}

// Signature decides whether a tracked fingertip path has the shape of a motion letter.
type Signature interface {
	// Match reports whether the path matches and how confident the match is.
	Match(path []PathPoint) (bool, float64)
}

// MotionSpec describes a letter that is signed with movement.
type MotionSpec struct {
	Letter           string
	Description      string
	Hint             string
	ExpectedDuration time.Duration
	Trigger          *Descriptor // starting hand shape, usually curls only
	Landmark         int         // tracked landmark index
	Signature        Signature
}

func (m *MotionSpec) validate() error {
	switch {
	case m.ExpectedDuration <= 0:
		return fmt.Errorf("%w: %s: expected duration must be positive", ErrInvalidLibrary, m.Letter)
	case m.Trigger == nil:
		return fmt.Errorf("%w: %s: missing trigger", ErrInvalidLibrary, m.Letter)
	case m.Signature == nil:
		return fmt.Errorf("%w: %s: missing signature", ErrInvalidLibrary, m.Letter)
	case m.Landmark < 0 || m.Landmark > 20:
		return fmt.Errorf("%w: %s: landmark %d out of range", ErrInvalidLibrary, m.Letter, m.Landmark)
	}
	return m.Trigger.validate()
}

// LibraryOption customizes a Library at construction.
type LibraryOption func(*libraryOptions)

type libraryOptions struct {
	alphabet  []string
	hints     map[string]string
	durations map[string]time.Duration
}

// WithAlphabet restricts the library to the given letters.
func WithAlphabet(letters ...string) LibraryOption {
	return func(o *libraryOptions) {
		o.alphabet = append(o.alphabet, letters...)
	}
}

// WithHint overrides the practice hint of a letter.
func WithHint(letter, hint string) LibraryOption {
	return func(o *libraryOptions) {
		o.hints[normalizeLetter(letter)] = hint
	}
}

// WithMotionDuration overrides the expected duration of a motion letter.
func WithMotionDuration(letter string, d time.Duration) LibraryOption {
	return func(o *libraryOptions) {
		o.durations[normalizeLetter(letter)] = d
	}
}

// Library is the immutable set of static descriptors and motion specs for an alphabet.
// It is safe for concurrent use.
type Library struct {
	letters       []string
	static        map[string]*Descriptor
	staticLetters []string
	motion        map[string]*MotionSpec
	motionLetters []string
	hints         map[string]string
}

// NewLibrary validates the descriptors and motion specs and builds a Library.
// Letters are case-insensitive and stored upper-case.
func NewLibrary(descriptors []*Descriptor, motions []MotionSpec, opts ...LibraryOption) (*Library, error) {
	o := libraryOptions{
		hints:     make(map[string]string),
		durations: make(map[string]time.Duration),
	}
	for _, opt := range opts {
		opt(&o)
	}

	lib := &Library{
		static: make(map[string]*Descriptor),
		motion: make(map[string]*MotionSpec),
		hints:  make(map[string]string),
	}

	for _, d := range descriptors {
		if d == nil {
			return nil, fmt.Errorf("%w: nil descriptor", ErrInvalidLibrary)
		}
		c := d.Clone()
		c.Letter = normalizeLetter(c.Letter)
		if err := checkLetter(c.Letter); err != nil {
			return nil, err
		}
		if _, dup := lib.static[c.Letter]; dup {
			return nil, fmt.Errorf("%w: duplicate descriptor for %s", ErrInvalidLibrary, c.Letter)
		}
		if err := c.validate(); err != nil {
			return nil, err
		}
		lib.static[c.Letter] = c
	}

	for i := range motions {
		m := motions[i]
		m.Letter = normalizeLetter(m.Letter)
		if err := checkLetter(m.Letter); err != nil {
			return nil, err
		}
		if _, dup := lib.motion[m.Letter]; dup {
			return nil, fmt.Errorf("%w: duplicate motion spec for %s", ErrInvalidLibrary, m.Letter)
		}
		if _, clash := lib.static[m.Letter]; clash {
			return nil, fmt.Errorf("%w: %s is both static and motion", ErrInvalidLibrary, m.Letter)
		}
		if d, ok := o.durations[m.Letter]; ok {
			m.ExpectedDuration = d
		}
		if m.Trigger != nil {
			m.Trigger = m.Trigger.Clone()
		}
		if err := m.validate(); err != nil {
			return nil, err
		}
		lib.motion[m.Letter] = &m
	}

	for letter := range o.durations {
		if _, ok := lib.motion[letter]; !ok {
			return nil, fmt.Errorf("%w: duration override for non-motion letter %s", ErrInvalidLibrary, letter)
		}
	}

	if len(o.alphabet) > 0 {
		keep := make(map[string]bool, len(o.alphabet))
		for _, l := range o.alphabet {
			l = normalizeLetter(l)
			if lib.static[l] == nil && lib.motion[l] == nil {
				return nil, fmt.Errorf("%w: alphabet letter %q", ErrUnknownLetter, l)
			}
			keep[l] = true
		}
		for l := range lib.static {
			if !keep[l] {
				delete(lib.static, l)
			}
		}
		for l := range lib.motion {
			if !keep[l] {
				delete(lib.motion, l)
			}
		}
	}

	for l := range lib.static {
		lib.staticLetters = append(lib.staticLetters, l)
	}
	for l := range lib.motion {
		lib.motionLetters = append(lib.motionLetters, l)
	}
	sort.Strings(lib.staticLetters)
	sort.Strings(lib.motionLetters)
	lib.letters = append(append([]string(nil), lib.staticLetters...), lib.motionLetters...)
	sort.Strings(lib.letters)

	if len(lib.letters) == 0 {
		return nil, fmt.Errorf("%w: no letters", ErrInvalidLibrary)
	}

	for l, h := range o.hints {
		if lib.static[l] == nil && lib.motion[l] == nil {
			return nil, fmt.Errorf("%w: hint for %q", ErrUnknownLetter, l)
		}
		lib.hints[l] = h
	}

	return lib, nil
}

// Letters returns every letter of the alphabet in order.
func (l *Library) Letters() []string {
	return append([]string(nil), l.letters...)
}

// StaticLetters returns the letters recognized from a single frame.
func (l *Library) StaticLetters() []string {
	return append([]string(nil), l.staticLetters...)
}

// MotionLetters returns the letters that require movement.
func (l *Library) MotionLetters() []string {
	return append([]string(nil), l.motionLetters...)
}

// Contains reports whether the letter belongs to the alphabet.
func (l *Library) Contains(letter string) bool {
	letter = normalizeLetter(letter)
	return l.static[letter] != nil || l.motion[letter] != nil
}

// IsMotionLetter reports whether the letter is signed with movement.
func (l *Library) IsMotionLetter(letter string) bool {
	return l.motion[normalizeLetter(letter)] != nil
}

// Describe returns a copy of the static descriptor of the letter.
func (l *Library) Describe(letter string) (*Descriptor, error) {
	letter = normalizeLetter(letter)
	if d, ok := l.static[letter]; ok {
		return d.Clone(), nil
	}
	if _, ok := l.motion[letter]; ok {
		return nil, fmt.Errorf("%w: %s", ErrNoDescriptor, letter)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLetter, letter)
}

// Motion returns the motion spec of the letter, if it is a motion letter.
func (l *Library) Motion(letter string) (MotionSpec, bool) {
	m, ok := l.motion[normalizeLetter(letter)]
	if !ok {
		return MotionSpec{}, false
	}
	out := *m
	out.Trigger = m.Trigger.Clone()
	return out, true
}

// Hint returns a practice hint for the letter.
func (l *Library) Hint(letter string) string {
	letter = normalizeLetter(letter)
	if h, ok := l.hints[letter]; ok {
		return h
	}
	if m, ok := l.motion[letter]; ok && m.Hint != "" {
		return m.Hint
	}
	return "Show the sign for " + letter
}

func (l *Library) descriptor(letter string) *Descriptor { return l.static[letter] }

func (l *Library) motionSpec(letter string) *MotionSpec { return l.motion[letter] }

func normalizeLetter(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func checkLetter(letter string) error {
	if utf8.RuneCountInString(letter) != 1 {
		return fmt.Errorf("%w: letter %q must be a single character", ErrInvalidLibrary, letter)
	}
	return nil
}
