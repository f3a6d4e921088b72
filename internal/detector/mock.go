package detector

import (
	"sync"

	"github.com/ayusman/fingerspell/internal/landmark"
	"gocv.io/x/gocv"
)

// MockDetector is a scripted Detector. Each Detect call returns the next
// entry of the sequence; once the sequence is exhausted the last entry repeats.
type MockDetector struct {
	mu       sync.Mutex
	sequence [][]landmark.Hand
	next     int
	calls    int
	err      error
}

// NewMockDetector creates a MockDetector that returns hands on every call.
func NewMockDetector(hands ...landmark.Hand) *MockDetector {
	m := &MockDetector{}
	if len(hands) > 0 {
		m.sequence = [][]landmark.Hand{hands}
	}
	return m
}

// SetHands makes every following call return hands.
func (m *MockDetector) SetHands(hands ...landmark.Hand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = [][]landmark.Hand{hands}
	m.next = 0
}

// SetSequence replaces the scripted results. A nil entry means no hand.
func (m *MockDetector) SetSequence(seq [][]landmark.Hand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = seq
	m.next = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next scripted result or the configured error.
func (m *MockDetector) Detect(*gocv.Mat) ([]landmark.Hand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) == 0 {
		return nil, nil
	}

	hands := m.sequence[m.next]
	if m.next < len(m.sequence)-1 {
		m.next++
	}
	return hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}
