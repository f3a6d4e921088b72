// Package gesture provides the finger-spelling descriptor library, the static pose
// classifier and the motion gesture tracker.
package gesture

import (
	"math"

	"github.com/ayusman/fingerspell/internal/landmark"
)

// Finger identifies one finger of the hand.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
)

// AllFingers lists the fingers in anatomical order.
var AllFingers = []Finger{Thumb, Index, Middle, Ring, Pinky}

func (f Finger) String() string {
	switch f {
	case Thumb:
		return "thumb"
	case Index:
		return "index"
	case Middle:
		return "middle"
	case Ring:
		return "ring"
	case Pinky:
		return "pinky"
	}
	return "unknown"
}

// Curl is the expected flexion class of a finger.
type Curl int

const (
	NoCurl Curl = iota
	HalfCurl
	FullCurl
)

func (c Curl) String() string {
	switch c {
	case NoCurl:
		return "none"
	case HalfCurl:
		return "half"
	case FullCurl:
		return "full"
	}
	return "unknown"
}

// value maps the class onto the 0..1 curl scale produced by AnalyzeHand.
func (c Curl) value() float64 {
	switch c {
	case HalfCurl:
		return 0.5
	case FullCurl:
		return 1
	}
	return 0
}

// Direction is the expected pointing direction of a finger in the image plane.
type Direction int

const (
	VerticalUp Direction = iota
	VerticalDown
	HorizontalLeft
	HorizontalRight
	DiagonalUpLeft
	DiagonalUpRight
	DiagonalDownLeft
	DiagonalDownRight
)

func (d Direction) String() string {
	switch d {
	case VerticalUp:
		return "up"
	case VerticalDown:
		return "down"
	case HorizontalLeft:
		return "left"
	case HorizontalRight:
		return "right"
	case DiagonalUpLeft:
		return "up-left"
	case DiagonalUpRight:
		return "up-right"
	case DiagonalDownLeft:
		return "down-left"
	case DiagonalDownRight:
		return "down-right"
	}
	return "unknown"
}

// angle returns the direction in degrees, counter-clockwise from pointing right.
func (d Direction) angle() float64 {
	switch d {
	case VerticalUp:
		return 90
	case VerticalDown:
		return 270
	case HorizontalLeft:
		return 180
	case DiagonalUpLeft:
		return 135
	case DiagonalUpRight:
		return 45
	case DiagonalDownLeft:
		return 225
	case DiagonalDownRight:
		return 315
	}
	return 0
}

// Maximum total flexion in degrees. The thumb bends far less than the fingers.
var maxBend = [5]float64{120, 180, 180, 180, 180}

// minPlanarRatio is the smallest image-plane share of the proximal segment for
// its direction to be meaningful; below it the finger points at the camera.
const minPlanarRatio = 0.2

// FingerState is the measured geometry of one finger in a frame.
type FingerState struct {
	Curl     float64 // 0 straight, 1 fully curled
	Angle    float64 // pointing direction in degrees, [0, 360)
	Pointing bool    // false when the direction could not be measured
}

// AnalyzeHand measures curl and direction for every finger.
// Curl is the sum of the angles between consecutive finger segments relative to
// the finger's maximum bend; direction comes from the base segment.
func AnalyzeHand(h *landmark.Hand) [5]FingerState {
	var out [5]FingerState
	if h == nil {
		return out
	}

	for f, joints := range landmark.FingerJoints {
		p0 := h.Points[joints[0]]
		p1 := h.Points[joints[1]]
		p2 := h.Points[joints[2]]
		p3 := h.Points[joints[3]]

		s1 := p1.Sub(p0)
		s2 := p2.Sub(p1)
		s3 := p3.Sub(p2)

		bend := angleBetween(s1, s2) + angleBetween(s2, s3)
		out[f].Curl = clamp01(bend / maxBend[f])

		length := s1.Norm()
		planar := math.Hypot(s1.X, s1.Y)
		if length > 0 && planar/length >= minPlanarRatio {
			out[f].Pointing = true
			// Image Y grows downward; flip it so 90 degrees is up.
			deg := math.Atan2(-s1.Y, s1.X) * 180 / math.Pi
			if deg < 0 {
				deg += 360
			}
			out[f].Angle = deg
		}
	}

	return out
}

// angleBetween returns the angle between two vectors in degrees.
func angleBetween(a, b landmark.Point3D) float64 {
	na, nb := a.Norm(), b.Norm()
	if na < 1e-12 || nb < 1e-12 {
		return 0
	}
	cos := (a.X*b.X + a.Y*b.Y + a.Z*b.Z) / (na * nb)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// angularDiff returns the smallest difference between two angles in degrees.
func angularDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
