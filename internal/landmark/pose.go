package landmark

import "math"

// FingerJoints lists the four landmarks of each finger from base to tip,
// in the order thumb, index, middle, ring, pinky.
var FingerJoints = [5][4]int{
	{ThumbCMC, ThumbMCP, ThumbIP, ThumbTip},
	{IndexMCP, IndexPIP, IndexDIP, IndexTip},
	{MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip},
	{RingMCP, RingPIP, RingDIP, RingTip},
	{PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip},
}

// FingerPose describes one finger of a synthetic hand.
type FingerPose struct {
	// Direction is the pointing angle of the proximal segment in degrees:
	// 0 points right, 90 points up.
	Direction float64
	// Bend is the total flexion in degrees, split evenly over the two distal joints.
	Bend float64
}

// Pose describes a synthetic hand used by fixtures and the mock detector.
type Pose struct {
	Wrist   Point3D
	Size    float64 // wrist to middle MCP distance
	Fingers [5]FingerPose
}

// Base offsets of each finger chain relative to the wrist, in hand-size units.
var baseOffsets = [5][2]float64{
	{0.30, -0.30},
	{0.35, -0.95},
	{0.00, -1.00},
	{-0.30, -0.92},
	{-0.55, -0.80},
}

// Segment lengths of each finger chain, in hand-size units.
var segmentLengths = [5][3]float64{
	{0.35, 0.30, 0.25},
	{0.45, 0.30, 0.25},
	{0.50, 0.32, 0.26},
	{0.45, 0.30, 0.25},
	{0.35, 0.22, 0.20},
}

// Build lays out the 21 landmarks for the pose. Fingers flex toward -Z
// (away from the camera) so the proximal segment keeps its image direction.
func (p Pose) Build() Hand {
	size := p.Size
	if size <= 0 {
		size = 0.2
	}

	h := Hand{Handedness: "Right", Score: 0.95}
	h.Points[Wrist] = p.Wrist

	for f, joints := range FingerJoints {
		fp := p.Fingers[f]
		theta := fp.Direction * math.Pi / 180
		half := fp.Bend / 2 * math.Pi / 180

		// Image Y grows downward, so "up" is -Y.
		dir := Point3D{X: math.Cos(theta), Y: -math.Sin(theta)}
		back := Point3D{Z: -1}

		base := Point3D{
			X: p.Wrist.X + baseOffsets[f][0]*size,
			Y: p.Wrist.Y + baseOffsets[f][1]*size,
			Z: p.Wrist.Z,
		}
		h.Points[joints[0]] = base

		prev := base
		for s := 0; s < 3; s++ {
			angle := float64(s) * half
			seg := Point3D{
				X: math.Cos(angle)*dir.X + math.Sin(angle)*back.X,
				Y: math.Cos(angle)*dir.Y + math.Sin(angle)*back.Y,
				Z: math.Cos(angle)*dir.Z + math.Sin(angle)*back.Z,
			}
			l := segmentLengths[f][s] * size
			next := Point3D{X: prev.X + seg.X*l, Y: prev.Y + seg.Y*l, Z: prev.Z + seg.Z*l}
			h.Points[joints[s+1]] = next
			prev = next
		}
	}

	return h
}

func uprightPose(thumbBend, indexBend, middleBend, ringBend, pinkyBend float64) Pose {
	return Pose{
		Wrist: Point3D{X: 0.5, Y: 0.8},
		Size:  0.2,
		Fingers: [5]FingerPose{
			{Direction: 90, Bend: thumbBend},
			{Direction: 90, Bend: indexBend},
			{Direction: 90, Bend: middleBend},
			{Direction: 90, Bend: ringBend},
			{Direction: 90, Bend: pinkyBend},
		},
	}
}

// FistPose is a closed fist with the thumb straight up the side (ASL "A").
func FistPose() Pose { return uprightPose(0, 180, 180, 180, 180) }

// PinkyPose curls every finger except the pinky (ASL "I", the start of "J").
func PinkyPose() Pose { return uprightPose(60, 180, 180, 180, 0) }

// IndexPose extends only the index finger (ASL "D", the start of "Z").
func IndexPose() Pose { return uprightPose(120, 0, 180, 180, 180) }

// HookedIndexPose half-bends the index finger over a closed fist (the start of "X").
func HookedIndexPose() Pose { return uprightPose(120, 90, 180, 180, 180) }

// OpenPalmPose extends all four fingers with the thumb folded (ASL "B").
func OpenPalmPose() Pose { return uprightPose(60, 0, 0, 0, 0) }
