package gesture

import (
	"time"

	"github.com/ayusman/fingerspell/internal/landmark"
)

// shape sets the same curl and direction, both at full weight, on several fingers.
func (d *Descriptor) shape(c Curl, dir Direction, fingers ...Finger) *Descriptor {
	for _, f := range fingers {
		d.AddCurl(f, c, 1).AddDirection(f, dir, 1)
	}
	return d
}

// ASLDescriptors returns the static hand shapes of the American Sign Language
// manual alphabet. J and Z are motion letters and have no entry.
func ASLDescriptors() []*Descriptor {
	return []*Descriptor{
		NewDescriptor("A").
			shape(NoCurl, VerticalUp, Thumb).
			shape(FullCurl, VerticalUp, Index, Middle, Ring, Pinky),
		NewDescriptor("B").
			shape(NoCurl, VerticalUp, Index, Middle, Ring, Pinky).
			AddCurl(Thumb, HalfCurl, 0.9),
		NewDescriptor("C").
			shape(HalfCurl, HorizontalLeft, Thumb, Index, Middle, Ring, Pinky),
		NewDescriptor("D").
			shape(NoCurl, VerticalUp, Index).
			shape(FullCurl, VerticalUp, Thumb, Middle, Ring, Pinky),
		NewDescriptor("E").
			shape(FullCurl, VerticalUp, Thumb, Index, Middle, Ring, Pinky),
		NewDescriptor("F").
			shape(FullCurl, VerticalUp, Index).
			shape(NoCurl, VerticalUp, Thumb, Middle, Ring, Pinky),
		NewDescriptor("G").
			shape(NoCurl, HorizontalLeft, Thumb, Index).
			shape(FullCurl, HorizontalLeft, Middle, Ring, Pinky),
		NewDescriptor("H").
			shape(NoCurl, HorizontalLeft, Thumb, Index, Middle).
			shape(FullCurl, HorizontalLeft, Ring, Pinky),
		NewDescriptor("I").
			shape(NoCurl, VerticalUp, Pinky).
			shape(FullCurl, VerticalUp, Index, Middle, Ring).
			AddCurl(Thumb, HalfCurl, 0.9),
		NewDescriptor("K").
			shape(NoCurl, VerticalUp, Thumb, Index, Middle).
			shape(FullCurl, VerticalUp, Ring, Pinky),
		NewDescriptor("L").
			shape(NoCurl, VerticalUp, Index).
			AddCurl(Thumb, NoCurl, 1).
			AddDirection(Thumb, HorizontalLeft, 1).
			AddDirection(Thumb, HorizontalRight, 0.9).
			shape(FullCurl, VerticalUp, Middle, Ring, Pinky),
		NewDescriptor("M").
			shape(FullCurl, VerticalDown, Index, Middle, Ring, Pinky).
			shape(NoCurl, VerticalDown, Thumb),
		NewDescriptor("N").
			shape(FullCurl, VerticalDown, Index, Middle, Ring, Pinky).
			shape(HalfCurl, VerticalDown, Thumb),
		NewDescriptor("O").
			shape(HalfCurl, VerticalUp, Thumb, Index, Middle, Ring, Pinky),
		NewDescriptor("P").
			shape(NoCurl, VerticalDown, Thumb, Index, Middle).
			shape(FullCurl, VerticalDown, Ring, Pinky),
		NewDescriptor("Q").
			shape(NoCurl, VerticalDown, Thumb, Index).
			shape(FullCurl, VerticalDown, Middle, Ring, Pinky),
		NewDescriptor("R").
			shape(NoCurl, VerticalUp, Index, Middle).
			shape(FullCurl, VerticalUp, Ring, Pinky).
			AddCurl(Thumb, FullCurl, 0.9),
		NewDescriptor("S").
			shape(FullCurl, VerticalUp, Index, Middle, Ring, Pinky).
			AddCurl(Thumb, HalfCurl, 1).
			AddDirection(Thumb, HorizontalLeft, 1).
			AddDirection(Thumb, HorizontalRight, 0.9),
		NewDescriptor("T").
			shape(FullCurl, VerticalUp, Index, Middle, Ring, Pinky).
			shape(HalfCurl, VerticalUp, Thumb),
		NewDescriptor("U").
			shape(NoCurl, VerticalUp, Index, Middle).
			shape(FullCurl, VerticalUp, Ring, Pinky).
			AddCurl(Thumb, HalfCurl, 0.9),
		NewDescriptor("V").
			AddCurl(Index, NoCurl, 1).
			AddDirection(Index, DiagonalUpRight, 0.9).
			AddDirection(Index, VerticalUp, 0.6).
			AddCurl(Middle, NoCurl, 1).
			AddDirection(Middle, DiagonalUpLeft, 0.9).
			AddDirection(Middle, VerticalUp, 0.6).
			AddCurl(Ring, FullCurl, 0.9).
			AddCurl(Pinky, FullCurl, 0.9).
			AddCurl(Thumb, HalfCurl, 0.9),
		NewDescriptor("W").
			shape(NoCurl, VerticalUp, Index, Middle, Ring).
			shape(FullCurl, VerticalUp, Pinky).
			AddCurl(Thumb, HalfCurl, 0.9),
		NewDescriptor("Y").
			shape(NoCurl, VerticalUp, Pinky).
			shape(FullCurl, VerticalUp, Index, Middle, Ring).
			AddCurl(Thumb, NoCurl, 1).
			AddDirection(Thumb, HorizontalLeft, 1).
			AddDirection(Thumb, HorizontalRight, 0.9),
	}
}

// zTemplate is the stroke order of a traced Z in image coordinates.
var zTemplate = resamplePath([]PathPoint{
	{X: 0, Y: 0, Timestamp: 0},
	{X: 1, Y: 0, Timestamp: 1},
	{X: 0, Y: 1, Timestamp: 2},
	{X: 1, Y: 1, Timestamp: 3},
}, 31)

// ASLMotions returns the motion letters of the ASL manual alphabet.
func ASLMotions() []MotionSpec {
	return []MotionSpec{
		{
			Letter:           "J",
			Description:      "Pinky extended, trace a J shape (down, then hook left)",
			Hint:             "Trace a J with your pinky finger",
			ExpectedDuration: 1000 * time.Millisecond,
			Trigger: NewDescriptor("J").
				AddCurl(Pinky, NoCurl, 1).
				AddCurl(Index, FullCurl, 1).
				AddCurl(Middle, FullCurl, 1).
				AddCurl(Ring, FullCurl, 1),
			Landmark:  landmark.PinkyTip,
			Signature: HookSignature{MinDrop: 0.5, MinHook: 0.3},
		},
		{
			Letter:           "X",
			Description:      "Hooked index finger, shake side to side",
			Hint:             "Hook your index finger and shake it",
			ExpectedDuration: 800 * time.Millisecond,
			Trigger: NewDescriptor("X").
				AddCurl(Index, HalfCurl, 1).
				AddCurl(Middle, FullCurl, 1).
				AddCurl(Ring, FullCurl, 1).
				AddCurl(Pinky, FullCurl, 1),
			Landmark:  landmark.IndexTip,
			Signature: ShakeSignature{MinReversals: 3, MinAmplitude: 0.15, Deadband: 0.02},
		},
		{
			Letter:           "Z",
			Description:      "Extended index finger, trace a Z shape",
			Hint:             "Trace a Z with your index finger",
			ExpectedDuration: 1500 * time.Millisecond,
			Trigger: NewDescriptor("Z").
				AddCurl(Index, NoCurl, 1).
				AddCurl(Middle, FullCurl, 1).
				AddCurl(Ring, FullCurl, 1).
				AddCurl(Pinky, FullCurl, 1),
			Landmark:  landmark.IndexTip,
			Signature: PathSignature{Template: zTemplate, MaxDistance: 0.25, MinExtent: 0.5},
		},
	}
}

// NewASLLibrary builds the ASL finger-spelling library.
func NewASLLibrary(opts ...LibraryOption) (*Library, error) {
	return NewLibrary(ASLDescriptors(), ASLMotions(), opts...)
}
