package gesture

import (
	"testing"

	"github.com/ayusman/fingerspell/internal/landmark"
)

func TestClassifier_Fixtures(t *testing.T) {
	c := NewClassifier(newASL(t), DefaultTieEpsilon)

	tests := []struct {
		name string
		pose landmark.Pose
		want string
	}{
		{"fist is A", landmark.FistPose(), "A"},
		{"pinky is I", landmark.PinkyPose(), "I"},
		{"index is D", landmark.IndexPose(), "D"},
		{"open palm is B", landmark.OpenPalmPose(), "B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hand := tt.pose.Build()
			cands := c.Classify(&hand, "")
			if len(cands) == 0 {
				t.Fatal("expected candidates")
			}
			if cands[0].Letter != tt.want {
				t.Errorf("expected top letter %s, got %s (%v)", tt.want, cands[0].Letter, cands)
			}
			if !approx(cands[0].Confidence, 1, 1e-6) {
				t.Errorf("expected exact match confidence, got %f", cands[0].Confidence)
			}
			if len(cands) > 1 && cands[0].Confidence-cands[1].Confidence <= DefaultTieEpsilon {
				t.Errorf("expected a clear winner, runner-up %v", cands[1])
			}
		})
	}
}

func TestClassifier_SortedAboveFloor(t *testing.T) {
	c := NewClassifier(newASL(t), DefaultTieEpsilon)
	hand := landmark.HookedIndexPose().Build()

	cands := c.Classify(&hand, "")
	for i, cand := range cands {
		if cand.Confidence < MinConfidence || cand.Confidence > 1 {
			t.Errorf("confidence %f of %s out of range", cand.Confidence, cand.Letter)
		}
		if i > 0 && cand.Confidence > cands[0].Confidence {
			t.Errorf("%s ranked below a weaker candidate", cand.Letter)
		}
	}
}

func TestClassifier_NoHand(t *testing.T) {
	c := NewClassifier(newASL(t), DefaultTieEpsilon)
	if cands := c.Classify(nil, "A"); len(cands) != 0 {
		t.Errorf("expected no candidates, got %v", cands)
	}
}

func TestClassifier_Pure(t *testing.T) {
	c := NewClassifier(newASL(t), DefaultTieEpsilon)
	hand := landmark.PinkyPose().Build()

	first := c.Classify(&hand, "")
	second := c.Classify(&hand, "")
	if len(first) != len(second) {
		t.Fatalf("repeated classification differs: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("candidate %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestClassifier_TieBreak(t *testing.T) {
	flat := func(letter string) *Descriptor {
		return NewDescriptor(letter).shape(NoCurl, VerticalUp, Index, Middle, Ring, Pinky)
	}
	lib, err := NewLibrary([]*Descriptor{flat("C"), flat("B"), flat("F")}, nil)
	if err != nil {
		t.Fatalf("NewLibrary() error = %v", err)
	}
	c := NewClassifier(lib, DefaultTieEpsilon)
	hand := landmark.OpenPalmPose().Build()

	t.Run("lexicographic without preference", func(t *testing.T) {
		cands := c.Classify(&hand, "")
		if len(cands) != 3 || cands[0].Letter != "B" {
			t.Errorf("expected B first, got %v", cands)
		}
	})

	t.Run("stable letter preferred", func(t *testing.T) {
		cands := c.Classify(&hand, "F")
		if len(cands) != 3 || cands[0].Letter != "F" {
			t.Errorf("expected F first, got %v", cands)
		}
	})

	t.Run("preference outside the tie window is ignored", func(t *testing.T) {
		hand := landmark.OpenPalmPose().Build()
		lib, _ := NewLibrary([]*Descriptor{
			flat("B"),
			NewDescriptor("E").shape(NoCurl, VerticalUp, Index, Middle, Ring).AddCurl(Pinky, FullCurl, 1),
		}, nil)
		cands := NewClassifier(lib, DefaultTieEpsilon).Classify(&hand, "E")
		if len(cands) == 0 || cands[0].Letter != "B" {
			t.Errorf("expected B first, got %v", cands)
		}
	})
}

func TestScore_Alternatives(t *testing.T) {
	hand := landmark.OpenPalmPose().Build()
	fingers := AnalyzeHand(&hand)

	d := NewDescriptor("V").
		AddCurl(Index, NoCurl, 1).
		AddDirection(Index, HorizontalLeft, 1).
		AddDirection(Index, VerticalUp, 0.6)

	// Curl matches fully; the best direction is the 0.6 alternative.
	want := (1 + 0.5*0.6) / 1.5
	if got := Score(d, fingers); !approx(got, want, 1e-9) {
		t.Errorf("Score() = %f, want %f", got, want)
	}
}

func TestScore_Tolerance(t *testing.T) {
	hand := landmark.HookedIndexPose().Build()
	fingers := AnalyzeHand(&hand)

	strict := NewDescriptor("D").AddCurl(Index, NoCurl, 1)
	loose := strict.Clone()
	loose.Tolerance = 2

	if got := Score(strict, fingers); !approx(got, 0, 1e-6) {
		t.Errorf("strict score = %f, want 0", got)
	}
	if got := Score(loose, fingers); !approx(got, 0.5, 1e-6) {
		t.Errorf("loose score = %f, want 0.5", got)
	}
}
