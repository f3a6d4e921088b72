package gesture

import (
	"math"
	"sort"

	"github.com/ayusman/fingerspell/internal/landmark"
)

const (
	// MinConfidence is the floor below which candidates are not reported.
	MinConfidence = 0.5
	// DefaultTieEpsilon is the confidence window treated as a tie.
	DefaultTieEpsilon = 0.02

	// Direction features count half as much as curl features.
	directionWeight = 0.5
	// neutralDirection is the match given when a finger points at the camera.
	neutralDirection = 0.5
)

// Candidate is a static letter with its match confidence.
type Candidate struct {
	Letter     string  `json:"letter"`
	Confidence float64 `json:"confidence"`
}

// Score returns the weighted match of the finger measurements against the descriptor, in [0, 1].
// For fingers with alternative expectations the best weighted match is used.
func Score(d *Descriptor, fingers [5]FingerState) float64 {
	if d == nil {
		return 0
	}
	tol := d.Tolerance
	if tol <= 0 {
		tol = 1
	}

	var sum, total float64
	for f := range fingers {
		if exps := d.Curls[f]; len(exps) > 0 {
			var best, weight float64
			for _, e := range exps {
				best = math.Max(best, e.Weight*curlMatch(fingers[f].Curl, e.Curl, tol))
				weight = math.Max(weight, e.Weight)
			}
			sum += best
			total += weight
		}
		if exps := d.Directions[f]; len(exps) > 0 {
			var best, weight float64
			for _, e := range exps {
				best = math.Max(best, e.Weight*directionMatch(fingers[f], e.Direction, tol))
				weight = math.Max(weight, e.Weight)
			}
			sum += directionWeight * best
			total += directionWeight * weight
		}
	}

	if total == 0 {
		return 0
	}
	return clamp01(sum / total)
}

// curlMatch is 1 at the expected curl and falls to 0 half a class away.
func curlMatch(observed float64, want Curl, tol float64) float64 {
	return clamp01(1 - math.Abs(observed-want.value())/(0.5*tol))
}

// directionMatch is 1 on the expected direction and falls to 0 at a right angle.
func directionMatch(st FingerState, want Direction, tol float64) float64 {
	if !st.Pointing {
		return neutralDirection
	}
	return clamp01(1 - angularDiff(st.Angle, want.angle())/(90*tol))
}

// Classifier scores a hand against every static letter of a library.
type Classifier struct {
	lib        *Library
	tieEpsilon float64
}

// NewClassifier creates a classifier. A non-positive tieEpsilon selects DefaultTieEpsilon.
func NewClassifier(lib *Library, tieEpsilon float64) *Classifier {
	if tieEpsilon <= 0 {
		tieEpsilon = DefaultTieEpsilon
	}
	return &Classifier{lib: lib, tieEpsilon: tieEpsilon}
}

// Classify ranks the static letters for a hand. A nil hand yields no candidates.
// See Rank for ordering.
func (c *Classifier) Classify(hand *landmark.Hand, prefer string) []Candidate {
	if hand == nil {
		return nil
	}
	return c.Rank(AnalyzeHand(hand), prefer)
}

// Rank returns candidates with confidence of at least MinConfidence, highest first.
// Among candidates within the tie window of the best, prefer wins if present,
// otherwise the alphabetically first letter.
func (c *Classifier) Rank(fingers [5]FingerState, prefer string) []Candidate {
	var out []Candidate
	for _, letter := range c.lib.staticLetters {
		conf := Score(c.lib.static[letter], fingers)
		if conf >= MinConfidence {
			out = append(out, Candidate{Letter: letter, Confidence: conf})
		}
	}
	if len(out) == 0 {
		return out
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Letter < out[j].Letter
	})

	best := out[0].Confidence
	lead := 0
	for i := range out {
		if best-out[i].Confidence > c.tieEpsilon {
			break
		}
		if prefer != "" && out[i].Letter == prefer {
			lead = i
			break
		}
		if out[i].Letter < out[lead].Letter {
			lead = i
		}
	}
	if lead > 0 {
		top := out[lead]
		copy(out[1:lead+1], out[:lead])
		out[0] = top
	}

	return out
}
