package gesture

import "math"

// HookSignature matches a stroke that drops downward to a pivot and then hooks
// to the left, the trace of a J.
type HookSignature struct {
	MinDrop float64 // downward travel from the start to the pivot
	MinHook float64 // leftward travel from the pivot to the end
}

// Match implements Signature. Confidence falls as the downward stroke drifts sideways.
func (s HookSignature) Match(path []PathPoint) (bool, float64) {
	if len(path) < 3 {
		return false, 0
	}

	// The pivot is the first sample near the lowest point, so a flat bottom
	// does not push it into the hook.
	_, _, _, maxY := bounds(path)
	band := 0.05 * (maxY - path[0].Y)
	pivot := 0
	for i, p := range path {
		if p.Y >= maxY-band {
			pivot = i
			break
		}
	}
	start, turn, end := path[0], path[pivot], path[len(path)-1]

	drop := turn.Y - start.Y
	if drop < s.MinDrop {
		return false, 0
	}
	if turn.X-end.X < s.MinHook {
		return false, 0
	}

	drift := math.Abs(turn.X-start.X) / drop
	if drift > 1 {
		return false, 0
	}
	return true, 1 - drift/2
}

// ShakeSignature matches a side to side shake, the motion of an X.
type ShakeSignature struct {
	MinReversals int     // horizontal direction changes
	MinAmplitude float64 // horizontal range of the whole path
	Deadband     float64 // movement ignored when detecting a reversal
}

// Match implements Signature.
func (s ShakeSignature) Match(path []PathPoint) (bool, float64) {
	if len(path) < 2 {
		return false, 0
	}

	minX, _, maxX, _ := bounds(path)
	if maxX-minX < s.MinAmplitude {
		return false, 0
	}

	n := countReversals(path, s.Deadband)
	if n < s.MinReversals {
		return false, 0
	}
	return true, clamp01(0.7 + 0.1*float64(n-s.MinReversals))
}

// countReversals counts horizontal direction changes. A reversal is registered
// once the path retreats from its latest extreme by more than deadband.
func countReversals(path []PathPoint, deadband float64) int {
	reversals := 0
	dir := 0
	extreme := path[0].X

	for _, p := range path[1:] {
		switch dir {
		case 0:
			if p.X-extreme > deadband {
				dir, extreme = 1, p.X
			} else if extreme-p.X > deadband {
				dir, extreme = -1, p.X
			}
		case 1:
			if p.X > extreme {
				extreme = p.X
			} else if extreme-p.X > deadband {
				reversals++
				dir, extreme = -1, p.X
			}
		case -1:
			if p.X < extreme {
				extreme = p.X
			} else if p.X-extreme > deadband {
				reversals++
				dir, extreme = 1, p.X
			}
		}
	}
	return reversals
}

// PathSignature matches a traced shape against a template with dynamic time warping.
// Both paths are resampled and normalized into the unit square before comparison.
type PathSignature struct {
	Template    []PathPoint
	MaxDistance float64 // largest accepted DTW distance
	MinExtent   float64 // smallest accepted bounding box side, in hand units
}

const pathResolution = 32

// Match implements Signature. Confidence is 1/(1+distance).
func (s PathSignature) Match(path []PathPoint) (bool, float64) {
	if len(path) < 2 || len(s.Template) < 2 {
		return false, 0
	}
	if extent(path) < s.MinExtent {
		return false, 0
	}

	input := normalizePath(resamplePath(path, pathResolution))
	template := normalizePath(resamplePath(s.Template, pathResolution))

	distance := DTWDistance(input, template)
	if math.IsInf(distance, 1) || distance > s.MaxDistance {
		return false, 0
	}
	return true, 1 / (1 + distance)
}
