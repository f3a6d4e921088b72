package gesture

import "math"

// PathPoint is one sample of a tracked fingertip, in hand-size units relative to
// where the motion started.
type PathPoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"ts"` // milliseconds
}

// DTWDistance calculates the Dynamic Time Warping distance between two paths,
// normalized by the longer path length. Returns +Inf if either path is empty.
func DTWDistance(a, b []PathPoint) float64 {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return math.Inf(1)
	}

	// Two rolling rows of the (n+1) x (m+1) cost matrix.
	prev := make([]float64, m+1)
	curr := make([]float64, m+1)
	for j := range prev {
		prev[j] = math.Inf(1)
	}
	prev[0] = 0

	for i := 1; i <= n; i++ {
		curr[0] = math.Inf(1)
		for j := 1; j <= m; j++ {
			cost := pointDistance(a[i-1], b[j-1])
			curr[j] = cost + min(prev[j], curr[j-1], prev[j-1])
		}
		prev, curr = curr, prev
	}

	return prev[m] / float64(max(n, m))
}

func pointDistance(a, b PathPoint) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// bounds returns the bounding box of the path.
func bounds(path []PathPoint) (minX, minY, maxX, maxY float64) {
	if len(path) == 0 {
		return 0, 0, 0, 0
	}
	minX, maxX = path[0].X, path[0].X
	minY, maxY = path[0].Y, path[0].Y
	for _, p := range path[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

// extent returns the larger side of the path's bounding box.
func extent(path []PathPoint) float64 {
	minX, minY, maxX, maxY := bounds(path)
	return math.Max(maxX-minX, maxY-minY)
}

// normalizePath moves the path into the unit square, scaling both axes by the
// larger side so the shape keeps its aspect ratio. Timestamps are preserved.
func normalizePath(path []PathPoint) []PathPoint {
	if path == nil {
		return nil
	}

	out := make([]PathPoint, len(path))
	if len(path) == 0 {
		return out
	}

	minX, minY, _, _ := bounds(path)
	scale := extent(path)
	for i, p := range path {
		out[i].Timestamp = p.Timestamp
		if scale > 0 {
			out[i].X = (p.X - minX) / scale
			out[i].Y = (p.Y - minY) / scale
		}
	}
	return out
}

// resamplePath linearly interpolates the path to exactly n points, evenly spaced
// by sample index.
func resamplePath(path []PathPoint, n int) []PathPoint {
	if len(path) == 0 {
		return nil
	}
	if len(path) == 1 || n <= 1 {
		return []PathPoint{path[0]}
	}

	out := make([]PathPoint, n)
	last := len(path) - 1
	for i := range out {
		pos := float64(i) / float64(n-1) * float64(last)
		idx := min(int(pos), last-1)
		frac := pos - float64(idx)

		p1, p2 := path[idx], path[idx+1]
		out[i] = PathPoint{
			X:         p1.X + frac*(p2.X-p1.X),
			Y:         p1.Y + frac*(p2.Y-p1.Y),
			Timestamp: p1.Timestamp + int64(frac*float64(p2.Timestamp-p1.Timestamp)),
		}
	}
	return out
}
