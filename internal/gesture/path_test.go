package gesture

import (
	"math"
	"testing"
)

func TestDTW_IdenticalPaths(t *testing.T) {
	path := []PathPoint{
		{X: 0, Y: 0, Timestamp: 0},
		{X: 1, Y: 1, Timestamp: 100},
		{X: 2, Y: 2, Timestamp: 200},
	}

	if d := DTWDistance(path, path); d != 0 {
		t.Errorf("expected distance 0 for identical paths, got %f", d)
	}
}

func TestDTW_DifferentPaths(t *testing.T) {
	a := []PathPoint{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
	b := []PathPoint{{X: 0, Y: 2}, {X: 1, Y: 2}, {X: 2, Y: 2}}

	if d := DTWDistance(a, b); !approx(d, 2, 1e-9) {
		t.Errorf("expected distance 2 for parallel paths, got %f", d)
	}
}

func TestDTW_SpeedInvariant(t *testing.T) {
	fast := []PathPoint{{X: 0}, {X: 1}, {X: 2}}
	slow := []PathPoint{{X: 0}, {X: 0.5}, {X: 1}, {X: 1.5}, {X: 2}}
	other := []PathPoint{{X: 0}, {Y: 1}, {Y: 2}}

	same := DTWDistance(fast, slow)
	diff := DTWDistance(fast, other)
	if same >= diff {
		t.Errorf("expected speed variants to be closer (%f) than different shapes (%f)", same, diff)
	}
	if same > 0.2 {
		t.Errorf("expected small distance for speed variants, got %f", same)
	}
}

func TestDTW_EmptyPaths(t *testing.T) {
	path := []PathPoint{{X: 1, Y: 1}}

	tests := []struct {
		name string
		a, b []PathPoint
	}{
		{"both empty", nil, nil},
		{"first empty", nil, path},
		{"second empty", path, []PathPoint{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if d := DTWDistance(tt.a, tt.b); !math.IsInf(d, 1) {
				t.Errorf("expected +Inf, got %f", d)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	path := []PathPoint{
		{X: 2, Y: 1, Timestamp: 10},
		{X: 6, Y: 1, Timestamp: 20},
		{X: 6, Y: 3, Timestamp: 30},
	}

	got := normalizePath(path)
	want := []PathPoint{
		{X: 0, Y: 0, Timestamp: 10},
		{X: 1, Y: 0, Timestamp: 20},
		{X: 1, Y: 0.5, Timestamp: 30},
	}
	for i := range want {
		if !approx(got[i].X, want[i].X, 1e-9) || !approx(got[i].Y, want[i].Y, 1e-9) || got[i].Timestamp != want[i].Timestamp {
			t.Errorf("point %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestNormalizePath_Degenerate(t *testing.T) {
	if got := normalizePath(nil); got != nil {
		t.Errorf("expected nil for nil path, got %v", got)
	}
	if got := normalizePath([]PathPoint{}); len(got) != 0 {
		t.Errorf("expected empty path, got %v", got)
	}

	got := normalizePath([]PathPoint{{X: 5, Y: 5, Timestamp: 7}, {X: 5, Y: 5, Timestamp: 8}})
	for _, p := range got {
		if p.X != 0 || p.Y != 0 {
			t.Errorf("expected a stationary path at the origin, got %+v", p)
		}
	}
}

func TestResamplePath(t *testing.T) {
	path := []PathPoint{
		{X: 0, Y: 0, Timestamp: 0},
		{X: 10, Y: 0, Timestamp: 100},
	}

	got := resamplePath(path, 5)
	if len(got) != 5 {
		t.Fatalf("expected 5 points, got %d", len(got))
	}
	for i, p := range got {
		wantX := float64(i) * 2.5
		if !approx(p.X, wantX, 1e-9) {
			t.Errorf("point %d X = %f, want %f", i, p.X, wantX)
		}
	}
	if got[4].Timestamp != 100 {
		t.Errorf("expected last timestamp 100, got %d", got[4].Timestamp)
	}

	if got := resamplePath([]PathPoint{{X: 3}}, 10); len(got) != 1 {
		t.Errorf("expected a single point to stay single, got %d", len(got))
	}
	if got := resamplePath(nil, 10); got != nil {
		t.Errorf("expected nil for empty path, got %v", got)
	}
}
