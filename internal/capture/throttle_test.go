package capture

import (
	"testing"
	"time"
)

func TestThrottle(t *testing.T) {
	start := time.Unix(1000, 0)
	th := NewThrottle(0, 0, 0)

	if th.Active() || th.FPS() != IdleFPS {
		t.Fatalf("new throttle should be idle at %d FPS", IdleFPS)
	}
	if th.Interval() != 200*time.Millisecond {
		t.Errorf("idle interval = %v, want 200ms", th.Interval())
	}

	steps := []struct {
		at       time.Duration
		activity bool
		switched bool
		active   bool
	}{
		{0, false, false, false},
		{100 * time.Millisecond, true, true, true},
		{200 * time.Millisecond, true, false, true},
		{1 * time.Second, false, false, true},
		{2200 * time.Millisecond, false, false, true},
		{2300 * time.Millisecond, false, true, false},
		{2400 * time.Millisecond, false, false, false},
	}

	for _, s := range steps {
		switched := th.Observe(s.activity, start.Add(s.at))
		if switched != s.switched || th.Active() != s.active {
			t.Errorf("at %v: switched=%v active=%v, want %v/%v", s.at, switched, th.Active(), s.switched, s.active)
		}
	}
}

func TestThrottle_CustomRates(t *testing.T) {
	th := NewThrottle(2, 30, time.Second)
	th.Observe(true, time.Unix(0, 0))

	if th.FPS() != 30 {
		t.Errorf("active FPS = %d, want 30", th.FPS())
	}
	if th.Interval() != time.Second/30 {
		t.Errorf("active interval = %v", th.Interval())
	}
}
