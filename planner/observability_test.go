package planner

import "testing"

func TestHighExtrusionSpeedIgnoresPureEMoves(t *testing.T) {
	p := New(scenarioConfig())
	p.Submit(0, 0, 0, 5, 25, 0) // pure extrusion, no XY/Z motion
	if got := p.HighExtrusionSpeed(); got != 0 {
		t.Errorf("HighExtrusionSpeed = %v, want 0 (pure-E moves excluded)", got)
	}
}

func TestHighExtrusionSpeedTracksMaxAcrossQueue(t *testing.T) {
	cfg := scenarioConfig()
	cfg.BufferSize = 16
	p := New(cfg)
	p.Submit(10, 0, 0, 1, 20, 0) // 100/800 E steps per event at 20 mm/s -> 2.5
	p.Submit(20, 0, 0, 5, 60, 0) // 400/800 E steps per event at 60 mm/s -> 30

	got := p.HighExtrusionSpeed()
	if !almostEqual(got, 30, 1e-9) {
		t.Fatalf("HighExtrusionSpeed = %v, want 30 (the second block's demand)", got)
	}
}

func TestTailFanSpeedReflectsTailBlock(t *testing.T) {
	p := New(scenarioConfig(), WithFanObserver(constFan(0.5)))
	if got := p.TailFanSpeed(0); got != 0 {
		t.Errorf("TailFanSpeed on empty queue = %v, want 0", got)
	}
	p.Submit(10, 0, 0, 0, 60, 0)
	if got := p.TailFanSpeed(0); got != 0.5 {
		t.Errorf("TailFanSpeed(0) = %v, want 0.5", got)
	}
	if got := p.TailFanSpeed(1); got != 0 {
		t.Errorf("TailFanSpeed for a different extruder = %v, want 0", got)
	}
}

func TestAxisActivityReflectsQueuedMotion(t *testing.T) {
	p := New(scenarioConfig())
	if active := p.AxisActivity(); active != [NumAxes]bool{} {
		t.Errorf("AxisActivity on empty queue = %v, want all false", active)
	}
	p.Submit(10, 0, 0, -2, 60, 0)
	active := p.AxisActivity()
	if !active[AxisX] || !active[AxisE] {
		t.Errorf("AxisActivity = %v, want X and E active", active)
	}
	if active[AxisY] || active[AxisZ] {
		t.Errorf("AxisActivity = %v, want Y and Z inactive", active)
	}
}

type constFan float64

func (c constFan) FanSpeed() float64 { return float64(c) }
