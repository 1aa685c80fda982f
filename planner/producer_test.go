package planner

import (
	"math"
	"testing"

	"fffplanner/internal/config"
)

func scenarioConfig() *config.MachineConfig {
	return config.Default()
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// Scenario 1: single X move from rest.
func TestSubmitSingleXMove(t *testing.T) {
	p := New(scenarioConfig())
	p.Submit(10, 0, 0, 0, 60, 0)

	if p.MovesPlanned() != 1 {
		t.Fatalf("moves_planned = %d, want 1", p.MovesPlanned())
	}
	b, ok := p.ring.tailBlock()
	if !ok {
		t.Fatal("expected a block at tail")
	}
	if b.Steps[AxisX] != 800 {
		t.Errorf("steps_x = %d, want 800", b.Steps[AxisX])
	}
	if b.Steps[AxisY] != 0 || b.Steps[AxisZ] != 0 || b.Steps[AxisE] != 0 {
		t.Errorf("other axes should be zero, got %v", b.Steps)
	}
	if !almostEqual(b.Millimeters, 10, 1e-9) {
		t.Errorf("millimeters = %v, want 10", b.Millimeters)
	}
	if !almostEqual(b.NominalSpeed, 60, 1e-9) {
		t.Errorf("nominal_speed = %v, want 60", b.NominalSpeed)
	}
	if !almostEqual(b.EntrySpeed, 10, 1e-6) {
		t.Errorf("entry_speed = %v, want 10", b.EntrySpeed)
	}
	if !b.NominalLengthFlag {
		t.Errorf("nominal_length_flag should be true")
	}
}

// Scenario 2: two collinear X moves — interior junction sees zero jerk.
func TestSubmitTwoCollinearMoves(t *testing.T) {
	p := New(scenarioConfig())
	p.Submit(10, 0, 0, 0, 60, 0)
	p.Submit(20, 0, 0, 0, 60, 0)

	if p.MovesPlanned() != 2 {
		t.Fatalf("moves_planned = %d, want 2", p.MovesPlanned())
	}
	var blocks []*Block
	p.ring.forEachQueued(func(_ uint32, b *Block) { blocks = append(blocks, b) })
	b0, _ := p.ring.tailBlock()
	blocks = append([]*Block{b0}, blocks...)
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if !almostEqual(blocks[1].EntrySpeed, 60, 1e-6) {
		t.Errorf("block2 entry_speed = %v, want 60 (collinear, zero jerk)", blocks[1].EntrySpeed)
	}
}

// Scenario 3: 90-degree corner — jerk-limited junction.
func TestSubmit90DegreeCorner(t *testing.T) {
	p := New(scenarioConfig())
	p.Submit(10, 0, 0, 0, 60, 0)
	p.Submit(10, 10, 0, 0, 60, 0)

	var blocks []*Block
	p.ring.forEachQueued(func(_ uint32, b *Block) { blocks = append(blocks, b) })
	b0, _ := p.ring.tailBlock()
	blocks = append([]*Block{b0}, blocks...)
	b2 := blocks[1]

	if b2.MaxEntrySpeed > 20+1e-9 {
		t.Errorf("max_entry_speed = %v, want <= max_xy_jerk (20)", b2.MaxEntrySpeed)
	}
	if b2.MaxEntrySpeed > 60+1e-9 {
		t.Errorf("max_entry_speed = %v, want <= previous_nominal_speed (60)", b2.MaxEntrySpeed)
	}
	if !almostEqual(b2.MaxEntrySpeed, 20/math.Sqrt2, 1e-3) {
		t.Errorf("max_entry_speed = %v, want ~= %v", b2.MaxEntrySpeed, 20/math.Sqrt2)
	}
}

// Scenario 4: pure retract from rest.
func TestSubmitPureRetract(t *testing.T) {
	p := New(scenarioConfig())
	p.Submit(0, 0, 0, -2, 25, 0)

	b, ok := p.ring.tailBlock()
	if !ok {
		t.Fatal("expected a block")
	}
	if !b.NoMove {
		t.Errorf("expected no_move = true")
	}
	if !almostEqual(b.Millimeters, 2, 1e-9) {
		t.Errorf("millimeters = %v, want 2", b.Millimeters)
	}
	if !b.Retract {
		t.Errorf("expected retract = true")
	}
	if !almostEqual(b.EntrySpeed, 5, 1e-9) || !almostEqual(b.MaxEntrySpeed, 5, 1e-9) {
		t.Errorf("entry_speed/max_entry_speed = %v/%v, want 5/5", b.EntrySpeed, b.MaxEntrySpeed)
	}
}

// Scenario 6: tool-change rescale preserves physical E position.
func TestSubmitToolChangeRescale(t *testing.T) {
	cfg := scenarioConfig()
	cfg.NumExtruders = 2
	cfg.AxisStepsPerUnit = []float64{80, 80, 400, 100, 140}
	cfg.MaxFeedrate = []float64{300, 300, 5, 25, 25}
	cfg.MaxAccelUnitsPerSqSecond = []float64{9000, 9000, 9000, 9000, 9000}
	cfg.RetractAcceleration = []float64{3000, 3000}
	cfg.MaxEJerk = []float64{5, 5}

	p := New(cfg)
	p.SetPosition(0, 0, 0, 10) // position[E] = 1000 steps at 100 steps/mm
	if p.position[AxisE] != 1000 {
		t.Fatalf("setup: position[E] = %d, want 1000", p.position[AxisE])
	}

	p.lastExtruder = 0
	p.Submit(0, 0, 0, 10, 25, 1)

	if p.position[AxisE] != 1400 {
		t.Errorf("position[E] after rescale = %d, want 1400", p.position[AxisE])
	}
	b, ok := p.ring.tailBlock()
	if !ok {
		t.Fatal("expected a block")
	}
	if b.Steps[AxisE] != 0 {
		t.Errorf("steps_e = %d, want 0 (no physical E motion across tool change)", b.Steps[AxisE])
	}
}

// Exactly-dropsegments step count enqueues no block.
func TestSubmitDropsegmentsBoundary(t *testing.T) {
	cfg := scenarioConfig()
	p := New(cfg)
	// 5 steps at 80 steps/mm = 0.0625mm, step_event_count == dropsegments(5).
	p.Submit(5.0/80.0, 0, 0, 0, 60, 0)
	if p.MovesPlanned() != 0 {
		t.Fatalf("moves_planned = %d, want 0 (dropped)", p.MovesPlanned())
	}
	if p.position[AxisX] != 0 {
		t.Errorf("position should be unchanged on drop, got %d", p.position[AxisX])
	}
}

// SetPosition with no motion resets previous_nominal_speed and leaves
// the queue empty.
func TestSetPositionResetsJunctionState(t *testing.T) {
	p := New(scenarioConfig())
	p.Submit(10, 0, 0, 0, 60, 0)
	p.SetPosition(10, 0, 0, 0)

	if p.previousNominalSpeed != 0 {
		t.Errorf("previous_nominal_speed = %v, want 0", p.previousNominalSpeed)
	}
}

// Full buffer backpressure: submit blocks until a slot opens.
func TestSubmitBlocksOnFullBuffer(t *testing.T) {
	cfg := scenarioConfig()
	cfg.BufferSize = 4
	p := New(cfg)

	for i := 1; i <= cfg.BufferSize-1; i++ {
		p.Submit(float64(i)*10, 0, 0, 0, 60, 0)
	}
	if p.MovesPlanned() != cfg.BufferSize-1 {
		t.Fatalf("moves_planned = %d, want %d", p.MovesPlanned(), cfg.BufferSize-1)
	}

	called := make(chan struct{}, 1)
	drained := make(chan struct{})
	p.waitCallbacks = append(p.waitCallbacks, func() {
		select {
		case called <- struct{}{}:
		default:
		}
		select {
		case <-drained:
		default:
			p.ring.advanceTail()
			close(drained)
		}
	})

	p.Submit(1000, 0, 0, 0, 60, 0)

	select {
	case <-called:
	default:
		t.Errorf("expected a wait callback to run while the buffer was full")
	}
}
