package planner

import (
	"runtime"

	"fffplanner/internal/logger"
	"fffplanner/internal/sysutil"
)

// Submit implements §4.2/§4.8: the producer-side entry point. It blocks
// until a ring slot is free — servicing the registered wait callbacks
// between retests, the sole backpressure mechanism in this module — then
// runs the kinematic translator, the limit enforcer, and the junction
// policy, publishes the block, and re-plans the queue.
func (p *Planner) Submit(x, y, z, e, feed float64, extruder int) {
	p.waitForSlot()

	result := p.translate(x, y, z, e, feed, extruder)
	if result.dropped {
		logger.Debugf("gid=%d submit dropped (step_event_count <= dropsegments)", sysutil.GetGID())
		return
	}

	b := result.block
	p.applyLimits(b)
	p.applyJunction(b)

	p.ring.push(b)
	logger.Debugf("gid=%d submit trace=%s steps=%v entry=%.3f nominal=%.3f",
		sysutil.GetGID(), b.TraceID, b.Steps, b.EntrySpeed, b.NominalSpeed)

	p.replan()
}

// waitForSlot is §4.2 step 1's full-buffer wait: a spin that runs
// cooperative callbacks between retests rather than parking on a
// condition variable, matching §5's "the planner itself never blocks on
// locks".
func (p *Planner) waitForSlot() {
	for p.ring.full() {
		for _, cb := range p.waitCallbacks {
			cb()
		}
		runtime.Gosched()
	}
}

// Init zeroes head/tail, position, and previous speeds (§4.8).
func (p *Planner) Init() {
	p.ring = newRing(p.ring.capacity())
	p.position = [NumAxes]int64{}
	p.previousSpeed = [NumAxes]float64{}
	p.previousNominalSpeed = 0
	p.lastExtruder = 0
}
