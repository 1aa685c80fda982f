package planner

import "math"

// applyJunction implements §4.4: the maximum entry speed at which this
// block may join the previous block given the jerk budget (the
// instantaneous scalar velocity-change permitted at a block boundary —
// not the derivative of acceleration, see GLOSSARY).
func (p *Planner) applyJunction(b *Block) {
	if b.NoMove {
		v := p.cfg.MaxEJerkFor(b.ActiveExtruder)
		if b.NominalSpeed < v {
			v = b.NominalSpeed
		}
		b.EntrySpeed = v
		b.MaxEntrySpeed = v
		b.RecalculateFlag = true
		p.previousSpeed = b.currentSpeed
		p.previousNominalSpeed = b.NominalSpeed
		return
	}

	vmaxJunction := p.cfg.MaxXYJerk / 2
	if math.Abs(b.currentSpeed[AxisZ]) > p.cfg.MaxZJerk/2 {
		vmaxJunction = p.cfg.MaxZJerk / 2
	}
	if math.Abs(b.currentSpeed[AxisE]) > p.cfg.MaxEJerkFor(b.ActiveExtruder)/2 {
		vmaxJunction = p.cfg.MaxEJerkFor(b.ActiveExtruder) / 2
	}
	if vmaxJunction > b.NominalSpeed {
		vmaxJunction = b.NominalSpeed
	}

	// queuedCount()+1 accounts for this block, about to be pushed onto
	// the ring but not yet on it when applyJunction runs (§4.4's
	// "queued >= 2" is evaluated with the new block already counted).
	if p.ring.queuedCount()+1 >= 2 && p.previousNominalSpeed > 0 {
		dvx := b.currentSpeed[AxisX] - p.previousSpeed[AxisX]
		dvy := b.currentSpeed[AxisY] - p.previousSpeed[AxisY]
		j := math.Hypot(dvx, dvy)
		factor := 1.0
		if j > p.cfg.MaxXYJerk {
			factor = p.cfg.MaxXYJerk / j
		}
		dvz := math.Abs(b.currentSpeed[AxisZ] - p.previousSpeed[AxisZ])
		if dvz > p.cfg.MaxZJerk {
			if f := p.cfg.MaxZJerk / dvz; f < factor {
				factor = f
			}
		}
		dve := math.Abs(b.currentSpeed[AxisE] - p.previousSpeed[AxisE])
		maxEJerk := p.cfg.MaxEJerkFor(b.ActiveExtruder)
		if dve > maxEJerk {
			// Preserved literally from the donor firmware (§9 open
			// question): this places "+ compSpeed" outside the
			// division rather than inside it alongside dve. Do not
			// "fix" without recalibrating against real hardware.
			if f := (maxEJerk / dve) + p.compSpeedFor(b.ActiveExtruder); f < factor {
				factor = f
			}
		}
		vmaxJunction = p.previousNominalSpeed
		if scaled := b.NominalSpeed * factor; scaled < vmaxJunction {
			vmaxJunction = scaled
		}
	}

	b.MaxEntrySpeed = vmaxJunction

	vAllowable := math.Sqrt(2*b.Acceleration*b.Millimeters + p.cfg.MinimumPlannerSpeed*p.cfg.MinimumPlannerSpeed)
	b.EntrySpeed = vmaxJunction
	if vAllowable < b.EntrySpeed {
		b.EntrySpeed = vAllowable
	}
	b.NominalLengthFlag = b.NominalSpeed <= vAllowable
	b.RecalculateFlag = true

	p.previousSpeed = b.currentSpeed
	p.previousNominalSpeed = b.NominalSpeed
}
