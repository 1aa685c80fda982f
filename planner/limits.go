package planner

import "math"

// applyLimits implements §4.3: clamps the candidate block's nominal
// speed and acceleration against per-axis feed-rate and acceleration
// ceilings, the optional XY direction-change frequency limit, the
// buffer-draining slowdown policy, and the pressure-advance E-speed
// reservation.
func (p *Planner) applyLimits(b *Block) {
	invS := b.NominalSpeed / b.Millimeters // feed / millimeters, s^-1

	currentSpeed := [NumAxes]float64{}
	for i := 0; i < NumAxes; i++ {
		currentSpeed[i] = b.deltaMM[i] * invS
	}

	compSpeed := p.compSpeedFor(b.ActiveExtruder)

	speedFactor := 1.0
	for i := 0; i < NumAxes; i++ {
		ceiling := p.cfg.MaxFeedrate[axisConfigIndex(i, b.ActiveExtruder)]
		if i == AxisE {
			ceiling -= compSpeed
		}
		if currentSpeed[i] == 0 {
			continue
		}
		if f := ceiling / math.Abs(currentSpeed[i]); f < speedFactor {
			speedFactor = f
		}
	}

	// Slowdown policy: stretch segment time when the buffer is
	// near-starved so the stepper does not underrun.
	queued := p.ring.queuedCount()
	segmentTimeUS := 1e6 / invS
	if !b.NoMove && !b.Retract && queued > 2 && queued < p.cfg.BufferSize/2 &&
		segmentTimeUS < p.cfg.MinSegmentTime {
		stretch := 2 * (p.cfg.MinSegmentTime - segmentTimeUS) / float64(queued)
		newSegmentTimeUS := segmentTimeUS + stretch
		speedFactor *= segmentTimeUS / newSegmentTimeUS
	}

	// Optional XY direction-change frequency limit.
	if p.cfg.XYFrequencyLimit > 0 {
		speedFactor *= p.applyXYFrequencyLimit(b, segmentTimeUS)
	}

	for i := 0; i < NumAxes; i++ {
		currentSpeed[i] *= speedFactor
	}
	b.currentSpeed = currentSpeed
	// nominal_speed = millimeters * inv_s using the speed_factor-scaled
	// inv_s; since inv_s = feed/millimeters, this is feed*speed_factor.
	b.NominalSpeed *= speedFactor
	b.NominalRate = math.Ceil(float64(b.StepEventCount) * invS * speedFactor)

	p.clampAcceleration(b)
}

// axisConfigIndex maps the block-local axis index (0..3) to the
// MachineConfig array index, resolving AxisE to E+extruder as §3
// specifies for axis_steps_per_unit and max_feedrate.
func axisConfigIndex(axis, extruder int) int {
	if axis == AxisE {
		return AxisE + extruder
	}
	return axis
}

func (p *Planner) compSpeedFor(extruder int) float64 {
	if extruder < len(p.advanceTables) {
		return p.advanceTables[extruder].CompSpeed
	}
	return 0
}

// applyXYFrequencyLimit maintains a per-axis ring of the last three
// segment times keyed on direction changes of that axis (§4.3); this
// module allocates the window unconditionally in Planner (§3 extension)
// rather than scoping it to the feature flag the way the donor source
// does, per §9's note on that scoping being fragile.
func (p *Planner) applyXYFrequencyLimit(b *Block, segmentTimeUS float64) float64 {
	minWindowMax := math.Inf(1)
	for axis := 0; axis < 2; axis++ {
		dir := int8(0)
		if b.DirectionBits&(1<<uint(axis)) != 0 {
			dir = -1
		} else if b.Steps[axis] > 0 {
			dir = 1
		}
		if dir != 0 && dir != p.lastDir[axis] {
			idx := p.xyFreqIdx[axis]
			p.xyFreqWindow[axis][idx] = segmentTimeUS
			p.xyFreqIdx[axis] = (idx + 1) % 3
			p.lastDir[axis] = dir
		}
		windowMax := 0.0
		for _, t := range p.xyFreqWindow[axis] {
			if t > windowMax {
				windowMax = t
			}
		}
		if windowMax > 0 && windowMax < minWindowMax {
			minWindowMax = windowMax
		}
	}
	limitUS := 1e6 / p.cfg.XYFrequencyLimit
	if math.IsInf(minWindowMax, 1) || minWindowMax >= limitUS {
		return 1.0
	}
	return minWindowMax / limitUS
}

// clampAcceleration implements §4.3's acceleration clamp: start from the
// global acceleration (or retract_acceleration for a no-move block), then
// lower the step-domain acceleration for any axis whose per-axis
// step-acceleration ceiling would otherwise be exceeded. A no-move block
// never goes through the per-axis clamp at all (planner.cpp's no_move
// branch only sets acceleration_st from retract_acceleration and returns).
func (p *Planner) clampAcceleration(b *Block) {
	stepsPerMM := float64(b.StepEventCount) / b.Millimeters

	if b.NoMove {
		b.AccelerationSt = math.Ceil(p.cfg.RetractAccelerationFor(b.ActiveExtruder) * stepsPerMM)
		b.Acceleration = b.AccelerationSt / stepsPerMM
		return
	}

	aSt := math.Ceil(p.cfg.Acceleration * stepsPerMM)

	for i := 0; i < NumAxes; i++ {
		if b.Steps[i] == 0 {
			continue
		}
		// axis_steps_per_sqr_second[i] = max_acceleration_units_per_sq_second[i] *
		// axis_steps_per_unit[i] (planner.cpp:818-819) — the per-axis ceiling is
		// configured in mm/s² and must be converted to step units before it is
		// compared against a_st, a step-domain quantity.
		idx := axisConfigIndex(i, b.ActiveExtruder)
		ceiling := p.cfg.MaxAccelUnitsPerSqSecond[idx] * p.cfg.AxisStepsPerUnit[idx]
		if aSt*float64(b.Steps[i])/float64(b.StepEventCount) > ceiling {
			aSt = ceiling
		}
	}

	b.AccelerationSt = aSt
	b.Acceleration = aSt / stepsPerMM
}
