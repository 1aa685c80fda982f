package planner

import (
	"math"

	"fffplanner/internal/logger"
)

// translateResult is the outcome of the kinematic translator, before the
// limit enforcer or junction policy have touched the block.
type translateResult struct {
	block      *Block
	dropped    bool
	suppressed bool
}

// translate implements §4.2 steps 2-9: build a candidate block from a
// (x, y, z, e, feed, extruder) request expressed in mm and mm/s. The
// full-buffer wait of step 1 is the caller's responsibility (Submit).
func (p *Planner) translate(x, y, z, e, feed float64, extruder int) translateResult {
	// x, y, z, e are absolute positions in mm (the gcode layer has
	// already resolved relative/absolute mode before calling submit).
	unitsMM := [NumAxes]float64{x, y, z, e}

	target := [NumAxes]int64{}
	target[AxisX] = round(unitsMM[AxisX] * p.cfg.AxisStepsPerUnit[AxisX])
	target[AxisY] = round(unitsMM[AxisY] * p.cfg.AxisStepsPerUnit[AxisY])
	target[AxisZ] = round(unitsMM[AxisZ] * p.cfg.AxisStepsPerUnit[AxisZ])
	target[AxisE] = round(unitsMM[AxisE] * p.cfg.StepsPerUnitE(extruder))

	// Step 3: tool-change rescale. Preserves physical E position across
	// a switch to an extruder whose steps/mm differs, without emitting a
	// move.
	if extruder != p.lastExtruder {
		oldScale := p.cfg.StepsPerUnitE(p.lastExtruder)
		newScale := p.cfg.StepsPerUnitE(extruder)
		if oldScale != newScale {
			p.position[AxisE] = round(float64(p.position[AxisE]) * newScale / oldScale)
		}
		p.lastExtruder = extruder
	}

	suppressed := false
	// Step 4: extrusion safety. Snap position[E] to the target (consume
	// the E component silently) and continue with the XYZ components
	// when the hotend is too cold or the extrusion is implausibly long.
	if target[AxisE] != p.position[AxisE] {
		cold := !p.allowColdExtrudes && p.heater != nil &&
			p.heater.HotendTemp(extruder) < p.cfg.ExtrudeMinTemp
		steps := absInt64(target[AxisE] - p.position[AxisE])
		overlong := float64(steps) > p.cfg.ExtrudeMaxLength*p.cfg.StepsPerUnitE(extruder)
		if cold || overlong {
			logger.Warnf("extrusion safety: suppressing E move (cold=%v overlong=%v)", cold, overlong)
			p.position[AxisE] = target[AxisE]
			suppressed = true
		}
	}

	// Step 5: step deltas, with the extrude-multiply scale on E.
	oldPosition := p.position
	steps := [NumAxes]int64{}
	for i := 0; i < NumAxes; i++ {
		steps[i] = absInt64(target[i] - oldPosition[i])
	}
	steps[AxisE] = round(float64(steps[AxisE]) * p.cfg.ExtrudeMultiply / 100)

	// deltaMM[i] is the signed mm delta on each axis, the quantity §4.3's
	// current_speed[i] = deltaMM[i] * inv_s is built from; axis_steps_per_unit
	// converts the absolute step delta back to mm rather than trusting the
	// caller's absolute mm args directly, so a tool-change rescale (step 3)
	// is reflected consistently.
	deltaMM := [NumAxes]float64{}
	deltaMM[AxisX] = float64(target[AxisX]-oldPosition[AxisX]) / p.cfg.AxisStepsPerUnit[AxisX]
	deltaMM[AxisY] = float64(target[AxisY]-oldPosition[AxisY]) / p.cfg.AxisStepsPerUnit[AxisY]
	deltaMM[AxisZ] = float64(target[AxisZ]-oldPosition[AxisZ]) / p.cfg.AxisStepsPerUnit[AxisZ]
	deltaMM[AxisE] = float64(target[AxisE]-oldPosition[AxisE]) / p.cfg.StepsPerUnitE(extruder)

	// Step 6: dropsegments.
	stepEventCount := maxInt64(steps[:]...)
	if stepEventCount <= int64(p.cfg.DropSegments) {
		return translateResult{dropped: true, suppressed: suppressed}
	}

	b := newBlock()
	b.Steps = steps
	b.StepEventCount = stepEventCount
	b.ActiveExtruder = extruder
	if p.fan != nil {
		b.FanSpeed = p.fan.FanSpeed()
	}

	// Step 7: direction bits, bit set = negative direction.
	for i := 0; i < NumAxes; i++ {
		if target[i]-oldPosition[i] < 0 {
			b.DirectionBits |= 1 << uint(i)
		}
	}

	// Step 8: classify no-move and compute millimeters.
	noMove := steps[AxisX] <= int64(p.cfg.DropSegments) &&
		steps[AxisY] <= int64(p.cfg.DropSegments) &&
		steps[AxisZ] <= int64(p.cfg.DropSegments)
	b.NoMove = noMove
	if noMove {
		b.Millimeters = math.Abs(deltaMM[AxisE])
		if deltaMM[AxisE] < 0 {
			b.Retract = true
		} else if deltaMM[AxisE] > 0 {
			b.Restore = true
		}
	} else {
		dx, dy, dz := deltaMM[AxisX], deltaMM[AxisY], deltaMM[AxisZ]
		b.Millimeters = math.Sqrt(dx*dx + dy*dy + dz*dz)
		b.Travel = steps[AxisE] <= int64(p.cfg.DropSegments)
	}
	b.deltaMM = deltaMM

	// Step 9: feed floor.
	minFeed := p.cfg.MinimumFeedrate
	if b.Travel {
		minFeed = p.cfg.MinTravelFeedrate
	}
	if feed < minFeed {
		feed = minFeed
	}
	b.NominalSpeed = feed

	p.position = target

	return translateResult{block: b, suppressed: suppressed}
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt64(vs ...int64) int64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
