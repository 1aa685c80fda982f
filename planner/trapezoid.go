package planner

import (
	"math"

	"fffplanner/internal/lock"
	"fffplanner/planner/advance"
)

// computeTrapezoid implements §4.6: for a block whose entry or exit
// changed, compute the step counts of the accelerate, cruise, and
// decelerate phases, including the no-plateau intersection fallback.
// It also carries the optional pressure-advance linkage of §4.7, since
// §9 requires that strategy run inside the same critical section as the
// trapezoid fields — leaking it outside risks a torn read by the
// stepper-link consumer.
//
// A busy block is left untouched: the consumer already owns its
// trajectory, so the whole write is skipped once busy is observed true
// under the lock, not just guarded at entry.
func computeTrapezoid(crit *lock.Critical, prev, cur *Block, entryFactor, exitFactor float64, tables []advance.Table) {
	crit.Guard(func() {
		if cur.Busy {
			return
		}

		initial := math.Max(MinStepRate, math.Ceil(cur.NominalRate*entryFactor))
		final := math.Max(MinStepRate, math.Ceil(cur.NominalRate*exitFactor))
		if final > cur.NominalRate {
			final = cur.NominalRate
		}

		aSt := cur.AccelerationSt
		n := float64(cur.StepEventCount)

		accelSteps := math.Ceil((cur.NominalRate*cur.NominalRate - initial*initial) / (2 * aSt))
		decelSteps := math.Floor((cur.NominalRate*cur.NominalRate - final*final) / (2 * aSt))
		plateau := n - accelSteps - decelSteps

		if plateau < 0 {
			accelSteps = clamp(
				math.Ceil((2*aSt*n-initial*initial+final*final)/(4*aSt)),
				0, n)
			plateau = 0
		}

		cur.InitialRate = initial
		cur.FinalRate = final
		cur.AccelerateUntil = int64(accelSteps)
		cur.DecelerateAfter = cur.AccelerateUntil + int64(plateau)

		applyPressureAdvance(prev, cur, tables)
	})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// applyPressureAdvance implements §4.7: evaluate the piecewise-linear
// extruder-compensation table at the initial, nominal, and final
// step rates, scaled by e_factor = steps_e / step_event_count, and
// link the predecessor's next_advance to this block's initial_advance.
// For non-extruding or retract moves, the predecessor's next_advance is
// reused unchanged instead of being recomputed.
func applyPressureAdvance(prev, cur *Block, tables []advance.Table) {
	if cur.ActiveExtruder >= len(tables) {
		return
	}
	table := &tables[cur.ActiveExtruder]

	if cur.NoMove || cur.Retract || cur.Steps[AxisE] == 0 {
		if prev != nil {
			cur.InitialAdvance = prev.NextAdvance
			cur.TargetAdvance = cur.InitialAdvance
			cur.FinalAdvance = cur.InitialAdvance
			cur.NextAdvance = cur.InitialAdvance
		}
		return
	}

	eFactor := float64(cur.Steps[AxisE]) / float64(cur.StepEventCount)

	cur.InitialAdvance = table.EvalESteps(cur.InitialRate, eFactor)
	cur.TargetAdvance = table.EvalESteps(cur.NominalRate, eFactor)
	cur.FinalAdvance = table.EvalESteps(cur.FinalRate, eFactor)
	cur.AdvanceStepRate = cur.AccelerationSt * eFactor

	if prev != nil {
		prev.NextAdvance = cur.InitialAdvance
		cur.PrevAdvance = prev.FinalAdvance
	}
	cur.NextAdvance = cur.FinalAdvance
}
