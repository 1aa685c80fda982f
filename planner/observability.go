package planner

// This file supplements spec §1's note that "the AUTOTEMP heuristic, the
// fan-kickstart PWM logic, and axis-activity idle disabling are mentioned
// only where they observe planner state": the heuristics themselves (the
// temperature curve, the PWM ramp, the motor-disable decision) belong to
// external services, but the planner is the only place that can answer the
// three questions those services need — grounded on planner.cpp:401-429
// (getHighESpeed) and planner.cpp:543-573 (check_axes_activity).

// HighExtrusionSpeed reports the highest extrusion-speed demand among all
// currently-queued blocks that also have XY or Z motion, the observation
// an AUTOTEMP-style heater service uses to pick a hotend target ahead of
// a fast, heavily-extruding region of the path (planner.cpp:401-429's
// getHighESpeed). A pure-E move (retract/restore) does not count, matching
// the donor's `steps_x != 0 || steps_y != 0 || steps_z != 0` guard. Zero if
// the queue is empty or no qualifying block is queued.
func (p *Planner) HighExtrusionSpeed() float64 {
	var high float64
	p.ring.crit.Guard(func() {
		for i := p.ring.tail; i != p.ring.head; i = p.ring.next(i) {
			b := p.ring.at(i)
			if b.Steps[AxisX] == 0 && b.Steps[AxisY] == 0 && b.Steps[AxisZ] == 0 {
				continue
			}
			se := (float64(b.Steps[AxisE]) / float64(b.StepEventCount)) * b.NominalSpeed
			if se > high {
				high = se
			}
		}
	})
	return high
}

// TailFanSpeed returns the fan_speed stamped on the block currently at the
// ring's tail for the given extruder, or 0 if the queue is empty or the
// tail block belongs to a different extruder. A fan service polls this to
// decide the PWM duty cycle it should be driving toward — the kickstart
// ramp and any per-extruder follower logic (planner.cpp's
// check_axes_activity, FAN_KICKSTART_TIME block) stay external; the
// planner answers only "what does the block in flight want".
func (p *Planner) TailFanSpeed(extruder int) float64 {
	b, ok := p.ring.tailBlock()
	if !ok || b.ActiveExtruder != extruder {
		return 0
	}
	return b.FanSpeed
}

// AxisActivity reports, per axis, whether any currently-queued block moves
// that axis — the observation an idle-shutdown service uses to decide
// whether it is safe to disable that axis's stepper driver
// (planner.cpp:543-573's check_axes_activity x/y/z/e_active counters). All
// false when the queue is empty.
func (p *Planner) AxisActivity() [NumAxes]bool {
	var active [NumAxes]bool
	p.ring.crit.Guard(func() {
		for i := p.ring.tail; i != p.ring.head; i = p.ring.next(i) {
			b := p.ring.at(i)
			for axis := 0; axis < NumAxes; axis++ {
				if b.Steps[axis] != 0 {
					active[axis] = true
				}
			}
		}
	})
	return active
}
