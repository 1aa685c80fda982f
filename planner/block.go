// Package planner implements the motion planner: the ring buffer of
// motion blocks, the kinematic translator, the limit enforcer, the
// junction-jerk policy, the two-pass look-ahead re-planner, the trapezoid
// generator, and the producer-side API a gcode layer drives it through.
//
// It is grounded on the donor firmware's toolhead/look-ahead-queue shape
// (a ring of blocks consumed by an asynchronous "stepper" context) but
// implements jerk-based entry-speed and trapezoid math rather than the
// donor's own junction-deviation algorithm.
package planner

import (
	uuid "github.com/satori/go.uuid"
)

// MinStepRate is the floor every published initial_rate/final_rate
// respects (§4.6, §8 invariant 3).
const MinStepRate = 120.0

// StepRateScaler encodes acceleration_st into the stepper's 24.8
// fixed-point rate increment per interrupt tick at a 1 MHz timer
// (2^23 / 1e6, §6). Reparameterize if targeting a different timer
// frequency.
const StepRateScaler = 8.388608

// axis indices, matching internal/config.
const (
	AxisX = 0
	AxisY = 1
	AxisZ = 2
	AxisE = 3
	NumAxes = 4
)

// Block is the planner's only persistent entity: one planned linear
// segment, the unit the stepper-link consumer consumes.
type Block struct {
	Steps            [NumAxes]int64
	StepEventCount   int64
	DirectionBits    uint8

	Millimeters float64

	NominalSpeed float64
	NominalRate  float64

	Acceleration   float64
	AccelerationSt float64

	EntrySpeed    float64
	MaxEntrySpeed float64

	InitialRate float64
	FinalRate   float64

	AccelerateUntil  int64
	DecelerateAfter  int64

	NominalLengthFlag bool
	RecalculateFlag   bool

	// Busy is set by the stepper-link consumer while this block is the
	// one currently executing. The re-planner and trapezoid generator
	// must not mutate a busy block.
	Busy bool

	NoMove  bool
	Travel  bool
	Retract bool
	Restore bool

	FanSpeed      float64
	ActiveExtruder int

	// Pressure-advance state (§4.7), populated only when the planner's
	// advance table is enabled.
	PrevAdvance     float64
	InitialAdvance  float64
	TargetAdvance   float64
	FinalAdvance    float64
	NextAdvance     float64
	AdvanceStepRate float64

	// TraceID is diagnostic only (§3 extension): it never participates
	// in any computation. Submit's debug log line carries it; the
	// look-ahead passes and the stepper-link consumer do not log it.
	TraceID uuid.UUID

	// deltaMM is the signed per-axis mm delta computed by the
	// translator, consumed by the limit enforcer and junction policy
	// and not part of the block's published state afterwards.
	deltaMM [NumAxes]float64

	// currentSpeed is the post-speed_factor per-axis velocity vector
	// (§4.3/§4.4), scratch state between the limit enforcer and the
	// junction policy.
	currentSpeed [NumAxes]float64
}

func newBlock() *Block {
	return &Block{TraceID: uuid.NewV4()}
}

// AccelerationRate is the ISR-required fixed-point acceleration increment
// (§6): round(acceleration_st * StepRateScaler).
func (b *Block) AccelerationRate() int64 {
	return int64(b.AccelerationSt*StepRateScaler + 0.5)
}

// PlateauLength is the cruise-phase step count: decelerate_after minus
// accelerate_until. The three phase lengths (accelerate, plateau,
// decelerate) must sum exactly to StepEventCount (§8 invariant 2).
func (b *Block) PlateauLength() int64 {
	return b.DecelerateAfter - b.AccelerateUntil
}
