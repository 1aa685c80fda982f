package planner

import (
	"runtime"

	"fffplanner/planner/stepperlink"
)

// ringSource adapts a Planner's ring to stepperlink.Source: the ISR-side
// handle of §6 ("expose the block at tail, a mark_busy operation ...,
// an advance_tail operation that frees the block and signals the
// producer").
type ringSource struct {
	r *ring
}

// NextBlock blocks (spinning, the same "interrupt disabled" critical
// section discipline as everywhere else in this module — there is no
// real OS thread parking here, only cooperative polling) until a block
// is available at tail, marks it busy, and returns a snapshot together
// with the advance_tail closure.
func (s *ringSource) NextBlock() (stepperlink.ISRBlock, func()) {
	for {
		if b, ok := s.r.tailBlock(); ok {
			s.r.markBusy()
			return toISRBlock(b), s.r.advanceTail
		}
		runtime.Gosched()
	}
}

func toISRBlock(b *Block) stepperlink.ISRBlock {
	return stepperlink.ISRBlock{
		StepEventCount:   b.StepEventCount,
		Steps:            b.Steps,
		DirectionBits:    b.DirectionBits,
		InitialRate:      int64(b.InitialRate),
		FinalRate:        int64(b.FinalRate),
		AccelerationRate: b.AccelerationRate(),
		AccelerateUntil:  b.AccelerateUntil,
		DecelerateAfter:  b.DecelerateAfter,
		ActiveExtruder:   b.ActiveExtruder,
		FanSpeed:         b.FanSpeed,
		InitialAdvance:   b.InitialAdvance,
		FinalAdvance:     b.FinalAdvance,
	}
}
