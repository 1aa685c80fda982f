package planner

import "math"

// replan implements §4.5: the two-pass look-ahead over blocks from
// tail+1 through head-1, followed by the trapezoid sweep over tail
// through head-1. It runs on the producer after every accepted block;
// §9 requires implementations not hoist any part of it into the
// consumer ("ISR") context. The two passes run only when more than three
// blocks are queued; the trapezoid sweep runs on every call.
func (p *Planner) replan() {
	var indices []uint32
	var head, tail uint32
	p.ring.crit.Guard(func() {
		head, tail = p.ring.head, p.ring.tail
	})
	for i := tail; i != head; i = p.ring.next(i) {
		indices = append(indices, i)
	}
	blocks := make([]*Block, len(indices))
	for i, idx := range indices {
		blocks[i] = p.ring.at(idx)
	}
	if len(blocks) == 0 {
		return
	}

	// window is tail+1..head-1: the range the reverse pass operates on
	// and the range whose entry speeds the forward pass may lower. The
	// block at tail (blocks[0]) may already be Busy and is excluded from
	// both passes as "cur" — it only ever supplies the forward pass's
	// first predecessor. The reverse pass also excludes the newest block
	// (the last of window) as "cur", since it has no real successor yet;
	// the forward pass has no such exclusion and updates every window
	// entry, including the newest block, from its immediate predecessor.
	window := blocks[1:]
	n := len(window)

	if len(blocks) > 3 {
		p.reversePass(window, n)
		p.forwardPass(blocks)
	}
	p.trapezoidSweep(blocks)
}

// reversePass walks the window backwards from its second-to-last entry,
// propagating deceleration feasibility from each block's successor.
func (p *Planner) reversePass(window []*Block, n int) {
	for idx := n - 2; idx >= 0; idx-- {
		cur := window[idx]
		next := window[idx+1]
		if cur.Busy {
			continue
		}
		if cur.EntrySpeed == cur.MaxEntrySpeed {
			continue
		}
		if !cur.NominalLengthFlag && cur.MaxEntrySpeed > next.EntrySpeed {
			reachable := math.Sqrt(next.EntrySpeed*next.EntrySpeed + 2*cur.Acceleration*cur.Millimeters)
			cur.EntrySpeed = math.Min(cur.MaxEntrySpeed, reachable)
		} else {
			cur.EntrySpeed = cur.MaxEntrySpeed
		}
		cur.RecalculateFlag = true
	}
}

// forwardPass walks the full queued range (tail through head-1) forwards,
// propagating acceleration feasibility from each block's predecessor into
// every block of the look-ahead window, including both its first entry
// (whose predecessor is the tail block itself, outside the window) and its
// last entry (whose predecessor is the window's second-to-last block). The
// tail block is only ever used as a predecessor here, never as "cur" —
// that block has already started executing or is about to.
func (p *Planner) forwardPass(blocks []*Block) {
	for idx := 1; idx < len(blocks); idx++ {
		prev := blocks[idx-1]
		cur := blocks[idx]
		if cur.Busy || prev.NominalLengthFlag {
			continue
		}
		reachable := math.Sqrt(prev.EntrySpeed*prev.EntrySpeed + 2*prev.Acceleration*prev.Millimeters)
		if reachable < cur.EntrySpeed {
			cur.EntrySpeed = reachable
			cur.RecalculateFlag = true
		}
	}
}

// trapezoidSweep walks tail through head-1 (the full queued range,
// including the possibly-Busy block at tail) and regenerates the
// trapezoid of any block whose own or successor's recalculate_flag is
// set. The final block's exit always uses MINIMUM_PLANNER_SPEED and is
// always recomputed, since it has no real successor yet to supply an
// entry speed.
func (p *Planner) trapezoidSweep(blocks []*Block) {
	for i, cur := range blocks {
		if cur.Busy {
			continue
		}
		var prev *Block
		if i > 0 {
			prev = blocks[i-1]
		}

		final := i == len(blocks)-1
		var nextEntry float64
		recalcNext := false
		if !final {
			nextEntry = blocks[i+1].EntrySpeed
			recalcNext = blocks[i+1].RecalculateFlag
		} else {
			nextEntry = p.cfg.MinimumPlannerSpeed
		}

		if cur.RecalculateFlag || recalcNext || final {
			entryFactor := cur.EntrySpeed / cur.NominalSpeed
			exitFactor := nextEntry / cur.NominalSpeed
			computeTrapezoid(&p.ring.crit, prev, cur, entryFactor, exitFactor, p.advanceTables)
		}
		cur.RecalculateFlag = false
	}
}
