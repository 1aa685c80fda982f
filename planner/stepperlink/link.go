// Package stepperlink is the planner's boundary to "the stepper" (§6):
// the external interrupt-driven consumer that takes ownership of the
// block at the ring's tail, executes its trapezoid, and advances the
// tail. It is grounded on the donor's project/chelper stub — a cgo FFI
// boundary to a C stepper/trapq helper that, in the retrieval pack, is
// itself only a no-op placeholder (chelper_stub.go, build-tagged
// !linux) — generalized here into a real Go interface, a Consumer, and
// two concrete Sinks: an in-process one for tests and an optional
// tarm/serial-backed one that writes block summaries out a serial
// port, for a drive-by-wire rehearsal against a real or pty-simulated
// controller board.
package stepperlink

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/tarm/serial"
)

// ISRBlock is the subset of Block fields §6 requires the stepper to
// consume, decoupled from the planner package so this link has no
// import-cycle back into it.
type ISRBlock struct {
	StepEventCount  int64
	Steps           [4]int64
	DirectionBits   uint8
	InitialRate     int64
	FinalRate       int64
	AccelerationRate int64
	AccelerateUntil int64
	DecelerateAfter int64
	ActiveExtruder  int
	FanSpeed        float64
	InitialAdvance  float64
	FinalAdvance    float64
}

// Source is whatever can hand the consumer the next ISRBlock and be told
// when that block has finished executing. The planner implements this
// through Planner.Ring(), which exposes its ring's tail.
type Source interface {
	// NextBlock blocks until a block is available and returns it
	// together with a done func the consumer calls exactly once, after
	// the block has fully executed, to advance the tail.
	NextBlock() (ISRBlock, func())
}

// Consumer runs the stepper-side loop: repeatedly pull a block from a
// Source, "execute" it (here: hand it to a Sink), and signal done.
type Consumer struct {
	source Source
	sink   Sink
	stop   chan struct{}
}

// Sink receives each ISRBlock as the consumer finishes with it. The
// in-memory Sink used by tests just records blocks; SerialSink encodes
// them onto a serial.Port.
type Sink interface {
	Consume(b ISRBlock) error
}

func NewConsumer(source Source, sink Sink) *Consumer {
	return &Consumer{source: source, sink: sink, stop: make(chan struct{})}
}

// Run drives the consumer loop until Stop is called. It is meant to run
// on its own goroutine, standing in for the real stepper timer ISR. Stop
// is checked only between blocks: a Run waiting in NextBlock on an empty
// queue does not return until another block arrives.
func (c *Consumer) Run() {
	for {
		select {
		case <-c.stop:
			return
		default:
		}
		b, done := c.source.NextBlock()
		_ = c.sink.Consume(b)
		done()
	}
}

func (c *Consumer) Stop() {
	close(c.stop)
}

// MemorySink records every block it consumes, for tests that need to
// inspect what the "ISR" actually saw.
type MemorySink struct {
	Blocks []ISRBlock
}

func (m *MemorySink) Consume(b ISRBlock) error {
	m.Blocks = append(m.Blocks, b)
	return nil
}

// recordSize is the fixed-width wire encoding of one ISRBlock: the int64
// step event count, four int64 step counts, one direction byte, five
// int64 rate/phase fields (initial rate, final rate, acceleration rate,
// accelerate_until, decelerate_after), one int32 extruder index, and two
// float64 fields (fan speed, advance delta). This is not a gcode or
// Klipper-protocol frame (those are out of scope per §1) — it exists
// solely to exercise the serial transport with exactly the fields §6
// requires.
const recordSize = 8 + 8*4 + 1 + 8*5 + 4 + 8*2

// SerialSink writes each consumed block as a fixed-width record to a
// serial connection, the real-hardware analogue of MemorySink. cfg.Name
// may point at a pty device in tests (e.g. one half of a socat pair)
// instead of a physical port.
type SerialSink struct {
	port io.Writer
}

// OpenSerial opens a tarm/serial connection per cfg and returns a Sink
// backed by it.
func OpenSerial(cfg *serial.Config) (*SerialSink, io.Closer, error) {
	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, nil, err
	}
	return &SerialSink{port: port}, port, nil
}

func (s *SerialSink) Consume(b ISRBlock) error {
	buf := make([]byte, recordSize)
	off := 0
	putI64 := func(v int64) {
		binary.LittleEndian.PutUint64(buf[off:], uint64(v))
		off += 8
	}
	putF64 := func(v float64) {
		binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(v))
		off += 8
	}
	putI64(b.StepEventCount)
	for _, s := range b.Steps {
		putI64(s)
	}
	buf[off] = b.DirectionBits
	off++
	putI64(b.InitialRate)
	putI64(b.FinalRate)
	putI64(b.AccelerationRate)
	putI64(b.AccelerateUntil)
	putI64(b.DecelerateAfter)
	binary.LittleEndian.PutUint32(buf[off:], uint32(b.ActiveExtruder))
	off += 4
	putF64(b.FanSpeed)
	putF64(b.FinalAdvance - b.InitialAdvance)
	_, err := s.port.Write(buf)
	return err
}
