// Command plannerd wires a MachineConfig, a planner.Planner, and a
// stepperlink consumer together and feeds the planner a stream of moves.
// It is the standalone analogue of the donor firmware's K3cMain: a thin
// wiring layer, not a place for planning logic.
package main

import (
	"flag"
	"io"
	"os"
	"time"

	"fffplanner/internal/config"
	"fffplanner/internal/logger"
	"fffplanner/internal/sysutil"
	"fffplanner/planner"
	"fffplanner/planner/advance"
	"fffplanner/planner/stepperlink"

	"github.com/tarm/serial"
)

func main() {
	configPath := flag.String("config", "", "path to a machine.toml; empty uses the built-in scenario config")
	advancePath := flag.String("pressure-advance", "", "path to a pressure_advance.yaml; empty disables pressure advance")
	serialPort := flag.String("serial", "", "serial device to stream ISR blocks to; empty uses an in-memory sink")
	logfile := flag.String("logfile", "", "log file path; empty logs to console only")
	flag.Parse()

	logger.Init(logger.InfoLevel, *logfile, true, 10, 5, 30)
	defer logger.Sync()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatalf("main: load config: %v", err)
		}
		cfg = loaded
	}

	tables, err := advance.Load(*advancePath)
	if err != nil {
		logger.Fatalf("main: load pressure advance table: %v", err)
	}

	p := planner.New(cfg, planner.WithAdvanceTables(tables))

	sink, closer, err := stepperConsumerSink(*serialPort)
	if err != nil {
		logger.Fatalf("main: open stepper link: %v", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	consumer := stepperlink.NewConsumer(p.Ring(), sink)
	go func() {
		defer sysutil.CatchPanic()
		consumer.Run()
	}()
	defer consumer.Stop()

	logger.Infof("plannerd started gid=%d", sysutil.GetGID())

	feedSampleMoves(p)

	for p.MovesPlanned() > 0 {
		time.Sleep(10 * time.Millisecond)
	}
	logger.Infof("plannerd: %s", p.Stats())
	os.Exit(0)
}

// stepperConsumerSink returns a MemorySink unless a serial device was
// requested, in which case blocks are streamed out that port instead.
func stepperConsumerSink(device string) (stepperlink.Sink, io.Closer, error) {
	if device == "" {
		return &stepperlink.MemorySink{}, nil, nil
	}
	sink, port, err := stepperlink.OpenSerial(&serial.Config{Name: device, Baud: 115200})
	if err != nil {
		return nil, nil, err
	}
	return sink, port, nil
}

// feedSampleMoves submits a short rehearsal sequence: a square travel
// move followed by a retract, exercising the junction policy's
// interior-corner path and the no-move classification in the same run.
func feedSampleMoves(p *planner.Planner) {
	p.Submit(10, 0, 0, 0, 60, 0)
	p.Submit(10, 10, 0, 0, 60, 0)
	p.Submit(0, 10, 0, 0, 60, 0)
	p.Submit(0, 0, 0, 0, 60, 0)
	p.Submit(0, 0, 0, -2, 25, 0)
}
