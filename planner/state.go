package planner

import (
	"fffplanner/internal/config"
	"fffplanner/internal/logger"
	"fffplanner/internal/sysutil"
	"fffplanner/planner/advance"
)

// HeaterObserver is the extrusion-safety interlock's view of the heater
// service (§1: heater services are an external collaborator; the
// planner only reads hotend temperature to decide whether an extrusion
// is safe, §4.2 step 4). A nil observer means "always hot enough".
type HeaterObserver interface {
	HotendTemp(extruder int) float64
}

// FanObserver captures the fan speed to stamp onto a block (§3,
// Block.fan_speed); the fan's own PWM/kickstart logic is out of scope.
type FanObserver interface {
	FanSpeed() float64
}

// WaitCallback is run cooperatively while Submit spins on a full buffer
// (§4.2 step 1, §5): heater service, inactivity check, LCD refresh in the
// donor firmware. The planner does not know what these do — it only
// calls them between retests.
type WaitCallback func()

// Planner is the process-wide planner state of §3: position, the two
// previous-block junction quantities, the active extruder, and the
// mutable configuration scalars a gcode layer may still be tweaking at
// runtime, alongside the ring buffer itself.
type Planner struct {
	cfg *config.MachineConfig

	ring *ring

	position             [NumAxes]int64
	previousSpeed        [NumAxes]float64
	previousNominalSpeed float64
	lastExtruder         int

	allowColdExtrudes bool

	heater HeaterObserver
	fan    FanObserver

	advanceTables []advance.Table

	waitCallbacks []WaitCallback

	// xyFreqWindow tracks the last three segment times per axis keyed on
	// direction changes, for the optional XY direction-change frequency
	// limit (§4.3). Declared here rather than only inside the branch
	// that uses it, unlike the donor source's fragile feature-flagged
	// local (§9 open question) — it is always allocated, just unused
	// when XYFrequencyLimit is zero.
	xyFreqWindow [2][3]float64
	xyFreqIdx    [2]int
	lastDir      [2]int8
}

// New constructs a Planner over a fresh, empty ring of cfg.BufferSize
// blocks.
func New(cfg *config.MachineConfig, opts ...Option) *Planner {
	p := &Planner{
		cfg:               cfg,
		ring:              newRing(cfg.BufferSize),
		allowColdExtrudes: cfg.AllowColdExtrudes,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type Option func(*Planner)

func WithHeaterObserver(h HeaterObserver) Option { return func(p *Planner) { p.heater = h } }
func WithFanObserver(f FanObserver) Option        { return func(p *Planner) { p.fan = f } }
func WithAdvanceTables(t []advance.Table) Option  { return func(p *Planner) { p.advanceTables = t } }
func WithWaitCallback(cb WaitCallback) Option {
	return func(p *Planner) { p.waitCallbacks = append(p.waitCallbacks, cb) }
}

// AllowColdExtrudes toggles the cold-extrusion interlock (§4.8).
func (p *Planner) AllowColdExtrudes(allow bool) {
	p.allowColdExtrudes = allow
}

// MovesPlanned returns the current queue depth (§4.8).
func (p *Planner) MovesPlanned() int {
	return p.ring.queuedCount()
}

// SetPosition rewrites the planner's notion of origin without draining
// the queue (§4.8): it resets previous_nominal_speed to 0 so the next
// block's junction policy treats the prior move as "at rest", per §3's
// "reset to zero on set_position".
func (p *Planner) SetPosition(x, y, z, e float64) {
	p.ring.crit.Guard(func() {
		p.position[AxisX] = round(x * p.cfg.AxisStepsPerUnit[AxisX])
		p.position[AxisY] = round(y * p.cfg.AxisStepsPerUnit[AxisY])
		p.position[AxisZ] = round(z * p.cfg.AxisStepsPerUnit[AxisZ])
		p.position[AxisE] = round(e * p.cfg.StepsPerUnitE(p.lastExtruder))
		p.previousSpeed = [NumAxes]float64{}
		p.previousNominalSpeed = 0
	})
	logger.Debugf("gid=%d set_position -> steps=%v", sysutil.GetGID(), p.position)
}

// SetEPosition is SetPosition's E-only counterpart (§4.8).
func (p *Planner) SetEPosition(e float64) {
	p.ring.crit.Guard(func() {
		p.position[AxisE] = round(e * p.cfg.StepsPerUnitE(p.lastExtruder))
		p.previousSpeed[AxisE] = 0
		p.previousNominalSpeed = 0
	})
}

// Position returns the current commanded position in absolute steps.
func (p *Planner) Position() [NumAxes]int64 {
	return p.position
}

// Ring exposes the stepper-link Source this Planner backs, so a
// stepperlink.Consumer can be attached to it.
func (p *Planner) Ring() *ringSource {
	return &ringSource{r: p.ring}
}

func round(v float64) int64 {
	if v >= 0 {
		return int64(v + 0.5)
	}
	return -int64(-v + 0.5)
}
