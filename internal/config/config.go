// Package config loads and validates the machine configuration the
// planner reads: per-axis step scaling, feed-rate and acceleration
// ceilings, jerk budgets, and the handful of scalars §3 of the motion
// planner lists as "mutable from the external gcode layer". Load decodes
// a TOML file over Default(), so an option absent from the file keeps its
// default value; Validate then checks array lengths and value bounds,
// naming the option in each message the way the donor firmware's
// ConfigWrapper does. Nothing here panics: every violation found during a
// single Load is aggregated into one returned error instead of failing on
// the first.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
)

// Axis indices into the per-axis arrays. E channels for extruder i start
// at EAxis+i, mirroring axis_steps_per_unit[E+extruder] in §3.
const (
	X = 0
	Y = 1
	Z = 2
	EAxis = 3
)

// MachineConfig is the planner's process-wide, mostly-static configuration.
// Scalars here are the ones §3 calls out as producer-context-mutable; the
// planner keeps the pointer it was constructed with, not a copy, so a
// change made to this struct is seen by the next submission.
type MachineConfig struct {
	NumExtruders int `toml:"num_extruders"`

	AxisStepsPerUnit []float64 `toml:"axis_steps_per_unit"`
	MaxFeedrate      []float64 `toml:"max_feedrate"`
	// MaxAccelUnitsPerSqSecond is the per-axis acceleration ceiling in
	// mm/s², indexed the same way as AxisStepsPerUnit; the planner
	// multiplies it by AxisStepsPerUnit to get the step-domain ceiling
	// (axis_steps_per_sqr_second in §4.3) on every axis, E included.
	MaxAccelUnitsPerSqSecond []float64 `toml:"max_acceleration_units_per_sq_second"`

	Acceleration         float64   `toml:"acceleration"`
	RetractAcceleration  []float64 `toml:"retract_acceleration"`

	MaxXYJerk float64   `toml:"max_xy_jerk"`
	MaxZJerk  float64   `toml:"max_z_jerk"`
	MaxEJerk  []float64 `toml:"max_e_jerk"`

	MinimumFeedrate    float64 `toml:"minimumfeedrate"`
	MinTravelFeedrate  float64 `toml:"mintravelfeedrate"`
	MinSegmentTime     float64 `toml:"minsegmenttime"`
	ExtrudeMultiply    float64 `toml:"extrudemultiply"`

	BufferSize   int `toml:"buffer_size"`
	DropSegments int `toml:"dropsegments"`

	MinimumPlannerSpeed float64 `toml:"minimum_planner_speed"`

	ExtrudeMinTemp    float64 `toml:"extrude_mintemp"`
	ExtrudeMaxLength  float64 `toml:"extrude_maxlength"`
	AllowColdExtrudes bool    `toml:"allow_cold_extrudes"`

	XYFrequencyLimit float64 `toml:"xy_frequency_limit"`
}

// Default returns the scenario configuration used throughout the test
// suite: axis_steps_per_unit=[80,80,400,100], max_feedrate=[300,300,5,25],
// acceleration=3000, per-axis accel ceiling=9000, max_xy_jerk=20,
// max_e_jerk=5, MINIMUM_PLANNER_SPEED=0.05, buffer size 16, dropsegments=5.
func Default() *MachineConfig {
	return &MachineConfig{
		NumExtruders:             1,
		AxisStepsPerUnit:         []float64{80, 80, 400, 100},
		MaxFeedrate:              []float64{300, 300, 5, 25},
		MaxAccelUnitsPerSqSecond: []float64{9000, 9000, 9000, 9000},
		Acceleration:             3000,
		RetractAcceleration:      []float64{3000},
		MaxXYJerk:                20,
		MaxZJerk:                 0.4,
		MaxEJerk:                 []float64{5},
		MinimumFeedrate:          0,
		MinTravelFeedrate:        0,
		MinSegmentTime:           20000,
		ExtrudeMultiply:          100,
		BufferSize:               16,
		DropSegments:             5,
		MinimumPlannerSpeed:      0.05,
		ExtrudeMinTemp:           170,
		ExtrudeMaxLength:         200,
		AllowColdExtrudes:        false,
		XYFrequencyLimit:         0,
	}
}

// Load reads a MachineConfig from a TOML file and validates it. Every
// missing-or-out-of-range field is collected via multierr rather than
// returned on the first failure, so a misconfigured machine sees every
// problem in one report.
func Load(path string) (*MachineConfig, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the option-level bounds the donor's ConfigWrapper.Get*
// family enforces one option at a time, but aggregates every violation.
func (c *MachineConfig) Validate() error {
	var errs error
	need := func(name string, n int, want int) {
		if n != want {
			errs = multierr.Append(errs, fmt.Errorf("option %q must have length %d, got %d", name, want, n))
		}
	}
	axes := EAxis + c.NumExtruders
	need("axis_steps_per_unit", len(c.AxisStepsPerUnit), axes)
	need("max_feedrate", len(c.MaxFeedrate), axes)
	need("max_acceleration_units_per_sq_second", len(c.MaxAccelUnitsPerSqSecond), axes)
	need("retract_acceleration", len(c.RetractAcceleration), c.NumExtruders)
	need("max_e_jerk", len(c.MaxEJerk), c.NumExtruders)

	positive := func(name string, v float64) {
		if v <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("option %q must be specified and positive, got %v", name, v))
		}
	}
	positive("acceleration", c.Acceleration)
	positive("max_xy_jerk", c.MaxXYJerk)
	positive("minimum_planner_speed", c.MinimumPlannerSpeed)

	if c.BufferSize <= 0 || c.BufferSize&(c.BufferSize-1) != 0 {
		errs = multierr.Append(errs, fmt.Errorf("option %q must be a power of two, got %d", "buffer_size", c.BufferSize))
	}
	if c.DropSegments < 0 {
		errs = multierr.Append(errs, fmt.Errorf("option %q must be >= 0, got %d", "dropsegments", c.DropSegments))
	}
	return errs
}

// StepsPerUnitE returns axis_steps_per_unit[E+extruder].
func (c *MachineConfig) StepsPerUnitE(extruder int) float64 {
	return c.AxisStepsPerUnit[EAxis+extruder]
}

func (c *MachineConfig) MaxFeedrateE(extruder int) float64 {
	return c.MaxFeedrate[EAxis+extruder]
}

func (c *MachineConfig) MaxEJerkFor(extruder int) float64 {
	return c.MaxEJerk[extruder]
}

func (c *MachineConfig) RetractAccelerationFor(extruder int) float64 {
	return c.RetractAcceleration[extruder]
}
