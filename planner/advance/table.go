// Package advance implements the optional pressure-advance hook of §4.7:
// a piecewise-linear extruder-compensation table evaluated at a block's
// initial, nominal, and final step rates. The interpolation itself is
// grounded on the donor's pa_math.go (Saturate/LinearInterpolate/
// Float_binarySearch/InterpolateWithBinarySearch); everything in that
// file concerned with QR decomposition, robust linear fitting, and
// bed-mesh bilinear interpolation belongs to a different subsystem
// (bed-mesh calibration) this module does not implement, and was not
// carried over.
package advance

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"

	"fffplanner/internal/logger"
)

// Entry is one (rate_mm_per_s, advance_mm) point of gCComp[extruder].
type Entry struct {
	RateMMPerS float64 `yaml:"rate"`
	AdvanceMM  float64 `yaml:"advance"`
}

// Table is one extruder's piecewise-linear compensation curve, plus the
// E-speed it reserves (COMP_SPEED in §4.3's feed-rate ceiling).
type Table struct {
	CompSpeed float64 `yaml:"comp_speed"`
	Entries   []Entry `yaml:"entries"`
}

// file is the on-disk shape: one table per extruder index.
type file struct {
	Tables []Table `yaml:"extruders"`
}

// Load reads per-extruder pressure-advance tables from a YAML file. A
// missing file is not an error — pressure advance is optional — callers
// should treat a nil, nil return as "disabled".
func Load(path string) ([]Table, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("advance: read %s: %w", path, err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("advance: parse %s: %w", path, err)
	}
	for i := range f.Tables {
		sort.Slice(f.Tables[i].Entries, func(a, b int) bool {
			return f.Tables[i].Entries[a].RateMMPerS < f.Tables[i].Entries[b].RateMMPerS
		})
	}
	return f.Tables, nil
}

func linearInterpolate(x1, y1, x2, y2, x float64) float64 {
	if x2 == x1 {
		return y1
	}
	return y1 + (y2-y1)*(x-x1)/(x2-x1)
}

func floatBinarySearch(xs []float64, target float64) int {
	low, high := 0, len(xs)-1
	for low <= high {
		mid := low + (high-low)/2
		if xs[mid] < target {
			low = mid + 1
		} else if xs[mid] > target {
			high = mid - 1
		} else {
			return mid
		}
	}
	return low
}

// Eval interpolates advance_mm at rate mm/s, clamping beyond the table's
// highest entry to its value (§4.7). An empty table evaluates to 0 at
// every rate.
func (t *Table) Eval(rate float64) float64 {
	if len(t.Entries) == 0 {
		return 0
	}
	if len(t.Entries) == 1 {
		return t.Entries[0].AdvanceMM
	}
	xs := make([]float64, len(t.Entries))
	ys := make([]float64, len(t.Entries))
	for i, e := range t.Entries {
		xs[i], ys[i] = e.RateMMPerS, e.AdvanceMM
	}
	if rate >= xs[len(xs)-1] {
		return ys[len(ys)-1]
	}
	if rate <= xs[0] {
		return linearInterpolate(xs[0], ys[0], xs[1], ys[1], rate)
	}
	idx := floatBinarySearch(xs, rate)
	if idx <= 0 || idx >= len(xs) {
		logger.Debugf("advance: unexpected index %d for rate %.3f", idx, rate)
		idx = len(xs) - 1
	}
	return linearInterpolate(xs[idx-1], ys[idx-1], xs[idx], ys[idx], rate)
}

// EvalESteps evaluates the table in E-step units at a block's step rate,
// scaled by e_factor = steps_e / step_event_count as §4.7 specifies.
func (t *Table) EvalESteps(stepRate, eFactor float64) float64 {
	return t.Eval(stepRate*eFactor) * eFactor
}
