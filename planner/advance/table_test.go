package advance

import (
	"math"
	"testing"
)

func TestLoadMissingFileIsDisabled(t *testing.T) {
	tables, err := Load("")
	if err != nil || tables != nil {
		t.Fatalf("Load(\"\") = %v, %v, want nil, nil", tables, err)
	}

	tables, err = Load("/nonexistent/pressure_advance.yaml")
	if err != nil || tables != nil {
		t.Fatalf("Load(missing) = %v, %v, want nil, nil", tables, err)
	}
}

func TestEvalEmptyTableIsZero(t *testing.T) {
	var tbl Table
	if got := tbl.Eval(50); got != 0 {
		t.Errorf("Eval on empty table = %v, want 0", got)
	}
}

func TestEvalSingleEntryIsConstant(t *testing.T) {
	tbl := Table{Entries: []Entry{{RateMMPerS: 10, AdvanceMM: 0.3}}}
	if got := tbl.Eval(0); got != 0.3 {
		t.Errorf("Eval(0) = %v, want 0.3", got)
	}
	if got := tbl.Eval(999); got != 0.3 {
		t.Errorf("Eval(999) = %v, want 0.3", got)
	}
}

func TestEvalInterpolatesBetweenEntries(t *testing.T) {
	tbl := Table{Entries: []Entry{
		{RateMMPerS: 0, AdvanceMM: 0},
		{RateMMPerS: 10, AdvanceMM: 0.2},
		{RateMMPerS: 20, AdvanceMM: 0.6},
	}}
	got := tbl.Eval(5)
	if math.Abs(got-0.1) > 1e-9 {
		t.Errorf("Eval(5) = %v, want 0.1", got)
	}
	got = tbl.Eval(15)
	if math.Abs(got-0.4) > 1e-9 {
		t.Errorf("Eval(15) = %v, want 0.4", got)
	}
}

func TestEvalClampsBeyondHighestEntry(t *testing.T) {
	tbl := Table{Entries: []Entry{
		{RateMMPerS: 0, AdvanceMM: 0},
		{RateMMPerS: 10, AdvanceMM: 0.2},
	}}
	if got := tbl.Eval(1000); got != 0.2 {
		t.Errorf("Eval(1000) = %v, want 0.2 (clamped)", got)
	}
}

func TestEvalESteps(t *testing.T) {
	tbl := Table{Entries: []Entry{
		{RateMMPerS: 0, AdvanceMM: 0},
		{RateMMPerS: 10, AdvanceMM: 1.0},
	}}
	// stepRate=200, eFactor=0.05 -> rate = stepRate*eFactor = 10 -> advance 1.0 * eFactor = 0.05
	got := tbl.EvalESteps(200, 0.05)
	if math.Abs(got-0.05) > 1e-9 {
		t.Errorf("EvalESteps = %v, want 0.05", got)
	}
}
