package config

import "testing"

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default() config failed to validate: %v", err)
	}
}

func TestValidateAggregatesMultipleErrors(t *testing.T) {
	cfg := Default()
	cfg.AxisStepsPerUnit = []float64{80, 80} // wrong length
	cfg.Acceleration = -1                   // not positive
	cfg.BufferSize = 3                      // not a power of two

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"axis_steps_per_unit", "acceleration", "buffer_size"} {
		if !contains(msg, want) {
			t.Errorf("error message %q missing mention of %q", msg, want)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/machine.toml"); err == nil {
		t.Fatal("expected an error loading a nonexistent config file")
	}
}

func TestPerExtruderAccessors(t *testing.T) {
	cfg := Default()
	if got := cfg.StepsPerUnitE(0); got != 100 {
		t.Errorf("StepsPerUnitE(0) = %v, want 100", got)
	}
	if got := cfg.MaxFeedrateE(0); got != 25 {
		t.Errorf("MaxFeedrateE(0) = %v, want 25", got)
	}
	if got := cfg.MaxEJerkFor(0); got != 5 {
		t.Errorf("MaxEJerkFor(0) = %v, want 5", got)
	}
	if got := cfg.RetractAccelerationFor(0); got != 3000 {
		t.Errorf("RetractAccelerationFor(0) = %v, want 3000", got)
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
