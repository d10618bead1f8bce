/*
DESCRIPTION
  wedge_test.go provides testing for step wedge density lookup,
  geometry validation, and the null-for-unknown record form.

AUTHORS
  Petra Lindqvist <petra@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

package profile

import (
	"encoding/json"
	"math"
	"testing"
)

func TestStepWedgeDensity(t *testing.T) {
	w := NewStepWedge("Stouffer T2115", 0.05, 0.15, 21)

	if got := w.StepDensity(0); math.Abs(got-0.05) > 1e-9 {
		t.Errorf("step 0 density = %v, want 0.05", got)
	}
	if got := w.StepDensity(10); math.Abs(got-1.55) > 1e-9 {
		t.Errorf("step 10 density = %v, want 1.55", got)
	}

	// A measured override takes precedence over the nominal value.
	w.Measured[10] = 1.52
	if got := w.StepDensity(10); got != 1.52 {
		t.Errorf("step 10 measured density = %v, want 1.52", got)
	}

	if got := w.StepDensity(99); !math.IsNaN(got) {
		t.Errorf("out of range step should be NaN, got %v", got)
	}
}

func TestStepWedgeIsValid(t *testing.T) {
	tests := []struct {
		name string
		w    *StepWedge
		want bool
	}{
		{name: "typical wedge", w: NewStepWedge("w", 0.05, 0.15, 21), want: true},
		{name: "minimum steps", w: NewStepWedge("w", 0, 0.3, 2), want: true},
		{name: "too few steps", w: NewStepWedge("w", 0, 0.3, 1), want: false},
		{name: "too many steps", w: NewStepWedge("w", 0, 0.05, 52), want: false},
		{name: "negative increment", w: NewStepWedge("w", 0.05, -0.1, 11), want: false},
		{name: "negative base", w: NewStepWedge("w", -0.05, 0.1, 11), want: false},
	}

	for _, test := range tests {
		got := test.w.IsValid()
		if got != test.want {
			t.Errorf("%s: IsValid = %v, want %v", test.name, got, test.want)
		}
	}
}

func TestStepWedgeJSONRoundTrip(t *testing.T) {
	w := NewStepWedge("w", 0.05, 0.15, 5)
	w.Measured[2] = 0.36

	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("did not expect marshal error: %v", err)
	}

	var got StepWedge
	err = json.Unmarshal(data, &got)
	if err != nil {
		t.Fatalf("did not expect unmarshal error: %v", err)
	}

	if got.StepCount() != 5 {
		t.Fatalf("step count = %d, want 5", got.StepCount())
	}
	if got.Measured[2] != 0.36 {
		t.Errorf("measured[2] = %v, want 0.36", got.Measured[2])
	}
	for _, i := range []int{0, 1, 3, 4} {
		if !math.IsNaN(got.Measured[i]) {
			t.Errorf("measured[%d] = %v, want NaN", i, got.Measured[i])
		}
	}
}
