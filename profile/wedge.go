/*
DESCRIPTION
  wedge.go provides the step wedge record, an ordered set of
  transmission densities for the calibration target used to expose a
  known ramp onto paper.

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
)

const (
	MinWedgeSteps = 2
	MaxWedgeSteps = 51
)

// StepWedge describes a calibrated step wedge. The nominal density of
// step i is BaseDensity + i*DensityIncrement; a measured override, if
// known, takes precedence. Unknown measurements are stored as NaN.
type StepWedge struct {
	Name string `json:"name"`

	// BaseDensity is the density of the first step. May be nominal.
	BaseDensity float64 `json:"base_density"`

	// DensityIncrement is the nominal density change per step.
	DensityIncrement float64 `json:"density_increment"`

	// Measured holds per-step measured densities, NaN where unknown.
	// Its length is the step count.
	Measured []float64 `json:"-"`
}

// Unknown measurements are held as NaN in memory, which JSON cannot
// represent, so the record form uses null instead.
type wedgeRecord struct {
	Name             string     `json:"name"`
	BaseDensity      float64    `json:"base_density"`
	DensityIncrement float64    `json:"density_increment"`
	Measured         []*float64 `json:"measured"`
}

func (w *StepWedge) MarshalJSON() ([]byte, error) {
	rec := wedgeRecord{
		Name:             w.Name,
		BaseDensity:      w.BaseDensity,
		DensityIncrement: w.DensityIncrement,
		Measured:         make([]*float64, len(w.Measured)),
	}
	for i := range w.Measured {
		if !math.IsNaN(w.Measured[i]) {
			d := w.Measured[i]
			rec.Measured[i] = &d
		}
	}
	return json.Marshal(rec)
}

func (w *StepWedge) UnmarshalJSON(data []byte) error {
	var rec wedgeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	w.Name = rec.Name
	w.BaseDensity = rec.BaseDensity
	w.DensityIncrement = rec.DensityIncrement
	w.Measured = make([]float64, len(rec.Measured))
	for i, d := range rec.Measured {
		if d != nil {
			w.Measured[i] = *d
		} else {
			w.Measured[i] = math.NaN()
		}
	}
	return nil
}

// NewStepWedge returns a wedge with the given nominal geometry and all
// measurements unknown.
func NewStepWedge(name string, base, increment float64, steps int) *StepWedge {
	w := &StepWedge{
		Name:             name,
		BaseDensity:      base,
		DensityIncrement: increment,
		Measured:         make([]float64, steps),
	}
	for i := range w.Measured {
		w.Measured[i] = math.NaN()
	}
	return w
}

// StepCount returns the number of steps in the wedge.
func (w *StepWedge) StepCount() int {
	if w == nil {
		return 0
	}
	return len(w.Measured)
}

// StepDensity returns the density of step i: the measured value if one
// is known, otherwise the nominal value.
func (w *StepWedge) StepDensity(i int) float64 {
	if w == nil || i < 0 || i >= len(w.Measured) {
		return math.NaN()
	}
	if !math.IsNaN(w.Measured[i]) {
		return w.Measured[i]
	}
	return w.BaseDensity + float64(i)*w.DensityIncrement
}

// IsValid checks the wedge geometry. Measured values are not policed
// beyond being finite or unknown, since real wedges drift from nominal.
func (w *StepWedge) IsValid() bool {
	if w == nil {
		return false
	}
	if len(w.Measured) < MinWedgeSteps || len(w.Measured) > MaxWedgeSteps {
		return false
	}
	if w.BaseDensity < 0 || math.IsNaN(w.BaseDensity) || math.IsInf(w.BaseDensity, 0) {
		return false
	}
	if w.DensityIncrement < 0 || math.IsNaN(w.DensityIncrement) || math.IsInf(w.DensityIncrement, 0) {
		return false
	}
	for _, d := range w.Measured {
		if math.IsInf(d, 0) {
			return false
		}
	}
	return true
}
