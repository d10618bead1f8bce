/*
DESCRIPTION
  meter.go provides the light meter probe contract: integrated-light
  readings in lux for metering, and raw clear-channel counts for the
  enlarger calibration loop.

AUTHORS
  Petra Lindqvist <petra@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

// Package meter provides access to the print light meter probe.
package meter

import "errors"

var (
	// ErrLow means the reading is below the usable range.
	ErrLow = errors.New("meter: reading too low")

	// ErrHigh means the sensor is saturated.
	ErrHigh = errors.New("meter: reading too high")

	// ErrTimeout means no reading became available in time.
	ErrTimeout = errors.New("meter: measurement timed out")

	// ErrNoReading means no reading was ready for a non-blocking
	// measurement.
	ErrNoReading = errors.New("meter: no reading available")

	// ErrFail means the sensor failed or is not initialised.
	ErrFail = errors.New("meter: sensor failure")
)

// Gain is an analog gain setting. Not every sensor supports every
// step; drivers clamp to their nearest supported value.
type Gain uint8

const (
	Gain1X Gain = iota
	Gain4X
	Gain16X
	Gain60X
	Gain128X
	Gain256X
)

// MaxGain is the highest gain in the ladder, where deterministic
// metering starts before stepping down out of saturation.
const MaxGain = Gain256X

// Value returns the gain multiplier.
func (g Gain) Value() int {
	switch g {
	case Gain1X:
		return 1
	case Gain4X:
		return 4
	case Gain16X:
		return 16
	case Gain60X:
		return 60
	case Gain128X:
		return 128
	case Gain256X:
		return 256
	}
	return 0
}

func (g Gain) String() string {
	switch g {
	case Gain1X:
		return "1x"
	case Gain4X:
		return "4x"
	case Gain16X:
		return "16x"
	case Gain60X:
		return "60x"
	case Gain128X:
		return "128x"
	case Gain256X:
		return "256x"
	}
	return "?"
}

// ShortestIntegrationMs is the shortest supported integration time,
// used by the calibration polling loop.
const ShortestIntegrationMs = 4.8

// Probe is a light meter probe. The probe is owned either by the UI
// task for live readings or by the calibration task, never both.
type Probe interface {
	// Enable powers the sensor up. It must be called before any
	// measurement.
	Enable() error

	// Disable powers the sensor down.
	Disable() error

	// SetGain selects the analog gain.
	SetGain(g Gain) error

	// SetIntegration selects the integration time per cycle, in
	// milliseconds, and the number of cycles accumulated per reading.
	SetIntegration(timeMs float64, count int) error

	// EnableAGC enables automatic gain control over the given cycle
	// count, for live metering where the scene brightness is unknown.
	EnableAGC(count int) error

	// Valid reports whether the sensor has a valid reading cycle
	// complete and is safe to use.
	Valid() (bool, error)

	// TryMeasure returns an integrated reading in lux without
	// blocking, or ErrNoReading when none is ready.
	TryMeasure() (float64, error)

	// Measure blocks, with an internal timeout, for an integrated
	// reading in lux. It returns ErrLow, ErrHigh, ErrTimeout or
	// ErrFail per the reading outcome.
	Measure() (float64, error)

	// ClearChannel returns the raw clear-channel count of the most
	// recent cycle. Used by the calibration polling loop.
	ClearChannel() (uint16, error)

	// ColorTemperature derives the colour temperature, in kelvin, of
	// the most recent full reading, or 0 when the reading is
	// saturated or unusable.
	ColorTemperature() (uint16, error)
}
