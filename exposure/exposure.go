/*
DESCRIPTION
  exposure.go provides shared types and time conversions for the
  exposure model: printing modes, stop-adjustment increments, and the
  rounding rules used when a floating-point exposure time becomes a
  timed run.

AUTHORS
  Miles Whitaker <miles@opendarkroom.org>
  Dana Okafor <dana@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

// Package exposure models the user-visible exposure settings of the
// timer: base time, stops adjustments, contrast grade, burn/dodge
// entries, meter readings, and the tone graph derived from them. It is
// a pure calculation layer with no hardware side effects.
package exposure

import "math"

// Mode is the top-level operating mode of the exposure state.
type Mode uint8

const (
	ModePrintingBW Mode = iota
	ModePrintingColor
	ModeDensitometer
	ModeCalibration
)

func (m Mode) String() string {
	switch m {
	case ModePrintingBW:
		return "B&W"
	case ModePrintingColor:
		return "Color"
	case ModeDensitometer:
		return "Densitometer"
	case ModeCalibration:
		return "Calibration"
	}
	return "?"
}

// Increment is a stop-adjustment step size, expressed in twelfths of a
// stop so that every supported fraction stays integral.
type Increment int

const (
	IncrementTwelfth Increment = 1
	IncrementSixth   Increment = 2
	IncrementQuarter Increment = 3
	IncrementThird   Increment = 4
	IncrementHalf    Increment = 6
	IncrementWhole   Increment = 12
)

// Denominator returns the increment as the denominator of a stop
// fraction, e.g. 4 for quarter stops.
func (i Increment) Denominator() uint8 {
	switch i {
	case IncrementTwelfth:
		return 12
	case IncrementSixth:
		return 6
	case IncrementQuarter:
		return 4
	case IncrementThird:
		return 3
	case IncrementHalf:
		return 2
	case IncrementWhole:
		return 1
	}
	return 0
}

// Larger returns the next coarser increment, or the same increment if
// already at whole stops.
func (i Increment) Larger() Increment {
	switch i {
	case IncrementTwelfth:
		return IncrementSixth
	case IncrementSixth:
		return IncrementQuarter
	case IncrementQuarter:
		return IncrementThird
	case IncrementThird:
		return IncrementHalf
	case IncrementHalf:
		return IncrementWhole
	}
	return i
}

// Smaller returns the next finer increment, or the same increment if
// already at twelfth stops.
func (i Increment) Smaller() Increment {
	switch i {
	case IncrementSixth:
		return IncrementTwelfth
	case IncrementQuarter:
		return IncrementSixth
	case IncrementThird:
		return IncrementQuarter
	case IncrementHalf:
		return IncrementThird
	case IncrementWhole:
		return IncrementHalf
	}
	return i
}

// Adjustment bounds and time caps. Adjustments are clamped at +/- 12
// stops. AdjIncrease and AdjDecrease refuse a step that would take the
// adjusted time outside [MinTimeSecs, MaxTimeSecs]; AdjSet and
// SetBaseTime do not cap the adjusted time.
const (
	MaxAdjustment = 144
	MinAdjustment = -144
	MinTimeSecs   = 0.01
	MaxTimeSecs   = 999.0
)

// pevPerStop is the PEV equivalent of one stop: 100 * log10(2).
var pevPerStop = 100 * math.Log10(2)

// RoundToTen rounds to the nearest multiple of 10.
func RoundToTen(n uint32) uint32 {
	a := (n / 10) * 10
	b := a + 10
	if n-a > b-n {
		return b
	}
	return a
}

// RoundedTimeMs converts an exposure time from floating-point seconds
// to milliseconds, rounded to the nearest 10 ms, which is the smallest
// increment used for display and timing.
func RoundedTimeMs(seconds float64) uint32 {
	ms := int64(math.Round(seconds * 1000))
	if ms < 0 {
		ms = 0
	}
	if ms > 1000000 {
		ms = 1000000
	}
	return RoundToTen(uint32(ms))
}
