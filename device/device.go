/*
DESCRIPTION
  device.go provides LightActuator, the interface that describes a
  controllable light source used for printing: a mechanical relay
  switching an enlarger lamp, or a dimmable multi-channel head driven
  over a wire protocol.

AUTHORS
  Miles Whitaker <miles@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

// Package device provides the contracts for the output devices the
// control core drives, and implementations for the supported hardware
// variants.
package device

import (
	"fmt"

	"github.com/opendarkroom/printimer/profile"
)

// LightActuator is a controllable printing light source. The execution
// engine treats every variant uniformly; only the calibration
// procedure and the plan builder distinguish relay lamps from dimmable
// heads, because a dimmable head expresses the contrast grade as
// channel values rather than a mechanical filter.
//
// Actuator operations do not return errors: a relay cannot fail
// synchronously, and a faulted DMX bus degrades silently as an
// external concern. Latency must stay within one 10 ms tick.
type LightActuator interface {
	// Name returns the name of the actuator variant.
	Name() string

	// SetOff forces the lamp off. Idempotent.
	SetOff()

	// SetFocus turns the lamp on at a steady state safe for
	// composition and focusing.
	SetFocus()

	// SetExposure turns the lamp on at the output required to expose
	// at the given contrast grade. Relay lamps ignore the grade.
	SetExposure(grade profile.ContrastGrade)

	// SetExposureChannels turns the lamp on at explicit per-channel
	// levels. Relay lamps treat any call as fully on.
	SetExposureChannels(ch profile.ChannelValues)

	// IsEnabled reports whether the lamp is currently on. Purely
	// observational.
	IsEnabled() bool
}

// MultiError collects the errors found while validating a device
// configuration, so one pass can report every defaulted field.
type MultiError []error

func (me MultiError) Error() string {
	if len(me) == 0 {
		panic("device: invalid use of MultiError")
	}
	return fmt.Sprintf("%v", []error(me))
}
