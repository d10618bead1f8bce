/*
DESCRIPTION
  keypad.go provides the keypad event contract consumed by the
  controller: raw key events with press, release and repeat
  information, delivered through blocking waits with bounded timeouts.

AUTHORS
  Miles Whitaker <miles@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

package controller

import "errors"

// ErrNoEvent is returned by Keypad.WaitEvent when the timeout expires
// with no input.
var ErrNoEvent = errors.New("controller: no keypad event")

// Key identifies a physical input.
type Key uint8

const (
	KeyNone Key = iota
	KeyIncExposure
	KeyDecExposure
	KeyIncContrast
	KeyDecContrast
	KeyStart
	KeyFocus
	KeyMenu
	KeyCancel
	KeyFootswitch
	KeyMeterProbe
	KeyBlackout
	KeyEncoderCW
	KeyEncoderCCW
)

// Event is one keypad event. A key produces a Pressed event on the
// way down, Repeated events while held, and a final event with
// Pressed false on release. Encoder keys carry a step count.
type Event struct {
	Key      Key
	Pressed  bool
	Repeated bool
	Count    uint8
}

// Keypad is the event source. WaitEvent blocks up to timeoutMs
// milliseconds; a negative timeout blocks indefinitely. ErrNoEvent is
// returned when the timeout expires.
type Keypad interface {
	WaitEvent(timeoutMs int) (Event, error)
}
