/*
DESCRIPTION
  clock.go provides the monotonic millisecond time source used by the
  timing-sensitive parts of the system. Abstracting the clock lets the
  execution engine and the calibration procedure run against a
  scripted clock under test.

AUTHORS
  Dana Okafor <dana@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

// Package clock provides a monotonic millisecond time source.
package clock

import "time"

// TickMs is the period of the exposure timer tick.
const TickMs = 10

// Clock is a monotonic millisecond time source.
type Clock interface {
	// Now returns milliseconds since an arbitrary fixed origin.
	Now() uint32

	// Sleep blocks for the given number of milliseconds.
	Sleep(ms uint32)

	// SleepUntil blocks until Now() reaches tick. It returns
	// immediately if the deadline has passed.
	SleepUntil(tick uint32)
}

type sysClock struct {
	origin time.Time
}

// System returns a Clock backed by the runtime monotonic clock.
func System() Clock {
	return &sysClock{origin: time.Now()}
}

func (c *sysClock) Now() uint32 {
	return uint32(time.Since(c.origin) / time.Millisecond)
}

func (c *sysClock) Sleep(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

func (c *sysClock) SleepUntil(tick uint32) {
	now := c.Now()
	if tick <= now {
		return
	}
	time.Sleep(time.Duration(tick-now) * time.Millisecond)
}
