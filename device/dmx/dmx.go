/*
DESCRIPTION
  dmx.go provides the dimmable-head light actuator: an RGB+W enlarger
  head addressed as a block of 8- or 16-bit channels on a DMX512
  universe, transmitted continuously over an RS-485 serial port.

AUTHORS
  Miles Whitaker <miles@opendarkroom.org>
  Petra Lindqvist <petra@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

// Package dmx provides the DMX512 implementation of the light
// actuator for dimmable RGB+W enlarger heads.
package dmx

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"

	"github.com/ausocean/utils/logging"

	"github.com/opendarkroom/printimer/profile"
)

const pkg = "dmx: "

// DMX512 universe framing.
const (
	universeSize = 512
	startCode    = 0x00
	framePeriod  = 25 * time.Millisecond // ~40 frames per second.
)

// Transmitter modes.
const (
	stopped = iota + 1
	running
)

// Head drives a dimmable enlarger head. The head's grade and utility
// outputs come from the enlarger profile's control block; the actuator
// only moves between them.
//
// Transmission is continuous: a background routine sends the current
// universe at the frame rate whether or not the values changed, as
// DMX fixtures expect. A faulted bus degrades silently apart from the
// log, per the actuator contract.
type Head struct {
	l       logging.Logger
	port    *serial.Port
	control *profile.Control

	// startAddr is the head's first channel, 1-based as printed on
	// fixture displays.
	startAddr int

	mu       sync.Mutex
	mode     uint8
	universe [universeSize + 1]byte
	enabled  bool
}

// New opens the serial port and starts transmitting the all-dark
// universe.
func New(portName string, startAddr int, control *profile.Control, l logging.Logger) (*Head, error) {
	if control == nil {
		return nil, errors.New("dmx: enlarger profile has no control block")
	}
	if startAddr < 1 || startAddr > universeSize {
		return nil, errors.Errorf("dmx: start address out of range: %d", startAddr)
	}

	// DMX512 is 250 kbaud, 8 data bits, 2 stop bits, no parity.
	port, err := serial.OpenPort(&serial.Config{
		Name:        portName,
		Baud:        250000,
		Size:        8,
		StopBits:    serial.Stop2,
		Parity:      serial.ParityNone,
		ReadTimeout: time.Millisecond,
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not open DMX port")
	}

	h := &Head{
		l:         l,
		port:      port,
		control:   control,
		startAddr: startAddr,
		mode:      running,
	}
	h.universe[0] = startCode
	go h.transmit()
	return h, nil
}

// Name returns the actuator variant name.
func (h *Head) Name() string { return "DMX" }

// SetOff blacks the head out.
func (h *Head) SetOff() {
	h.apply(profile.ChannelValues{}, false)
}

// SetFocus sets the head to the profile's focus output.
func (h *Head) SetFocus() {
	h.apply(h.control.Focus, true)
}

// SetSafe sets the head to the profile's paper-safe output.
func (h *Head) SetSafe() {
	h.apply(h.control.Safe, true)
}

// SetExposure sets the head to the profile's output for the grade.
// The grade is expressed entirely as channel values; no mechanical
// filter is involved.
func (h *Head) SetExposure(grade profile.ContrastGrade) {
	if grade >= profile.GradeCount {
		h.l.Warning(pkg+"no channel values for grade", "grade", grade.String())
		h.SetOff()
		return
	}
	h.apply(h.control.Grades[grade], true)
}

// SetExposureChannels sets explicit channel levels, as used by colour
// printing mode.
func (h *Head) SetExposureChannels(ch profile.ChannelValues) {
	h.apply(ch, true)
}

// IsEnabled reports whether the head is lit.
func (h *Head) IsEnabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enabled
}

// apply writes channel values into the universe buffer. In wide mode
// each channel occupies two slots, coarse byte first.
func (h *Head) apply(ch profile.ChannelValues, on bool) {
	channels := 3
	if h.control.Mode == profile.ChannelsRGBW {
		channels = 4
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	slot := h.startAddr
	for i := 0; i < channels && slot <= universeSize; i++ {
		if h.control.Wide {
			h.universe[slot] = byte(ch[i] >> 8)
			slot++
			if slot > universeSize {
				break
			}
			h.universe[slot] = byte(ch[i])
			slot++
		} else {
			h.universe[slot] = byte(ch[i] >> 8)
			if !h.wideSource(ch[i]) {
				h.universe[slot] = byte(ch[i])
			}
			slot++
		}
	}
	h.enabled = on
}

// wideSource guesses whether a value uses the full 16-bit range; a
// narrow-mode head fed 8-bit values must not be shifted to zero.
func (h *Head) wideSource(v uint16) bool {
	return v > 0xFF
}

// transmit sends the universe continuously until the head is closed.
// sendBreak is called before each frame.
func (h *Head) transmit() {
	for {
		h.mu.Lock()
		if h.mode == stopped {
			h.mu.Unlock()
			return
		}
		var frame [universeSize + 1]byte
		copy(frame[:], h.universe[:])
		h.mu.Unlock()

		err := h.sendBreak()
		if err == nil {
			_, err = h.port.Write(frame[:])
		}
		if err != nil {
			h.l.Warning(pkg+"frame transmit failed", "error", err.Error())
		}
		time.Sleep(framePeriod)
	}
}

// sendBreak approximates the DMX break by flushing and holding the
// line; USB RS-485 adapters generate the break on frame gaps.
func (h *Head) sendBreak() error {
	return h.port.Flush()
}

// Close stops transmission, blacks out the head, and closes the port.
func (h *Head) Close() error {
	h.SetOff()
	h.mu.Lock()
	h.mode = stopped
	h.mu.Unlock()
	time.Sleep(framePeriod)
	return h.port.Close()
}
