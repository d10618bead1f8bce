/*
DESCRIPTION
  relay.go provides the relay-switched light actuator: a boolean
  enlarger lamp on one GPIO pin, plus the safelight relay on another.

AUTHORS
  Miles Whitaker <miles@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

// Package relay provides the GPIO relay implementation of the light
// actuator, for enlargers switched mechanically rather than dimmed.
package relay

import (
	"github.com/kidoman/embd"
	"github.com/pkg/errors"

	"github.com/ausocean/utils/logging"

	"github.com/opendarkroom/printimer/profile"
)

const pkg = "relay: "

// Relay drives the enlarger and safelight relays. A relay lamp has no
// notion of contrast grades or channel levels; any exposure or focus
// request simply energises the enlarger relay.
type Relay struct {
	l         logging.Logger
	enlarger  embd.DigitalPin
	safelight embd.DigitalPin
	enabled   bool
	safeOn    bool
}

// New initialises both relay pins and leaves them in a known
// disengaged state.
func New(enlargerPin, safelightPin interface{}, l logging.Logger) (*Relay, error) {
	r := &Relay{l: l}

	var err error
	r.enlarger, err = embd.NewDigitalPin(enlargerPin)
	if err != nil {
		return nil, errors.Wrap(err, "could not open enlarger relay pin")
	}
	r.safelight, err = embd.NewDigitalPin(safelightPin)
	if err != nil {
		return nil, errors.Wrap(err, "could not open safelight relay pin")
	}

	err = r.enlarger.SetDirection(embd.Out)
	if err != nil {
		return nil, errors.Wrap(err, "could not set enlarger pin direction")
	}
	err = r.safelight.SetDirection(embd.Out)
	if err != nil {
		return nil, errors.Wrap(err, "could not set safelight pin direction")
	}

	r.enlarger.Write(embd.Low)
	r.safelight.Write(embd.Low)
	return r, nil
}

// Name returns the actuator variant name.
func (r *Relay) Name() string { return "Relay" }

// SetOff de-energises the enlarger relay.
func (r *Relay) SetOff() {
	r.set(false)
}

// SetFocus energises the enlarger relay; a relay lamp has no reduced
// focus output.
func (r *Relay) SetFocus() {
	r.set(true)
}

// SetExposure energises the enlarger relay. The grade is expressed by
// a mechanical filter, not by the lamp.
func (r *Relay) SetExposure(grade profile.ContrastGrade) {
	r.set(true)
}

// SetExposureChannels energises the enlarger relay; channel levels do
// not apply to a switched lamp.
func (r *Relay) SetExposureChannels(ch profile.ChannelValues) {
	r.set(true)
}

// IsEnabled reports whether the enlarger relay is energised.
func (r *Relay) IsEnabled() bool { return r.enabled }

func (r *Relay) set(on bool) {
	v := embd.Low
	if on {
		v = embd.High
	}
	err := r.enlarger.Write(v)
	if err != nil {
		// The actuator contract cannot surface errors; a faulted pin
		// degrades silently apart from the log.
		r.l.Error(pkg+"enlarger relay write failed", "error", err.Error())
		return
	}
	r.enabled = on
}

// SafelightEnable switches the safelight relay.
func (r *Relay) SafelightEnable(on bool) {
	v := embd.Low
	if on {
		v = embd.High
	}
	err := r.safelight.Write(v)
	if err != nil {
		r.l.Error(pkg+"safelight relay write failed", "error", err.Error())
		return
	}
	r.safeOn = on
}

// SafelightEnabled reports whether the safelight relay is energised.
func (r *Relay) SafelightEnabled() bool { return r.safeOn }

// Close releases both pins.
func (r *Relay) Close() error {
	r.enlarger.Write(embd.Low)
	r.safelight.Write(embd.Low)
	err := r.enlarger.Close()
	if err != nil {
		return err
	}
	return r.safelight.Close()
}
