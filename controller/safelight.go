/*
DESCRIPTION
  safelight.go provides the illumination controller, responsible for
  the on/off control of the safelight relay as the system moves
  between its states, and for blackout mode, which suppresses all
  illumination regardless of state.

AUTHORS
  Petra Lindqvist <petra@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

package controller

import (
	"github.com/ausocean/utils/logging"

	"github.com/opendarkroom/printimer/config"
)

// SafelightState is the system activity the safelight follows.
type SafelightState uint8

const (
	SafelightHome SafelightState = iota
	SafelightFocus
	SafelightExposure
	SafelightMeasurement
)

// SafelightRelay is the relay the illumination controller switches.
type SafelightRelay interface {
	SafelightEnable(on bool)
	SafelightEnabled() bool
}

// Illum applies the configured safelight mode to the relay for each
// system state.
type Illum struct {
	l     logging.Logger
	relay SafelightRelay
	mode  func() config.SafelightMode

	state    SafelightState
	blackout bool
}

// NewIllum returns an illumination controller reading the safelight
// mode through the given accessor.
func NewIllum(relay SafelightRelay, mode func() config.SafelightMode, l logging.Logger) *Illum {
	return &Illum{l: l, relay: relay, mode: mode}
}

// SetState moves the safelight to follow the given system state.
func (il *Illum) SetState(state SafelightState) {
	if il.state != state {
		il.l.Debug("safelight state", "state", state)
		il.state = state
	}
	il.apply()
}

// State returns the current system state being followed.
func (il *Illum) State() SafelightState { return il.state }

// Blackout suppresses all illumination while enabled.
func (il *Illum) Blackout(enabled bool) {
	if il.blackout != enabled {
		il.l.Debug("blackout state", "enabled", enabled)
		il.blackout = enabled
	}
	il.apply()
}

// IsBlackout reports whether blackout is active.
func (il *Illum) IsBlackout() bool { return il.blackout }

func (il *Illum) apply() {
	if il.blackout {
		il.relay.SafelightEnable(false)
		return
	}

	enabled := true
	switch il.mode() {
	case config.SafelightModeOff:
		enabled = false
	case config.SafelightModeOn:
		// Only the home screen keeps the safelight up; any activity
		// involving the paper or the probe suppresses it.
		enabled = il.state == SafelightHome
	case config.SafelightModeAuto:
		enabled = il.state == SafelightHome || il.state == SafelightFocus
	}
	il.relay.SafelightEnable(enabled)
}

// Exposure implements the engine's safelight coupling: transition to
// the exposure state at run start.
func (il *Illum) Exposure() { il.SetState(SafelightExposure) }

// Home implements the engine's safelight coupling: return home at run
// end.
func (il *Illum) Home() { il.SetState(SafelightHome) }
