/*
DESCRIPTION
  state_focus.go provides the focus state: the lamp held on for
  composition, with live probe metering onto the tone graph and a
  wall-clock timeout that forces the lamp off if the user walks away.

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

// focusPollMs bounds the focus event wait so the live cursor and the
// timeout keep moving.
const focusPollMs = 100

type focusState struct{}

func (s *focusState) Entry(c *Controller, prev StateID, param uint32) {
	c.startFocus()

	c.actions.Clear()
	c.actions.AddSingle(KeyFocus, actionFocus, ActionNone, false)
	c.actions.AddSingle(KeyCancel, actionCancel, ActionNone, false)
	c.actions.AddSingle(KeyStart, actionStart, ActionNone, false)
	c.actions.AddSingle(KeyMeterProbe, actionMeterProbe, ActionNone, false)
	c.actions.AddSingle(KeyIncExposure, actionIncExposure, ActionNone, true)
	c.actions.AddSingle(KeyDecExposure, actionDecExposure, ActionNone, true)
	c.actions.AddSingle(KeyBlackout, actionBlackout, ActionNone, false)
}

func (s *focusState) Process(c *Controller) StateID {
	c.disp.RedrawToneGraph(c.exp.ToneGraph().Bits(), c.overlay().Bits())

	action, err := c.actions.Wait(focusPollMs)
	if err != nil {
		c.pollLiveReading()
		return StateFocus
	}

	switch action.ID {
	case actionFocus, actionCancel:
		return StateHome
	case actionStart:
		// Starting an exposure from focus; the timer state kills the
		// lamp on entry.
		return StateTimer
	case actionMeterProbe:
		c.takeMeterReading()
	case actionIncExposure:
		c.exp.AdjIncrease()
	case actionDecExposure:
		c.exp.AdjDecrease()
	case actionBlackout:
		c.illum.Blackout(!c.illum.IsBlackout())
	}
	return StateFocus
}

func (s *focusState) Exit(c *Controller, next StateID) {
	c.stopFocus()
	c.actions.Clear()
}
