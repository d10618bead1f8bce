/*
DESCRIPTION
  state_densitometer.go provides the densitometer state: repeated
  probe readings shown as density relative to the first reading of the
  session.

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

type densitometerState struct{}

func (s *densitometerState) Entry(c *Controller, prev StateID, param uint32) {
	c.startProbe()

	c.actions.Clear()
	c.actions.AddSingle(KeyStart, actionStart, ActionNone, false)
	c.actions.AddSingle(KeyMeterProbe, actionMeterProbe, ActionNone, false)
	c.actions.AddSingle(KeyMenu, actionMenu, ActionNone, false)
	c.actions.AddSingle(KeyCancel, actionCancel, actionAccept, false)
}

func (s *densitometerState) Process(c *Controller) StateID {
	c.disp.DrawMainDensitometer(densitometerElements(c.exp))

	action, err := c.actions.Wait(-1)
	if err != nil {
		return StateDensitometer
	}

	switch action.ID {
	case actionStart, actionMeterProbe:
		c.takeMeterReading()
	case actionMenu:
		// Re-zero on the next reading.
		c.exp.ClearMeterReadings()
	case actionAccept:
		// Long-press cancel clears the session before leaving.
		c.exp.ClearMeterReadings()
		return StateHome
	case actionCancel:
		return StateHome
	}
	return StateDensitometer
}

func (s *densitometerState) Exit(c *Controller, next StateID) {
	c.stopProbe()
	c.actions.Clear()
}
