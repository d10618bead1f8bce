/*
DESCRIPTION
  state_home.go provides the home state, the hub the other states
  radiate from, plus the small change-increment and change-mode states
  and the menu hook state.

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

package controller

import (
	"math"

	"github.com/opendarkroom/printimer/display"
	"github.com/opendarkroom/printimer/exposure"
	"github.com/opendarkroom/printimer/profile"
)

// homePollMs bounds the home event wait so live metering and overlay
// expiry keep moving while idle.
const homePollMs = 100

type homeState struct{}

func (s *homeState) Entry(c *Controller, prev StateID, param uint32) {
	c.actions.Clear()
	c.actions.AddSingle(KeyIncExposure, actionIncExposure, ActionNone, true)
	c.actions.AddSingle(KeyDecExposure, actionDecExposure, actionAdjustAbsolute, true)
	c.actions.AddSingle(KeyIncContrast, actionIncContrast, actionListAdjustments, true)
	c.actions.AddSingle(KeyDecContrast, actionDecContrast, ActionNone, true)
	c.actions.AddSingle(KeyStart, actionStart, actionTestStrip, false)
	c.actions.AddSingle(KeyFootswitch, actionStart, ActionNone, false)
	c.actions.AddSingle(KeyFocus, actionFocus, ActionNone, false)
	c.actions.AddSingle(KeyMenu, actionMenu, actionChangeMode, false)
	c.actions.AddSingle(KeyCancel, actionCancel, ActionNone, false)
	c.actions.AddSingle(KeyMeterProbe, actionMeterProbe, ActionNone, false)
	c.actions.AddSingle(KeyBlackout, actionBlackout, ActionNone, false)
	c.actions.AddCombo(KeyIncExposure, KeyDecExposure, actionChangeIncrement)
	c.actions.AddEncoder(actionEncoderCCW, actionEncoderCW)
}

func (s *homeState) Process(c *Controller) StateID {
	s.draw(c)

	action, err := c.actions.Wait(homePollMs)
	if err != nil {
		c.pollLiveReading()
		return StateHome
	}

	switch action.ID {
	case actionIncExposure:
		c.exp.AdjIncrease()
	case actionDecExposure:
		c.exp.AdjDecrease()
	case actionIncContrast:
		c.exp.ContrastIncrease()
	case actionDecContrast:
		c.exp.ContrastDecrease()
	case actionStart:
		if c.exp.Mode() == exposure.ModeDensitometer {
			return StateDensitometer
		}
		return StateTimer
	case actionTestStrip:
		return StateTestStrip
	case actionFocus:
		return StateFocus
	case actionMenu:
		return StateMenu
	case actionChangeMode:
		return StateChangeMode
	case actionChangeIncrement:
		return StateChangeTimeIncrement
	case actionListAdjustments:
		return StateListAdjustments
	case actionAdjustAbsolute:
		return StateAdjustAbsolute
	case actionEncoderCW, actionEncoderCCW:
		return StateAdjustFine
	case actionMeterProbe:
		if c.exp.Mode() == exposure.ModeDensitometer {
			return StateDensitometer
		}
		c.startProbe()
		c.takeMeterReading()
	case actionBlackout:
		c.illum.Blackout(!c.illum.IsBlackout())
	case actionCancel:
		c.exp.ClearMeterReadings()
		c.resetExposureDefaults()
	}
	return StateHome
}

func (s *homeState) Exit(c *Controller, next StateID) {
	c.actions.Clear()
}

func (s *homeState) draw(c *Controller) {
	switch c.exp.Mode() {
	case exposure.ModeDensitometer:
		c.disp.DrawMainDensitometer(densitometerElements(c.exp))
	case exposure.ModeCalibration:
		c.disp.DrawMainCalibration(calibrationElements(c.exp))
	default:
		c.disp.DrawMainPrinting(mainPrintingElements(c))
	}
}

// mainPrintingElements converts the exposure state into the main
// printing screen.
func mainPrintingElements(c *Controller) display.MainPrintingElements {
	var e display.MainPrintingElements

	exp := c.exp
	if exp.Mode() == exposure.ModePrintingColor {
		e.Type = display.PrintingColor
		e.Channels = exp.Channels()
		e.ChannelWide = exp.ChannelWide()
	} else {
		e.Type = display.PrintingBW
		e.ToneGraph = exp.ToneGraph().Bits()
		e.ToneGraphOverlay = c.overlay().Bits()
		if idx := exp.ActivePaperProfileIndex(); idx >= 0 {
			e.PaperProfileNum = idx + 1
		}
		e.ContrastGrade = exp.ContrastGrade().String()
		e.ContrastNote = contrastNote(c, exp.ContrastGrade())
	}
	e.BurnDodgeCount = exp.BurnDodgeCount()

	t := exp.ExposureTime()
	e.Time = display.TimerFromMs(exposure.RoundedTimeMs(t))

	min := exp.MinExposureTime()
	switch {
	case min > 0 && t < min:
		e.TimeIcon = display.TimeIconInvalid
	case exp.Mode() == exposure.ModePrintingColor:
		e.TimeIcon = display.TimeIconNormal
	default:
		e.TimeIcon = display.TimeIconNone
	}
	return e
}

// contrastNote annotates the grade with the filter designation, or
// nothing for dimmable heads where the grade is dialled in.
func contrastNote(c *Controller, g profile.ContrastGrade) string {
	p := c.store.DefaultEnlarger()
	if p == nil || p.DimmableHead() {
		return ""
	}
	return p.ContrastFilter.String()
}

func densitometerElements(exp *exposure.State) display.DensitometerElements {
	d := exp.RelativeDensity()
	if math.IsNaN(d) {
		return display.DensitometerElements{
			Whole:          ^uint32(0),
			Fractional:     ^uint32(0),
			FractionDigits: ^uint8(0),
		}
	}
	whole, frac := math.Modf(d)
	return display.DensitometerElements{
		Whole:          uint32(whole),
		Fractional:     exposure.RoundToTen(uint32(math.Round(frac * 1000))),
		FractionDigits: 2,
	}
}

func calibrationElements(exp *exposure.State) display.CalibrationElements {
	t := exp.ExposureTime()
	min := exp.MinExposureTime()
	return display.CalibrationElements{
		Title1:       "Print",
		Title2:       "Exposure",
		Value:        exp.CalibrationPEV(),
		Time:         display.TimerFromMs(exposure.RoundedTimeMs(t)),
		TimeTooShort: min > 0 && t < min,
	}
}

type changeIncrementState struct{}

func (s *changeIncrementState) Entry(c *Controller, prev StateID, param uint32) {
	c.actions.Clear()
	c.actions.AddSingle(KeyIncExposure, actionIncExposure, ActionNone, true)
	c.actions.AddSingle(KeyDecExposure, actionDecExposure, ActionNone, true)
	c.actions.AddSingle(KeyCancel, actionCancel, ActionNone, false)
}

func (s *changeIncrementState) Process(c *Controller) StateID {
	c.disp.DrawStopIncrement(c.exp.Increment().Denominator())

	action, err := c.actions.Wait(-1)
	if err != nil {
		return StateChangeTimeIncrement
	}
	switch action.ID {
	case actionIncExposure:
		c.exp.IncrementIncrease()
	case actionDecExposure:
		c.exp.IncrementDecrease()
	case actionCancel:
		return StateHome
	}
	return StateChangeTimeIncrement
}

func (s *changeIncrementState) Exit(c *Controller, next StateID) {
	c.actions.Clear()
}

type changeModeState struct{}

func (s *changeModeState) Entry(c *Controller, prev StateID, param uint32) {
	c.actions.Clear()
	c.actions.AddSingle(KeyIncExposure, actionIncExposure, ActionNone, true)
	c.actions.AddSingle(KeyDecExposure, actionDecExposure, ActionNone, true)
	c.actions.AddSingle(KeyStart, actionAccept, ActionNone, false)
	c.actions.AddSingle(KeyCancel, actionCancel, ActionNone, false)
}

func (s *changeModeState) Process(c *Controller) StateID {
	c.disp.DrawModeText(c.exp.Mode().String())

	action, err := c.actions.Wait(-1)
	if err != nil {
		return StateChangeMode
	}
	switch action.ID {
	case actionIncExposure:
		c.exp.SetMode(nextMode(c.exp.Mode()))
	case actionDecExposure:
		c.exp.SetMode(prevMode(c.exp.Mode()))
	case actionAccept, actionCancel:
		return StateHome
	}
	return StateChangeMode
}

func (s *changeModeState) Exit(c *Controller, next StateID) {
	c.actions.Clear()
}

func nextMode(m exposure.Mode) exposure.Mode {
	switch m {
	case exposure.ModePrintingBW:
		return exposure.ModePrintingColor
	case exposure.ModePrintingColor:
		return exposure.ModeDensitometer
	case exposure.ModeDensitometer:
		return exposure.ModeCalibration
	}
	return exposure.ModePrintingBW
}

func prevMode(m exposure.Mode) exposure.Mode {
	switch m {
	case exposure.ModePrintingColor:
		return exposure.ModePrintingBW
	case exposure.ModeDensitometer:
		return exposure.ModePrintingColor
	case exposure.ModeCalibration:
		return exposure.ModeDensitometer
	}
	return exposure.ModeCalibration
}

type menuState struct{}

func (s *menuState) Entry(c *Controller, prev StateID, param uint32) {}

func (s *menuState) Process(c *Controller) StateID {
	if c.menu != nil {
		c.menu(c)
		// The menu system may have edited profiles or defaults.
		c.activatePaperProfile()
		c.refreshMinExposure()
	}
	return StateHome
}

func (s *menuState) Exit(c *Controller, next StateID) {}
