/*
DESCRIPTION
  state_timer.go provides the timer state: it builds the exposure plan
  from the current settings, configures the execution engine for each
  segment, and delegates control to the engine until it reports done
  or the user cancels.

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

import (
	"github.com/opendarkroom/printimer/display"
	"github.com/opendarkroom/printimer/engine"
	"github.com/opendarkroom/printimer/exposure"
)

type timerState struct{}

func (s *timerState) Entry(c *Controller, prev StateID, param uint32) {
	// An exposure must never start with the focus lamp lit.
	c.stopFocus()
	c.actions.Clear()
}

func (s *timerState) Process(c *Controller) StateID {
	plan, err := exposure.BuildPlan(c.exp)
	if err != nil {
		c.l.Error("could not build exposure plan", "error", err.Error())
		c.disp.DrawMessage("Invalid Exposure", err.Error())
		return StateHome
	}

	for i, seg := range plan.Segments {
		if i > 0 {
			// Burn and dodge segments wait for the printer to place
			// the card before continuing.
			if !s.waitForSegment(c) {
				return StateHome
			}
		}

		err = s.runSegment(c, seg, i == len(plan.Segments)-1)
		if err != nil {
			if err == engine.ErrCancelled {
				c.l.Info("exposure cancelled", "segment", i)
			} else {
				c.l.Error("exposure failed", "segment", i, "error", err.Error())
				c.disp.DrawMessage("Invalid Exposure", err.Error())
			}
			return StateHome
		}
	}
	return StateHome
}

func (s *timerState) Exit(c *Controller, next StateID) {}

// waitForSegment blocks until the user confirms the next burn/dodge
// segment with start, or aborts with cancel.
func (s *timerState) waitForSegment(c *Controller) bool {
	c.actions.Clear()
	c.actions.AddSingle(KeyStart, actionStart, ActionNone, false)
	c.actions.AddSingle(KeyFootswitch, actionStart, ActionNone, false)
	c.actions.AddSingle(KeyCancel, actionCancel, ActionNone, false)
	defer c.actions.Clear()

	for {
		action, err := c.actions.Wait(-1)
		if err != nil {
			continue
		}
		switch action.ID {
		case actionStart:
			return true
		case actionCancel:
			return false
		}
	}
}

// runSegment configures and runs the engine for one plan segment.
func (s *timerState) runSegment(c *Controller, seg exposure.Segment, last bool) error {
	elements := display.TimerFromMs(seg.EffectiveMs)

	var cfg engine.Config
	cfg.EndTone = engine.EndToneShort
	if last {
		cfg.EndTone = engine.EndToneRegular
	}
	cfg.Rate = callbackRate(elements.FractionDigits)
	cfg.Grade = seg.Grade
	if c.exp.Mode() == exposure.ModePrintingColor {
		cfg.Channels = seg.Channels
		cfg.UseChannels = true
	}
	cfg.Volume = c.store.BuzzerVolume()
	cfg.SafelightOffDelay = c.store.SafelightOffDelay()
	cfg.SetTime(seg.EffectiveMs, c.store.DefaultEnlarger(), c.l)

	c.eng.SetConfig(cfg, func(state engine.State, remainingMs uint32) bool {
		prev := elements
		if remainingMs != ^uint32(0) {
			display.UpdateTimer(&elements, remainingMs)
		}
		c.disp.DrawExposureTimer(elements, prev)

		// Poll for cancel without blocking the run loop.
		ev, err := c.actions.kp.WaitEvent(0)
		if err == nil && ev.Key == KeyCancel && !ev.Pressed {
			c.l.Info("cancelling exposure timer", "remainingMs", remainingMs)
			return false
		}
		return true
	})

	c.l.Info("starting exposure timer", "exposureMs", seg.EffectiveMs)
	c.disp.DrawExposureTimer(elements, display.TimerElements{})
	return c.eng.Run()
}

// callbackRate matches the progress rate to the displayed resolution.
func callbackRate(fractionDigits uint8) engine.Rate {
	switch fractionDigits {
	case 2:
		return engine.Rate10Ms
	case 1:
		return engine.Rate100Ms
	default:
		return engine.Rate1Sec
	}
}
