/*
DESCRIPTION
  state_test_strip.go provides the test strip sequencer: a series of
  patch exposures in either separate or incremental semantics, with
  the covered-patch mask tracked for display and the engine driven
  once per patch.

AUTHORS
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
	"fmt"

	"github.com/opendarkroom/printimer/config"
	"github.com/opendarkroom/printimer/display"
	"github.com/opendarkroom/printimer/engine"
	"github.com/opendarkroom/printimer/exposure"
)

type testStripState struct {
	covered  uint
	patchMin int
	count    uint
	mode     config.TestStripMode
}

func (s *testStripState) Entry(c *Controller, prev StateID, param uint32) {
	c.stopFocus()

	patches := c.store.TestStripPatches()
	s.patchMin = patches.PatchMin()
	s.count = uint(patches.Count())
	s.mode = c.store.TestStripMode()
	s.covered = 0

	c.actions.Clear()
	c.actions.AddSingle(KeyStart, actionStart, ActionNone, true)
	c.actions.AddSingle(KeyFootswitch, actionStart, ActionNone, true)
	c.actions.AddSingle(KeyCancel, actionCancel, ActionNone, false)
}

func (s *testStripState) Process(c *Controller) StateID {
	patchTime := s.patchTime(c)
	patchMs := exposure.RoundedTimeMs(patchTime)

	s.draw(c, patchMs)

	action, err := c.actions.Wait(-1)
	if err != nil {
		return StateTestStrip
	}

	switch action.ID {
	case actionStart:
		if s.covered == 0 {
			c.illum.SetState(SafelightExposure)
			c.clk.Sleep(c.store.SafelightOffDelay())
		}
		last := s.covered == s.count-1
		if !s.runPatch(c, patchMs, last) {
			return StateHome
		}
		s.covered++
		if s.covered >= s.count {
			c.clk.Sleep(500)
			return StateHome
		}
	case actionCancel:
		return StateHome
	}
	return StateTestStrip
}

func (s *testStripState) Exit(c *Controller, next StateID) {
	c.illum.SetState(SafelightHome)
	c.actions.Clear()
}

// patchTime returns the next exposure time under the configured strip
// semantics.
func (s *testStripState) patchTime(c *Controller) float64 {
	if s.mode == config.TestStripSeparate {
		return c.exp.TestStripTimeComplete(s.patchMin + int(s.covered))
	}
	return c.exp.TestStripTimeIncremental(s.patchMin, s.covered)
}

// coveredMask returns the covered-patch bitmask, MSB-first across the
// strip.
func (s *testStripState) coveredMask() uint8 {
	if s.mode == config.TestStripSeparate {
		// Everything covered except the patch being exposed.
		mask := uint8(0xFF)
		mask ^= 1 << (s.count - s.covered - 1)
		return mask
	}
	// Patches already exposed are covered as the card moves across.
	var mask uint8
	for i := uint(0); i < s.covered; i++ {
		mask |= 1 << (s.count - i - 1)
	}
	return mask
}

func (s *testStripState) draw(c *Controller, patchMs uint32) {
	e := display.TestStripElements{
		Title1:         "Test Strip",
		Title2:         stripIncrementTitle(c.exp.Increment()),
		Patches:        int(s.count),
		CoveredPatches: s.coveredMask(),
		Time:           display.TimerFromMs(patchMs),
	}
	c.disp.DrawTestStripElements(e)
}

func stripIncrementTitle(inc exposure.Increment) string {
	den := inc.Denominator()
	if den == 1 {
		return "1 Stop"
	}
	return fmt.Sprintf("1/%d Stop", den)
}

// runPatch drives the engine for one patch. It reports false when the
// user cancelled.
func (s *testStripState) runPatch(c *Controller, patchMs uint32, last bool) bool {
	elements := display.TimerFromMs(patchMs)

	var cfg engine.Config
	cfg.EndTone = engine.EndToneShort
	if last {
		cfg.EndTone = engine.EndToneRegular
	}
	cfg.Rate = callbackRate(elements.FractionDigits)
	cfg.Grade = c.exp.ContrastGrade()
	cfg.Volume = c.store.BuzzerVolume()
	cfg.SafelightOffDelay = c.store.SafelightOffDelay()
	cfg.SetTime(patchMs, c.store.DefaultEnlarger(), c.l)

	c.eng.SetConfig(cfg, func(state engine.State, remainingMs uint32) bool {
		if remainingMs != ^uint32(0) {
			display.UpdateTimer(&elements, remainingMs)
		}
		c.disp.DrawTestStripTimer(elements)

		ev, err := c.actions.kp.WaitEvent(0)
		if err == nil && ev.Key == KeyCancel && !ev.Pressed {
			c.l.Info("cancelling test strip timer", "remainingMs", remainingMs)
			return false
		}
		return true
	})

	c.disp.DrawTestStripTimer(elements)
	err := c.eng.Run()
	if err != nil {
		if err == engine.ErrCancelled {
			c.l.Info("test strip patch cancelled")
		} else {
			c.l.Error("test strip patch failed", "error", err.Error())
		}
		return false
	}
	return true
}
