/*
DESCRIPTION
  state_adjust.go provides the adjustment states: editing a single
  burn/dodge entry, navigating the adjustment list, fine encoder-based
  adjustment of the stops value, and dialling an absolute time, each
  previewed against the tone graph.

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
	"github.com/opendarkroom/printimer/display"
	"github.com/opendarkroom/printimer/exposure"
	"github.com/opendarkroom/printimer/profile"
)

// editAdjustmentState edits one burn/dodge entry. The entry index
// arrives as the state parameter; an index equal to the current count
// creates a new entry.
type editAdjustmentState struct {
	index   int
	working exposure.BurnDodge
}

func (s *editAdjustmentState) Entry(c *Controller, prev StateID, param uint32) {
	s.index = int(param)
	entry, err := c.exp.BurnDodgeGet(s.index)
	if err != nil {
		entry = exposure.BurnDodge{
			Numerator:   int8(c.exp.Increment()),
			Denominator: 12,
			Grade:       profile.GradeNone,
		}
	}
	s.working = entry

	c.actions.Clear()
	c.actions.AddSingle(KeyIncExposure, actionIncExposure, ActionNone, true)
	c.actions.AddSingle(KeyDecExposure, actionDecExposure, ActionNone, true)
	c.actions.AddSingle(KeyIncContrast, actionIncContrast, ActionNone, true)
	c.actions.AddSingle(KeyDecContrast, actionDecContrast, ActionNone, true)
	c.actions.AddSingle(KeyStart, actionAccept, ActionNone, false)
	c.actions.AddSingle(KeyCancel, actionCancel, ActionNone, false)
}

func (s *editAdjustmentState) Process(c *Controller) StateID {
	s.draw(c)

	action, err := c.actions.Wait(-1)
	if err != nil {
		return StateEditAdjustment
	}

	step := int8(c.exp.Increment())
	switch action.ID {
	case actionIncExposure:
		s.adjustNumerator(step)
	case actionDecExposure:
		s.adjustNumerator(-step)
	case actionIncContrast:
		s.working.Grade = nextOverrideGrade(s.working.Grade)
	case actionDecContrast:
		s.working.Grade = prevOverrideGrade(s.working.Grade)
	case actionAccept:
		err = c.exp.BurnDodgeSet(s.working, s.index)
		if err != nil {
			c.l.Warning("rejecting burn/dodge entry", "error", err.Error())
			c.disp.DrawMessage("Adjustment", err.Error())
			return StateEditAdjustment
		}
		return StateListAdjustments
	case actionCancel:
		return StateListAdjustments
	}
	return StateEditAdjustment
}

func (s *editAdjustmentState) Exit(c *Controller, next StateID) {
	c.actions.Clear()
}

func (s *editAdjustmentState) adjustNumerator(step int8) {
	limit := int16(s.working.Denominator) * exposure.MaxBurnDodge
	n := int16(s.working.Numerator) + int16(step)
	if n > limit {
		n = limit
	}
	if n < -limit {
		n = -limit
	}
	// Only the first entry may dodge.
	if s.index != 0 && n < 0 {
		n = 0
	}
	s.working.Numerator = int8(n)
}

func (s *editAdjustmentState) draw(c *Controller) {
	grade := "="
	if s.working.Grade != profile.GradeNone {
		grade = s.working.Grade.String()
	}
	c.disp.DrawAdjustment(display.AdjustmentElements{
		Numerator:   s.working.Numerator,
		Denominator: s.working.Denominator,
		Grade:       grade,
		ToneGraph:   c.exp.BurnDodgeToneGraph(s.working).Bits(),
	})
}

// nextOverrideGrade cycles inherit -> 00 -> ... -> 5 -> inherit.
func nextOverrideGrade(g profile.ContrastGrade) profile.ContrastGrade {
	if g == profile.GradeNone {
		return profile.Grade00
	}
	if g >= profile.Grade5 {
		return profile.GradeNone
	}
	return g + 1
}

func prevOverrideGrade(g profile.ContrastGrade) profile.ContrastGrade {
	if g == profile.GradeNone {
		return profile.Grade5
	}
	if g == profile.Grade00 {
		return profile.GradeNone
	}
	return g - 1
}

// listAdjustmentsState navigates the burn/dodge list.
type listAdjustmentsState struct {
	cursor int
}

func (s *listAdjustmentsState) Entry(c *Controller, prev StateID, param uint32) {
	if s.cursor > c.exp.BurnDodgeCount() {
		s.cursor = c.exp.BurnDodgeCount()
	}

	c.actions.Clear()
	c.actions.AddSingle(KeyIncExposure, actionIncExposure, ActionNone, true)
	c.actions.AddSingle(KeyDecExposure, actionDecExposure, ActionNone, true)
	c.actions.AddSingle(KeyStart, actionAccept, ActionNone, false)
	c.actions.AddSingle(KeyMenu, actionMenu, ActionNone, false)
	c.actions.AddSingle(KeyCancel, actionCancel, actionListAdjustments, false)
}

func (s *listAdjustmentsState) Process(c *Controller) StateID {
	s.draw(c)

	action, err := c.actions.Wait(-1)
	if err != nil {
		return StateListAdjustments
	}

	count := c.exp.BurnDodgeCount()
	switch action.ID {
	case actionIncExposure:
		// The cursor may sit one past the end, on the "add" slot.
		if s.cursor < count {
			s.cursor++
		}
	case actionDecExposure:
		if s.cursor > 0 {
			s.cursor--
		}
	case actionAccept:
		c.setNextParam(uint32(s.cursor))
		return StateEditAdjustment
	case actionMenu:
		if s.cursor < count {
			err = c.exp.BurnDodgeDelete(s.cursor)
			if err != nil {
				c.l.Warning("could not delete burn/dodge entry", "error", err.Error())
			}
		}
	case actionListAdjustments:
		// Long-press cancel clears the whole list.
		c.exp.BurnDodgeDeleteAll()
		s.cursor = 0
	case actionCancel:
		return StateHome
	}
	return StateListAdjustments
}

func (s *listAdjustmentsState) Exit(c *Controller, next StateID) {
	c.actions.Clear()
}

func (s *listAdjustmentsState) draw(c *Controller) {
	// The list screen shows the entry under the cursor with its tone
	// contribution, or the base graph on the add slot.
	entry, err := c.exp.BurnDodgeGet(s.cursor)
	if err != nil {
		c.disp.DrawExposureAdj(c.exp.BurnDodgeCount(), c.exp.ToneGraph().Bits())
		return
	}
	c.disp.DrawAdjustment(display.AdjustmentElements{
		Numerator:   entry.Numerator,
		Denominator: entry.Denominator,
		Grade:       entry.Grade.String(),
		ToneGraph:   c.exp.BurnDodgeToneGraph(entry).Bits(),
	})
}

// adjustFineState adjusts the stops value in twelfths from the
// encoder, previewing the shifted tone graph.
type adjustFineState struct {
	working int
}

func (s *adjustFineState) Entry(c *Controller, prev StateID, param uint32) {
	s.working = 0

	c.actions.Clear()
	c.actions.AddEncoder(actionEncoderCCW, actionEncoderCW)
	c.actions.AddSingle(KeyStart, actionAccept, ActionNone, false)
	c.actions.AddSingle(KeyCancel, actionCancel, ActionNone, false)
}

func (s *adjustFineState) Process(c *Controller) StateID {
	c.disp.DrawExposureAdj(s.working, c.exp.AdjustedToneGraph(s.working).Bits())

	action, err := c.actions.Wait(-1)
	if err != nil {
		return StateAdjustFine
	}

	switch action.ID {
	case actionEncoderCW:
		s.working += int(max8(action.Count, 1))
	case actionEncoderCCW:
		s.working -= int(max8(action.Count, 1))
	case actionAccept:
		c.exp.AdjSet(c.exp.Adjustment() + s.working)
		return StateHome
	case actionCancel:
		return StateHome
	}

	if s.working+c.exp.Adjustment() > c.exp.AdjMax() {
		s.working = c.exp.AdjMax() - c.exp.Adjustment()
	}
	if s.working+c.exp.Adjustment() < c.exp.AdjMin() {
		s.working = c.exp.AdjMin() - c.exp.Adjustment()
	}
	return StateAdjustFine
}

func (s *adjustFineState) Exit(c *Controller, next StateID) {
	c.actions.Clear()
}

func max8(v, floor uint8) uint8 {
	if v < floor {
		return floor
	}
	return v
}

// adjustAbsoluteState dials an absolute exposure time in 10 ms steps,
// previewing the absolute tone graph.
type adjustAbsoluteState struct {
	workingMs uint32
}

func (s *adjustAbsoluteState) Entry(c *Controller, prev StateID, param uint32) {
	s.workingMs = exposure.RoundedTimeMs(c.exp.ExposureTime())

	c.actions.Clear()
	c.actions.AddSingle(KeyIncExposure, actionIncExposure, ActionNone, true)
	c.actions.AddSingle(KeyDecExposure, actionDecExposure, ActionNone, true)
	c.actions.AddEncoder(actionEncoderCCW, actionEncoderCW)
	c.actions.AddSingle(KeyStart, actionAccept, ActionNone, false)
	c.actions.AddSingle(KeyCancel, actionCancel, ActionNone, false)
}

func (s *adjustAbsoluteState) Process(c *Controller) StateID {
	c.disp.DrawTimerAdj(display.TimerFromMs(s.workingMs),
		c.exp.AbsoluteToneGraph(float64(s.workingMs)/1000.0).Bits())

	action, err := c.actions.Wait(-1)
	if err != nil {
		return StateAdjustAbsolute
	}

	switch action.ID {
	case actionIncExposure:
		s.step(1000)
	case actionDecExposure:
		s.step(-1000)
	case actionEncoderCW:
		s.step(int32(max8(action.Count, 1)) * 10)
	case actionEncoderCCW:
		s.step(-int32(max8(action.Count, 1)) * 10)
	case actionAccept:
		c.exp.SetBaseTime(float64(s.workingMs) / 1000.0)
		c.exp.AdjSet(0)
		return StateHome
	case actionCancel:
		return StateHome
	}
	return StateAdjustAbsolute
}

func (s *adjustAbsoluteState) Exit(c *Controller, next StateID) {
	c.actions.Clear()
}

func (s *adjustAbsoluteState) step(deltaMs int32) {
	v := int64(s.workingMs) + int64(deltaMs)
	if v < 10 {
		v = 10
	}
	if v > 999000 {
		v = 999000
	}
	s.workingMs = uint32(v)
}
