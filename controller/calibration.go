/*
DESCRIPTION
  calibration.go runs the enlarger calibration procedure on behalf of
  the menu system, handing it exclusive ownership of the actuator and
  the meter probe and wiring its cancellation to the cancel key.

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
	"github.com/opendarkroom/printimer/calibrate"
	"github.com/opendarkroom/printimer/profile"
)

// RunCalibration derives a fresh enlarger profile from the live lamp
// and probe. It blocks for the duration of the procedure; the cancel
// key aborts it. On success the caller decides whether and where to
// save the profile.
func (c *Controller) RunCalibration() (*calibrate.Result, error) {
	// The probe changes owner: live metering stops for the duration.
	c.stopFocus()
	c.stopProbe()
	c.illum.SetState(SafelightExposure)
	defer c.illum.SetState(SafelightHome)

	proc := calibrate.New(c.act, c.probe, c.clk, c.l)
	proc.SetCancelCheck(func() bool {
		ev, err := c.actions.kp.WaitEvent(0)
		return err == nil && ev.Key == KeyCancel && !ev.Pressed
	})

	res, err := proc.Run()
	if err != nil {
		c.l.Warning("calibration did not complete", "error", err.Error())
		return nil, err
	}

	c.l.Info("calibration complete",
		"onDelay", res.Profile.TurnOnDelay,
		"rise", res.Profile.RiseTime,
		"offDelay", res.Profile.TurnOffDelay,
		"fall", res.Profile.FallTime)
	return res, nil
}

// SaveCalibration stores a calibration result as the enlarger profile
// at the given index, or appends it when index equals the saved
// count, and refreshes the minimum exposure.
func (c *Controller) SaveCalibration(res *calibrate.Result, index int, name string) error {
	p := res.Profile
	p.Name = name
	if !p.IsValid() {
		return profile.ErrInvalidProfile
	}
	err := c.store.SetEnlargerConfig(index, &p)
	if err != nil {
		return err
	}
	c.refreshMinExposure()
	return nil
}
