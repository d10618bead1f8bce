/*
DESCRIPTION
  calibrate.go provides the enlarger-profile calibration procedure:
  with the meter probe as sensor and the lamp under control, it
  measures the light output across a series of simulated exposure
  cycles and derives the timing constants the execution engine
  depends on.

  The sensor polling loop involves a channel read followed by a 5 ms
  delay. The sensor is configured for its shortest integration time,
  and there is no way to synchronise to its exact integration state,
  so this cadence is hopefully sufficient for the data being
  collected.

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

// Package calibrate derives an enlarger profile from live sensor and
// actuator access.
package calibrate

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ausocean/utils/logging"

	"github.com/opendarkroom/printimer/clock"
	"github.com/opendarkroom/printimer/device"
	"github.com/opendarkroom/printimer/device/meter"
	"github.com/opendarkroom/printimer/profile"
)

const pkg = "calibrate: "

// Calibration failure classes surfaced to the UI.
var (
	ErrSensor         = errors.New("calibrate: sensor error")
	ErrZeroReading    = errors.New("calibrate: zero reading on clear channel")
	ErrSaturated      = errors.New("calibrate: sensor saturated")
	ErrReferenceStats = errors.New("calibrate: invalid reference stats")
	ErrTimeout        = errors.New("calibrate: phase timed out")
	ErrCancelled      = errors.New("calibrate: cancelled")
	ErrFail           = errors.New("calibrate: calibration failed")
)

const (
	profileIterations = 5
	referenceReadings = 100

	pollIntervalMs  = 5
	maxPhaseMs      = 10000 // Per-phase watchdog.
	onStabiliseMs   = 5000
	offStabiliseMs  = 2000
	holdMs          = 5000
	gainSettleMs    = 20
	thresholdFloor  = 2
	minRangeGap     = 10
	minMeanGap      = 20
)

// Stats summarises one batch of reference readings.
type Stats struct {
	Mean   float64
	Min    uint16
	Max    uint16
	StdDev float64
}

func readingStats(readings []uint16) Stats {
	xs := make([]float64, len(readings))
	for i, r := range readings {
		xs[i] = float64(r)
	}
	return Stats{
		Mean:   stat.Mean(xs, nil),
		Min:    uint16(floats.Min(xs)),
		Max:    uint16(floats.Max(xs)),
		StdDev: stat.PopStdDev(xs, nil),
	}
}

// Result is a completed calibration: the averaged profile plus the
// reference statistics and lamp colour temperature for display.
type Result struct {
	Profile          profile.Enlarger
	On, Off          Stats
	ColorTemperature uint16
}

// Procedure is one calibration session. It assumes exclusive ownership
// of the actuator and the probe for its duration.
type Procedure struct {
	l     logging.Logger
	act   device.LightActuator
	probe meter.Probe
	clk   clock.Clock

	// Grade is the contrast grade the lamp is driven at while
	// profiling. Relay lamps ignore it; dimmable heads are profiled
	// at a representative grade.
	Grade profile.ContrastGrade

	// cancelled is polled between steps; the UI wires it to the
	// cancel key.
	cancelled func() bool

	sensorRetried bool
}

// New returns a procedure over the given actuator and probe.
func New(act device.LightActuator, probe meter.Probe, clk clock.Clock, l logging.Logger) *Procedure {
	return &Procedure{
		l:     l,
		act:   act,
		probe: probe,
		clk:   clk,
		Grade: profile.Grade2,
	}
}

// SetCancelCheck installs the cancellation poll.
func (p *Procedure) SetCancelCheck(f func() bool) { p.cancelled = f }

// Run executes the calibration and returns the averaged profile. The
// actuator is off and the sensor disabled on return, whatever the
// outcome.
func (p *Procedure) Run() (*Result, error) {
	p.l.Info(pkg + "starting enlarger calibration process")

	// Everything off, in case it is not already.
	p.act.SetOff()

	defer func() {
		p.act.SetOff()
		p.probe.Disable()
	}()

	err := p.initSensor()
	if err != nil {
		p.l.Error(pkg+"could not initialize sensor", "error", err.Error())
		return nil, err
	}

	err = p.delayWithCancel(1000)
	if err != nil {
		return nil, err
	}

	on, off, color, err := p.collectReferenceStats()
	if err != nil {
		p.l.Error(pkg+"could not collect reference stats", "error", err.Error())
		return nil, err
	}

	p.l.Info(pkg+"enlarger on stats", "mean", on.Mean, "min", on.Min, "max", on.Max, "stddev", on.StdDev)
	p.l.Info(pkg+"enlarger off stats", "mean", off.Mean, "min", off.Min, "max", off.Max, "stddev", off.StdDev)
	p.l.Info(pkg+"color temperature stats", "mean", color.Mean)

	err = validateReferenceStats(on, off)
	if err != nil {
		p.l.Warning(pkg + "reference stats are not usable for calibration")
		return nil, err
	}

	err = p.delayWithCancel(1000)
	if err != nil {
		return nil, err
	}

	var sum profile.Enlarger
	for i := 0; i < profileIterations; i++ {
		p.l.Info(pkg+"profile run", "run", i+1)
		inc, err := p.buildProfile(on, off)
		if err != nil {
			p.l.Error(pkg+"could not build profile", "error", err.Error())
			return nil, err
		}
		sum.TurnOnDelay += inc.TurnOnDelay
		sum.RiseTime += inc.RiseTime
		sum.RiseTimeEquiv += inc.RiseTimeEquiv
		sum.TurnOffDelay += inc.TurnOffDelay
		sum.FallTime += inc.FallTime
		sum.FallTimeEquiv += inc.FallTimeEquiv
	}
	p.l.Info(pkg + "profile runs complete")

	result := &Result{
		On:               on,
		Off:              off,
		ColorTemperature: uint16(math.Round(color.Mean)),
	}
	result.Profile = profile.Enlarger{
		TurnOnDelay:      avg(sum.TurnOnDelay),
		RiseTime:         avg(sum.RiseTime),
		RiseTimeEquiv:    avg(sum.RiseTimeEquiv),
		TurnOffDelay:     avg(sum.TurnOffDelay),
		FallTime:         avg(sum.FallTime),
		FallTimeEquiv:    avg(sum.FallTimeEquiv),
		ColorTemperature: uint32(math.Round(color.Mean)),
	}

	p.l.Info(pkg+"calibration complete",
		"onDelay", result.Profile.TurnOnDelay,
		"rise", result.Profile.RiseTime, "riseEquiv", result.Profile.RiseTimeEquiv,
		"offDelay", result.Profile.TurnOffDelay,
		"fall", result.Profile.FallTime, "fallEquiv", result.Profile.FallTimeEquiv,
		"colorTemp", result.ColorTemperature)

	return result, nil
}

func avg(sum uint32) uint32 {
	return uint32(math.Round(float64(sum) / profileIterations))
}

// initSensor brings the probe up with deterministic gain and
// integration settings: highest gain, shortest integration. One
// reinitialisation is attempted after a transient failure.
func (p *Procedure) initSensor() error {
	p.l.Info(pkg + "initializing sensor")

	err := p.trySensorSetup()
	if err != nil && !p.sensorRetried {
		p.l.Warning(pkg+"sensor setup failed, reinitializing once", "error", err.Error())
		p.sensorRetried = true
		p.probe.Disable()
		err = p.trySensorSetup()
	}
	if err != nil {
		p.probe.Disable()
		return ErrSensor
	}

	p.l.Info(pkg + "sensor initialized")
	return nil
}

func (p *Procedure) trySensorSetup() error {
	err := p.probe.Enable()
	if err != nil {
		return err
	}
	err = p.probe.SetGain(meter.MaxGain)
	if err != nil {
		return err
	}
	err = p.probe.SetIntegration(meter.ShortestIntegrationMs, 1)
	if err != nil {
		return err
	}

	start := p.clk.Now()
	for {
		valid, err := p.probe.Valid()
		if err != nil {
			return err
		}
		if valid {
			return nil
		}
		if p.clk.Now()-start > maxPhaseMs {
			return ErrTimeout
		}
		p.clk.Sleep(pollIntervalMs)
	}
}

// collectReferenceStats gathers the steady-state statistics for the
// lamp on and off, plus the colour temperature batch, after selecting
// a gain that keeps the lit lamp out of saturation.
func (p *Procedure) collectReferenceStats() (on, off, color Stats, err error) {
	p.l.Info(pkg + "turning enlarger on for baseline reading")
	p.act.SetExposure(p.Grade)

	p.l.Info(pkg + "waiting for light to stabilize")
	err = p.delayWithCancel(onStabiliseMs)
	if err != nil {
		return
	}

	p.l.Info(pkg + "finding appropriate gain setting")
	selected := false
	for gain := meter.MaxGain; ; gain-- {
		err = p.probe.SetGain(gain)
		if err != nil {
			err = ErrSensor
			return
		}
		p.clk.Sleep(gainSettleMs)

		var clear uint16
		clear, err = p.probe.ClearChannel()
		if err != nil {
			err = ErrSensor
			return
		}
		if clear == 0 {
			p.l.Warning(pkg + "no reading on clear channel")
			err = ErrZeroReading
			return
		}
		var ct uint16
		ct, err = p.probe.ColorTemperature()
		if err != nil {
			err = ErrSensor
			return
		}
		if ct > 0 {
			p.l.Info(pkg+"selected gain", "gain", gain.String())
			selected = true
			break
		}
		if gain == meter.Gain1X {
			break
		}
	}
	if !selected {
		p.l.Warning(pkg + "no gain setting with a valid unsaturated reading")
		err = ErrSaturated
		return
	}

	readings := make([]uint16, referenceReadings)
	colors := make([]uint16, referenceReadings)

	p.l.Info(pkg + "collecting data with enlarger on")
	for i := range readings {
		readings[i], err = p.probe.ClearChannel()
		if err != nil {
			err = ErrSensor
			return
		}
		colors[i], err = p.probe.ColorTemperature()
		if err != nil {
			err = ErrSensor
			return
		}
		p.clk.Sleep(pollIntervalMs)
	}
	p.act.SetOff()

	on = readingStats(readings)
	color = readingStats(colors)

	p.l.Info(pkg + "waiting for light to stabilize")
	err = p.delayWithCancel(offStabiliseMs)
	if err != nil {
		return
	}

	p.l.Info(pkg + "collecting data with enlarger off")
	for i := range readings {
		readings[i], err = p.probe.ClearChannel()
		if err != nil {
			err = ErrSensor
			return
		}
		p.clk.Sleep(pollIntervalMs)
	}
	off = readingStats(readings)
	return
}

// validateReferenceStats rejects sessions where the lamp did not
// light, is too dim, or the probe is mis-positioned.
func validateReferenceStats(on, off Stats) error {
	if on.Min <= off.Max {
		return ErrReferenceStats
	}
	if float64(on.Min)-float64(off.Max) < minRangeGap {
		return ErrReferenceStats
	}
	if on.Mean-off.Mean < minMeanGap {
		return ErrReferenceStats
	}
	return nil
}

// buildProfile measures one simulated exposure cycle: turn-on delay
// and rise on the way up, a steady hold, then turn-off delay and fall
// on the way down, with the rise and fall integrated to derive their
// full-output equivalents.
func (p *Procedure) buildProfile(on, off Stats) (*profile.Enlarger, error) {
	risingThreshold := off.Max
	if risingThreshold < thresholdFloor {
		risingThreshold = thresholdFloor
	}
	fallingThreshold := uint16(math.Round(off.Mean + off.StdDev))
	if fallingThreshold < thresholdFloor {
		fallingThreshold = thresholdFloor
	}

	p.l.Info(pkg + "collecting profile data")

	timeRelayOn := p.clk.Now()
	p.act.SetExposure(p.Grade)
	err := p.pollUntil(timeRelayOn, func(clear uint16) bool {
		return clear > risingThreshold
	}, nil)
	if err != nil {
		return nil, err
	}

	riseTarget := uint16(math.Round(on.Mean - on.StdDev))
	var integratedRise, riseCounts uint32
	timeRiseStart := p.clk.Now()
	err = p.pollUntil(timeRiseStart, func(clear uint16) bool {
		return clear >= riseTarget
	}, func(clear uint16) {
		integratedRise += uint32(clear)
		riseCounts++
	})
	if err != nil {
		return nil, err
	}
	timeRiseEnd := p.clk.Now()

	err = p.delayWithCancel(holdMs)
	if err != nil {
		return nil, err
	}

	timeRelayOff := p.clk.Now()
	p.act.SetOff()
	err = p.pollUntil(timeRelayOff, func(clear uint16) bool {
		return clear < on.Min
	}, nil)
	if err != nil {
		return nil, err
	}

	var integratedFall, fallCounts uint32
	timeFallStart := p.clk.Now()
	err = p.pollUntil(timeFallStart, func(clear uint16) bool {
		return clear < fallingThreshold
	}, func(clear uint16) {
		integratedFall += uint32(clear)
		fallCounts++
	})
	if err != nil {
		return nil, err
	}
	timeFallEnd := p.clk.Now()

	err = p.delayWithCancel(holdMs)
	if err != nil {
		return nil, err
	}

	prof := &profile.Enlarger{
		TurnOnDelay:  timeRiseStart - timeRelayOn,
		RiseTime:     timeRiseEnd - timeRiseStart,
		TurnOffDelay: timeFallStart - timeRelayOff,
		FallTime:     timeFallEnd - timeFallStart,
	}

	riseScale := float64(integratedRise) / (on.Mean * float64(riseCounts))
	prof.RiseTimeEquiv = uint32(math.Round(float64(prof.RiseTime) * riseScale))

	fallScale := float64(integratedFall) / (on.Mean * float64(fallCounts))
	prof.FallTimeEquiv = uint32(math.Round(float64(prof.FallTime) * fallScale))

	p.l.Info(pkg+"profile cycle measured",
		"onDelay", prof.TurnOnDelay,
		"rise", prof.RiseTime, "riseEquiv", prof.RiseTimeEquiv,
		"offDelay", prof.TurnOffDelay,
		"fall", prof.FallTime, "fallEquiv", prof.FallTimeEquiv)

	return prof, nil
}

// pollUntil reads the clear channel at the 5 ms cadence until done
// reports true, feeding every sample to integrate when provided. The
// phase is bounded by the 10 s watchdog.
func (p *Procedure) pollUntil(phaseStart uint32, done func(uint16) bool, integrate func(uint16)) error {
	mark := phaseStart
	for {
		clear, err := p.probe.ClearChannel()
		if err != nil {
			return ErrSensor
		}
		if integrate != nil {
			integrate(clear)
		}
		if done(clear) {
			return nil
		}

		mark += pollIntervalMs
		p.clk.SleepUntil(mark)
		if mark-phaseStart > maxPhaseMs {
			return ErrTimeout
		}
	}
}

// delayWithCancel sleeps in tick-sized steps, polling the cancel
// check.
func (p *Procedure) delayWithCancel(ms uint32) error {
	start := p.clk.Now()
	for p.clk.Now()-start < ms {
		if p.cancelled != nil && p.cancelled() {
			p.l.Warning(pkg + "cancelling enlarger calibration")
			return ErrCancelled
		}
		p.clk.Sleep(clock.TickMs)
	}
	return nil
}
