/*
DESCRIPTION
  engine.go provides the exposure execution engine: the real-time
  timer that drives the light for one exposure, compensating for the
  measured lamp rise and fall so the integrated light on the paper
  matches the requested time. The engine emits progress notifications
  at a configurable rate, owns the buzzer for the duration of the run,
  and supports mid-exposure cancellation.

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

// Package engine drives one print exposure to completion.
package engine

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ausocean/utils/logging"

	"github.com/opendarkroom/printimer/clock"
	"github.com/opendarkroom/printimer/device"
	"github.com/opendarkroom/printimer/device/buzzer"
	"github.com/opendarkroom/printimer/exposure"
	"github.com/opendarkroom/printimer/profile"
)

const pkg = "engine: "

// The longest exposure the engine will accept, in milliseconds.
const MaxExposureMs = 0x100000

var (
	ErrNotConfigured   = errors.New("engine: not configured")
	ErrInvalidExposure = errors.New("engine: invalid exposure")
	ErrRunning         = errors.New("engine: run already in progress")
	ErrCancelled       = errors.New("engine: exposure cancelled")
)

// State is the engine's run state. States advance strictly in order;
// End is observed exactly once per run, even on cancellation, and Done
// is the only terminal state.
type State uint8

const (
	StateNone State = iota
	StateStart
	StateTick
	StateEnd
	StateDone
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "None"
	case StateStart:
		return "Start"
	case StateTick:
		return "Tick"
	case StateEnd:
		return "End"
	case StateDone:
		return "Done"
	}
	return "?"
}

// StartTone selects the cue played before the light comes on.
type StartTone uint8

const (
	StartToneNone StartTone = iota
	StartToneCountdown
)

// EndTone selects the cue played after the exposure completes.
type EndTone uint8

const (
	EndToneNone EndTone = iota
	EndToneShort
	EndToneRegular
)

// Rate is the progress notification rate during Tick.
type Rate uint8

const (
	Rate10Ms Rate = iota
	Rate100Ms
	Rate1Sec
)

// Notification is one progress report: the engine state and the
// remaining visible exposure time.
type Notification struct {
	State       State
	RemainingMs uint32
}

// Callback receives progress notifications on the run loop. Returning
// false requests cancellation. The callback must not block for more
// than one tick or timing drifts.
type Callback func(state State, remainingMs uint32) bool

// Safelight is the engine's view of the illumination controller: the
// transition into the exposure state before the light comes on, and
// back home afterwards.
type Safelight interface {
	Exposure()
	Home()
}

// Config describes one timed exposure.
type Config struct {
	// ExposureTime is the effective exposure duration in ms.
	ExposureTime uint32

	// RelayOnDelay is the delay between activating the light and the
	// start of the visible timer period.
	RelayOnDelay uint32

	// RelayOffDelay is the delay between deactivating the light and
	// the end of the visible timer period.
	RelayOffDelay uint32

	// ExposureEndDelay is the delay between the end of the visible
	// timer period and the completion of the run.
	ExposureEndDelay uint32

	StartTone StartTone
	EndTone   EndTone
	Rate      Rate

	// Grade is the contrast grade for enlargers with contrast
	// control.
	Grade profile.ContrastGrade

	// Channels carries explicit levels for dimmable heads when
	// UseChannels is set, in place of a grade.
	Channels    profile.ChannelValues
	UseChannels bool

	// Volume is the buzzer volume for the run. The previous volume is
	// restored afterwards.
	Volume buzzer.Volume

	// SafelightOffDelay is the settle time between the safelight
	// entering the exposure state and the light being asserted.
	SafelightOffDelay uint32
}

// SetTime fills in the exposure time and delay fields from an enlarger
// profile. A missing or invalid profile yields zero delays, so the run
// times the relay directly.
func (c *Config) SetTime(exposureMs uint32, p *profile.Enlarger, l logging.Logger) {
	if !p.IsValid() {
		l.Info(pkg + "setting defaults for missing or invalid enlarger profile")
		c.ExposureTime = exposureMs
		c.RelayOnDelay = 0
		c.RelayOffDelay = 0
		c.ExposureEndDelay = 0
		return
	}

	// A too-short exposure is flagged, not refused; the user alert
	// happens before this code runs.
	min := p.MinExposure()
	if exposureMs < exposure.RoundToTen(min) {
		l.Error(pkg+"cannot accurately time short exposure",
			"exposureMs", exposureMs, "minMs", min)
	}

	c.ExposureTime = exposureMs
	c.RelayOnDelay = exposure.RoundToTen(p.TurnOnDelay + (p.RiseTime - p.RiseTimeEquiv))
	c.RelayOffDelay = exposure.RoundToTen(p.TurnOffDelay + p.FallTimeEquiv)
	c.ExposureEndDelay = exposure.RoundToTen(p.FallTime - p.FallTimeEquiv)

	l.Debug(pkg+"timer configured", "exposureMs", c.ExposureTime,
		"onDelay", c.RelayOnDelay, "offDelay", c.RelayOffDelay,
		"endDelay", c.ExposureEndDelay)
}

// Engine runs one exposure at a time. The tick entry point does only
// bounded work and communicates with the run loop through a one-slot
// notification channel with overwrite semantics, so a slow consumer
// can never stall the timer.
type Engine struct {
	l    logging.Logger
	act  device.LightActuator
	buzz buzzer.Buzzer
	safe Safelight
	clk  clock.Clock

	cfg Config
	cb  Callback

	mu      sync.Mutex
	running bool

	cancel atomic.Bool
	notify chan Notification

	// Tick-side state. Only the tick entry point touches these while
	// a run is live.
	state            State
	timeElapsed      uint32
	relayActivated   bool
	relayDeactivated bool
	notifyEnd        bool
	donePosted       bool
	buzzStart        uint32
	buzzStop         uint32
	endElapsed       uint32
}

// New returns an engine driving the given actuator, buzzer and
// safelight on the given clock.
func New(act device.LightActuator, buzz buzzer.Buzzer, safe Safelight, clk clock.Clock, l logging.Logger) *Engine {
	return &Engine{
		l:      l,
		act:    act,
		buzz:   buzz,
		safe:   safe,
		clk:    clk,
		notify: make(chan Notification, 1),
	}
}

// SetConfig installs the configuration and callback for the next run.
func (e *Engine) SetConfig(cfg Config, cb Callback) {
	e.cfg = cfg
	e.cb = cb
}

// Cancel requests cancellation of the current run. The request is
// observed at the next tick: the light is turned off immediately, the
// state machine advances to End, and the tail delay still elapses so
// the run terminates deterministically.
func (e *Engine) Cancel() {
	e.cancel.Store(true)
}

// Notifications exposes the engine's notification slot. Only one
// consumer may receive from it; Run is that consumer in normal
// operation.
func (e *Engine) Notifications() <-chan Notification {
	return e.notify
}

// validate applies the hard constraints checked before a run.
func (e *Engine) validate() error {
	if e.cfg.ExposureTime == 0 {
		return ErrNotConfigured
	}
	if e.cfg.ExposureTime > MaxExposureMs {
		e.l.Error(pkg+"exposure time too long", "exposureMs", e.cfg.ExposureTime)
		return ErrInvalidExposure
	}
	if e.cfg.RelayOffDelay >= e.cfg.ExposureTime {
		e.l.Error(pkg+"relay off delay exceeds exposure time",
			"offDelay", e.cfg.RelayOffDelay, "exposureMs", e.cfg.ExposureTime)
		return ErrInvalidExposure
	}
	return nil
}

// reset prepares the tick-side state for a fresh run.
func (e *Engine) reset() {
	e.cancel.Store(false)
	e.state = StateNone
	e.timeElapsed = 0
	e.relayActivated = false
	e.relayDeactivated = false
	e.notifyEnd = false
	e.donePosted = false
	e.buzzStart = 0
	e.buzzStop = 0
	e.endElapsed = 0
	select {
	case <-e.notify:
	default:
	}
}

// Run executes the configured exposure. It blocks until the run
// reaches Done, passing each notification it takes from the slot to
// the configured callback (the slot keeps only the latest one, so a
// slow callback can miss ticks), and returns ErrCancelled if the run
// was cancelled. A
// start while a run is live is a programming error and is refused.
func (e *Engine) Run() error {
	err := e.validate()
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrRunning
	}
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	e.reset()

	prevVolume := e.buzz.Volume()
	prevFreq := e.buzz.Frequency()
	e.buzz.SetVolume(e.cfg.Volume)
	defer func() {
		e.buzz.SetVolume(prevVolume)
		e.buzz.SetFrequency(prevFreq)
	}()

	if e.cfg.StartTone == StartToneCountdown {
		e.countdownCue()
	}

	if e.cancel.Load() {
		e.cancelCue()
		return ErrCancelled
	}

	e.buzz.SetFrequency(buzzer.Freq500Hz)

	e.safe.Exposure()
	e.clk.Sleep(e.cfg.SafelightOffDelay)

	e.l.Info(pkg + "starting exposure timer")
	go e.tickLoop()

	for {
		n := <-e.notify
		if e.cb != nil && !e.cb(n.State, n.RemainingMs) {
			e.l.Info(pkg+"timer cancel requested", "remainingMs", n.RemainingMs)
			e.cancel.Store(true)
		}

		if n.State == StateStart {
			e.l.Info(pkg + "exposure timer started")
		} else if n.State == StateEnd {
			e.l.Info(pkg + "exposure timer ended")
		} else if n.State == StateDone {
			e.l.Info(pkg + "exposure timer process complete")
			break
		}
	}

	e.safe.Home()

	if e.cancel.Load() {
		e.cancelCue()
		return ErrCancelled
	}
	e.endCue()
	e.clk.Sleep(500)
	return nil
}

// countdownCue plays the three-tone start countdown at one second
// spacing, checking for cancellation between tones.
func (e *Engine) countdownCue() {
	for _, hz := range []uint16{buzzer.Freq2000Hz, buzzer.Freq1500Hz, buzzer.Freq500Hz} {
		e.buzz.SetFrequency(hz)
		e.buzz.Start()
		e.clk.Sleep(50)
		e.buzz.Stop()
		e.clk.Sleep(950)
		if e.cancel.Load() {
			return
		}
		if e.cb != nil && !e.cb(StateNone, ^uint32(0)) {
			e.cancel.Store(true)
			return
		}
	}
}

// cancelCue is two short beeps.
func (e *Engine) cancelCue() {
	e.buzz.SetFrequency(buzzer.Freq1000Hz)
	e.buzz.Start()
	e.clk.Sleep(100)
	e.buzz.Stop()
	e.clk.Sleep(100)
	e.buzz.Start()
	e.clk.Sleep(100)
	e.buzz.Stop()
}

// endCue plays the configured completion sequence.
func (e *Engine) endCue() {
	var step uint32
	switch e.cfg.EndTone {
	case EndToneShort:
		step = 50
	case EndToneRegular:
		step = 120
	default:
		return
	}
	e.buzz.SetFrequency(buzzer.Freq1000Hz)
	e.buzz.Start()
	e.clk.Sleep(step)
	e.buzz.SetFrequency(buzzer.Freq2000Hz)
	e.clk.Sleep(step)
	e.buzz.SetFrequency(buzzer.Freq1500Hz)
	e.clk.Sleep(step)
	e.buzz.Stop()
}

// tickLoop drives the tick entry point at the 10 ms period until the
// run completes. It stands in for the hardware timer interrupt.
func (e *Engine) tickLoop() {
	next := e.clk.Now()
	for e.Tick() {
		next += clock.TickMs
		e.clk.SleepUntil(next)
	}
}

// Tick is the timer entry point, invoked every 10 ms for the duration
// of a run. It does only bounded work: advance counters, drive the
// actuator and beeper, and post at most one notification. It returns
// false once the run is complete and no further ticks are needed.
func (e *Engine) Tick() bool {
	if e.cfg.ExposureTime == 0 {
		return false
	}

	cancelFlag := e.cancel.Load()

	// Done was reached on the previous tick; deliver it and stop.
	if e.state == StateDone {
		if !e.donePosted {
			e.donePosted = true
			e.post(Notification{State: StateDone})
		}
		return false
	}

	// The first tick asserts the light; elapsed time counts from it.
	if !e.relayActivated {
		e.assertLight()
		e.relayActivated = true
	} else {
		e.timeElapsed += clock.TickMs
	}

	if e.state == StateNone {
		switch {
		case cancelFlag:
			// A cancel during the pre-visible delay must still turn
			// the light off within one tick; skip straight to End and
			// let the tail delay elapse.
			e.state = StateEnd
			e.endElapsed = e.timeElapsed
		case e.timeElapsed < e.cfg.RelayOnDelay:
			// Nothing further to do until the visible timer starts.
			return true
		default:
			e.state = StateStart

			// Schedule the first beep so the last one lands on the
			// end of the visible timer.
			if e.cfg.ExposureTime%1000 == 0 {
				e.buzzStart = e.timeElapsed + 1000
			} else {
				e.buzzStart = e.timeElapsed + e.cfg.ExposureTime%1000
			}
			e.buzzStop = 0
		}
	}

	offAt := e.cfg.RelayOnDelay + (e.cfg.ExposureTime - e.cfg.RelayOffDelay)
	if !e.relayDeactivated && (e.timeElapsed >= offAt || cancelFlag) {
		e.act.SetOff()
		e.relayDeactivated = true
	}

	if (e.state == StateStart || e.state == StateTick) &&
		(e.timeElapsed >= e.cfg.ExposureTime+e.cfg.RelayOnDelay || cancelFlag) {
		e.state = StateEnd
		e.endElapsed = e.timeElapsed
	}

	// Per-second beep management.
	if e.buzzStart > 0 && e.timeElapsed >= e.buzzStart {
		e.buzz.Start()
		e.buzzStop = e.buzzStart + 40
		if e.state == StateStart || e.state == StateTick {
			e.buzzStart += 1000
		} else {
			e.buzzStart = 0
		}
	} else if e.buzzStop > 0 && e.timeElapsed >= e.buzzStop {
		e.buzz.Stop()
		e.buzzStop = 0
	}

	notifyState := e.state
	var notifyTimer uint32
	switch e.state {
	case StateNone, StateStart:
		notifyTimer = e.cfg.ExposureTime
	case StateTick:
		notifyTimer = e.cfg.ExposureTime - (e.timeElapsed - e.cfg.RelayOnDelay)
	default:
		notifyTimer = 0
	}

	var shouldNotify bool
	switch {
	case e.state == StateTick:
		switch e.cfg.Rate {
		case Rate10Ms:
			shouldNotify = true
		case Rate100Ms:
			shouldNotify = notifyTimer%100 == 0
		default:
			shouldNotify = notifyTimer%1000 == 0
		}
	case e.state == StateEnd:
		shouldNotify = !e.notifyEnd
		e.notifyEnd = true
	default:
		shouldNotify = true
	}

	if shouldNotify {
		e.post(Notification{State: notifyState, RemainingMs: notifyTimer})
	}

	if e.state == StateStart {
		e.state = StateTick
	} else if e.state == StateEnd && e.buzzStop == 0 &&
		e.timeElapsed > e.endElapsed+e.cfg.ExposureEndDelay {
		e.state = StateDone
	}
	return true
}

// assertLight turns the actuator on at the configured output.
func (e *Engine) assertLight() {
	if e.cfg.UseChannels {
		e.act.SetExposureChannels(e.cfg.Channels)
		return
	}
	e.act.SetExposure(e.cfg.Grade)
}

// post places a notification in the slot, overwriting any undelivered
// one. The latest tick always wins; ticks are never queued so the run
// loop cannot fall behind and block the timer.
func (e *Engine) post(n Notification) {
	select {
	case <-e.notify:
	default:
	}
	select {
	case e.notify <- n:
	default:
	}
}
