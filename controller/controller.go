/*
DESCRIPTION
  controller.go provides the state controller: the single-threaded
  event loop that owns the exposure state, reads keypad actions,
  renders the display, and coordinates the top-level states of the
  timer.

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

// Package controller coordinates the timer's top-level states around
// the shared exposure state.
package controller

import (
	"github.com/ausocean/utils/logging"

	"github.com/opendarkroom/printimer/clock"
	"github.com/opendarkroom/printimer/config"
	"github.com/opendarkroom/printimer/device"
	"github.com/opendarkroom/printimer/device/buzzer"
	"github.com/opendarkroom/printimer/device/meter"
	"github.com/opendarkroom/printimer/display"
	"github.com/opendarkroom/printimer/engine"
	"github.com/opendarkroom/printimer/exposure"
)

// StateID identifies a top-level controller state.
type StateID uint8

const (
	StateHome StateID = iota
	StateChangeTimeIncrement
	StateChangeMode
	StateTimer
	StateFocus
	StateTestStrip
	StateEditAdjustment
	StateListAdjustments
	StateAdjustFine
	StateAdjustAbsolute
	StateDensitometer
	StateMenu
	stateCount
)

func (s StateID) String() string {
	names := [...]string{
		"Home", "ChangeTimeIncrement", "ChangeMode", "Timer", "Focus",
		"TestStrip", "EditAdjustment", "ListAdjustments", "AdjustFine",
		"AdjustAbsolute", "Densitometer", "Menu",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "?"
}

// Action identifiers shared by the states.
const (
	actionIncExposure = iota + 1
	actionDecExposure
	actionIncContrast
	actionDecContrast
	actionStart
	actionFocus
	actionMenu
	actionCancel
	actionMeterProbe
	actionBlackout
	actionChangeIncrement
	actionChangeMode
	actionTestStrip
	actionListAdjustments
	actionAdjustAbsolute
	actionEncoderCW
	actionEncoderCCW
	actionAccept
)

// state is the per-state contract: Entry receives the previous state
// and a parameter, Process runs one iteration and names the next
// state, Exit receives the next.
type state interface {
	Entry(c *Controller, prev StateID, param uint32)
	Process(c *Controller) StateID
	Exit(c *Controller, next StateID)
}

// Controller owns the exposure state and runs the state loop. It is
// single threaded: all exposure state mutation and display rendering
// happens here.
type Controller struct {
	l       logging.Logger
	store   *config.Store
	disp    display.Display
	act     device.LightActuator
	probe   meter.Probe
	illum   *Illum
	buzz    buzzer.Buzzer
	clk     clock.Clock
	actions *Actions
	eng     *engine.Engine
	exp     *exposure.State

	// menu is the external menu system hook, invoked from the Menu
	// state.
	menu func(c *Controller)

	states    map[StateID]state
	current   StateID
	nextParam uint32

	// Focus lamp bookkeeping: a wall-clock deadline forces the lamp
	// off if the user walks away.
	focusActive   bool
	focusDeadline uint32

	// Live probe cursor on the tone graph, expiring on wall clock
	// only; a new reading resets it, keypad input does not.
	liveTone      exposure.ToneSet
	overlayExpiry uint32

	probeStarted bool

	quit bool
}

// New wires a controller over its collaborators. The exposure state is
// initialised from the store's defaults.
func New(store *config.Store, disp display.Display, act device.LightActuator,
	probe meter.Probe, relay SafelightRelay, buzz buzzer.Buzzer, kp Keypad,
	clk clock.Clock, l logging.Logger) *Controller {

	c := &Controller{
		l:       l,
		store:   store,
		disp:    disp,
		act:     act,
		probe:   probe,
		buzz:    buzz,
		clk:     clk,
		actions: NewActions(kp),
	}
	c.illum = NewIllum(relay, store.SafelightMode, l)
	c.eng = engine.New(act, buzz, c.illum, clk, l)
	c.exp = exposure.NewState()
	c.resetExposureDefaults()
	c.activatePaperProfile()

	c.states = map[StateID]state{
		StateHome:                &homeState{},
		StateChangeTimeIncrement: &changeIncrementState{},
		StateChangeMode:          &changeModeState{},
		StateTimer:               &timerState{},
		StateFocus:               &focusState{},
		StateTestStrip:           &testStripState{},
		StateEditAdjustment:      &editAdjustmentState{},
		StateListAdjustments:     &listAdjustmentsState{},
		StateAdjustFine:          &adjustFineState{},
		StateAdjustAbsolute:      &adjustAbsoluteState{},
		StateDensitometer:        &densitometerState{},
		StateMenu:                &menuState{},
	}
	return c
}

// SetMenu installs the external menu system invoked from the Menu
// state.
func (c *Controller) SetMenu(menu func(c *Controller)) { c.menu = menu }

// ExposureState exposes the shared exposure state to the menu hook.
func (c *Controller) ExposureState() *exposure.State { return c.exp }

// Store exposes the settings store to the menu hook.
func (c *Controller) Store() *config.Store { return c.store }

// Quit asks the loop to exit after the current state returns to Home.
func (c *Controller) Quit() { c.quit = true }

// resetExposureDefaults applies the persisted defaults to the
// exposure state.
func (c *Controller) resetExposureDefaults() {
	c.exp.SetDefaults(
		float64(c.store.DefaultExposureTime())/1000.0,
		c.store.DefaultContrastGrade(),
		c.store.DefaultStepSize(),
	)
	c.refreshMinExposure()
}

// activatePaperProfile points the exposure state at the store's
// default paper profile, if any.
func (c *Controller) activatePaperProfile() {
	idx := c.store.DefaultPaperIndex()
	p, err := c.store.PaperProfile(idx)
	if err != nil {
		c.exp.ClearActivePaperProfile()
		return
	}
	err = c.exp.SetActivePaperProfile(p, idx)
	if err != nil {
		c.l.Warning("could not activate paper profile", "index", idx, "error", err.Error())
		c.exp.ClearActivePaperProfile()
	}
}

// refreshMinExposure recomputes the minimum timeable exposure from
// the active enlarger profile.
func (c *Controller) refreshMinExposure() {
	p := c.store.DefaultEnlarger()
	if p == nil {
		c.exp.SetMinExposureTime(0)
		return
	}
	c.exp.SetMinExposureTime(float64(p.MinExposure()) / 1000.0)
}

// Loop runs the state machine until Quit. It never returns otherwise.
func (c *Controller) Loop() {
	c.illum.SetState(SafelightHome)
	c.current = StateHome
	c.states[c.current].Entry(c, c.current, 0)

	for {
		next := c.states[c.current].Process(c)

		// Focus lamp wall-clock timeout: force the lamp off and
		// return home no matter what state asked for what.
		if c.focusActive && c.clk.Now() >= c.focusDeadline {
			c.l.Info("focus timeout expired")
			c.stopFocus()
			next = StateHome
		}

		if next != c.current {
			c.l.Info("state transition", "from", c.current.String(), "to", next.String())
			c.states[c.current].Exit(c, next)
			prev := c.current
			c.current = next
			c.states[c.current].Entry(c, prev, c.nextParam)
			c.nextParam = 0
		}

		if c.quit && c.current == StateHome {
			c.stopFocus()
			c.illum.SetState(SafelightHome)
			return
		}
	}
}

// setNextParam stashes the parameter for the next state's Entry.
func (c *Controller) setNextParam(param uint32) { c.nextParam = param }

// startFocus turns the focus lamp on and arms the timeout.
func (c *Controller) startFocus() {
	c.illum.SetState(SafelightFocus)
	c.act.SetFocus()
	c.focusActive = true
	c.focusDeadline = c.clk.Now() + c.store.FocusTimeout()
	c.startProbe()
}

// stopFocus turns the focus lamp off and disarms the timeout.
func (c *Controller) stopFocus() {
	if !c.focusActive {
		return
	}
	c.act.SetOff()
	c.illum.SetState(SafelightHome)
	c.focusActive = false
	c.focusDeadline = 0
	c.stopProbe()
}

// startProbe brings the meter up for live readings. The probe is
// owned by the UI here; calibration takes it over exclusively.
func (c *Controller) startProbe() {
	if c.probe == nil || c.probeStarted {
		return
	}
	err := c.probe.Enable()
	if err != nil {
		c.l.Warning("could not enable meter probe", "error", err.Error())
		return
	}
	err = c.probe.EnableAGC(4)
	if err != nil {
		c.l.Warning("could not enable probe AGC", "error", err.Error())
	}
	c.probeStarted = true
}

func (c *Controller) stopProbe() {
	if c.probe == nil || !c.probeStarted {
		return
	}
	err := c.probe.Disable()
	if err != nil {
		c.l.Warning("could not disable meter probe", "error", err.Error())
	}
	c.probeStarted = false
}

// takeMeterReading performs a blocking probe measurement, folds it
// into the exposure state, and shows the contributed tone as the live
// overlay for two seconds.
func (c *Controller) takeMeterReading() {
	if c.probe == nil || !c.probeStarted {
		return
	}
	c.illum.SetState(SafelightMeasurement)
	lux, err := c.probe.Measure()
	if c.focusActive {
		c.illum.SetState(SafelightFocus)
	} else {
		c.illum.SetState(SafelightHome)
	}
	if err != nil {
		c.l.Warning("meter reading failed", "error", err.Error())
		return
	}
	tone := c.exp.AddMeterReading(lux)
	c.liveTone = tone
	c.overlayExpiry = c.clk.Now() + 2000
	c.l.Info("measured reading", "lux", lux, "pev", c.exp.CalibrationPEV())
}

// pollLiveReading updates the live tone cursor from a non-blocking
// probe measurement during focus.
func (c *Controller) pollLiveReading() {
	if c.probe == nil || !c.probeStarted || !c.focusActive {
		return
	}
	lux, err := c.probe.TryMeasure()
	if err != nil {
		return
	}
	tone := c.exp.MeterReadingTone(lux)
	if tone != 0 {
		c.liveTone = tone
		c.overlayExpiry = c.clk.Now() + 2000
	}
}

// overlay returns the live cursor, expiring it on wall clock.
func (c *Controller) overlay() exposure.ToneSet {
	if c.overlayExpiry != 0 && c.clk.Now() >= c.overlayExpiry {
		c.liveTone = 0
		c.overlayExpiry = 0
	}
	return c.liveTone
}
