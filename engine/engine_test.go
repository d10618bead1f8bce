/*
DESCRIPTION
  engine_test.go provides testing for the exposure execution engine:
  the derived delay arithmetic, the tick state machine timeline,
  progress monotonicity, and the cancellation path. Tests drive the
  tick entry point directly, standing in for the hardware timer.

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

package engine

import (
	"errors"
	"testing"

	"github.com/opendarkroom/printimer/device/buzzer"
	"github.com/opendarkroom/printimer/profile"
)

type dumbLogger struct{}

func (dl *dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dl *dumbLogger) SetLevel(l int8)                         {}
func (dl *dumbLogger) Debug(msg string, args ...interface{})   {}
func (dl *dumbLogger) Info(msg string, args ...interface{})    {}
func (dl *dumbLogger) Warning(msg string, args ...interface{}) {}
func (dl *dumbLogger) Error(msg string, args ...interface{})   {}
func (dl *dumbLogger) Fatal(msg string, args ...interface{})   {}

// scriptActuator records actuation edges against a tick counter
// advanced by the test.
type scriptActuator struct {
	tick    *int
	on      bool
	onTick  int
	offTick int
}

func (a *scriptActuator) Name() string { return "script" }
func (a *scriptActuator) SetOff() {
	if a.on {
		a.offTick = *a.tick
	}
	a.on = false
}
func (a *scriptActuator) SetFocus() { a.on = true }
func (a *scriptActuator) SetExposure(profile.ContrastGrade) {
	if !a.on {
		a.onTick = *a.tick
	}
	a.on = true
}
func (a *scriptActuator) SetExposureChannels(profile.ChannelValues) { a.SetExposure(0) }
func (a *scriptActuator) IsEnabled() bool                           { return a.on }

// recordBuzzer counts cue starts.
type recordBuzzer struct {
	buzzer.Null
	starts []int
	tick   *int
}

func (b *recordBuzzer) Start() {
	b.starts = append(b.starts, *b.tick)
}

// runTicks drives the tick entry point to completion, draining the
// notification slot after every tick so no notification is
// overwritten unobserved.
func runTicks(t *testing.T, e *Engine, tick *int, limit int, perTick func()) []Notification {
	t.Helper()
	var seen []Notification
	for i := 0; i < limit; i++ {
		*tick = i
		more := e.Tick()
		select {
		case n := <-e.Notifications():
			seen = append(seen, n)
		default:
		}
		if perTick != nil {
			perTick()
		}
		if !more {
			return seen
		}
	}
	t.Fatalf("engine did not terminate within %d ticks", limit)
	return nil
}

func testConfig() Config {
	// Profile {on:50, rise:200, riseEq:100, off:20, fall:150,
	// fallEq:80}: onDelay=150, offDelay=100, endDelay=70.
	return Config{
		ExposureTime:     10000,
		RelayOnDelay:     150,
		RelayOffDelay:    100,
		ExposureEndDelay: 70,
		Rate:             Rate1Sec,
	}
}

func newTestEngine(cfg Config) (*Engine, *scriptActuator, *recordBuzzer, *int) {
	tick := new(int)
	act := &scriptActuator{tick: tick}
	buzz := &recordBuzzer{tick: tick}
	e := New(act, buzz, nil, nil, &dumbLogger{})
	e.cfg = cfg
	e.reset()
	return e, act, buzz, tick
}

func TestConfigSetTime(t *testing.T) {
	p := &profile.Enlarger{TurnOnDelay: 50, RiseTime: 200, RiseTimeEquiv: 100,
		TurnOffDelay: 20, FallTime: 150, FallTimeEquiv: 80}

	var cfg Config
	cfg.SetTime(10000, p, &dumbLogger{})

	if cfg.RelayOnDelay != 150 {
		t.Errorf("RelayOnDelay = %d, want 150", cfg.RelayOnDelay)
	}
	if cfg.RelayOffDelay != 100 {
		t.Errorf("RelayOffDelay = %d, want 100", cfg.RelayOffDelay)
	}
	if cfg.ExposureEndDelay != 70 {
		t.Errorf("ExposureEndDelay = %d, want 70", cfg.ExposureEndDelay)
	}

	// Missing profile: time the relay directly.
	var bare Config
	bare.SetTime(5000, nil, &dumbLogger{})
	if bare.RelayOnDelay != 0 || bare.RelayOffDelay != 0 || bare.ExposureEndDelay != 0 {
		t.Errorf("delays without profile = %d/%d/%d, want zeros",
			bare.RelayOnDelay, bare.RelayOffDelay, bare.ExposureEndDelay)
	}
}

func TestEngineTimeline(t *testing.T) {
	e, act, buzz, tick := newTestEngine(testConfig())

	seen := runTicks(t, e, tick, 5000, nil)

	// The actuator asserts on the first tick.
	if act.onTick != 0 {
		t.Errorf("actuator asserted at tick %d, want 0", act.onTick)
	}

	// Relay de-asserts when the effective exposure ends:
	// elapsed = onDelay + T - offDelay = 10050, which is tick 1005.
	if act.offTick != 1005 {
		t.Errorf("actuator de-asserted at tick %d, want 1005", act.offTick)
	}
	if act.on {
		t.Errorf("actuator still on at Done")
	}

	// Start at elapsed 150 (tick 15) carrying the full time.
	if len(seen) == 0 || seen[0].State != StateStart || seen[0].RemainingMs != 10000 {
		t.Fatalf("first notification = %+v, want Start/10000", seen[0])
	}

	// Ticks every second: 9000 down to 1000, then End and Done.
	var ticks []uint32
	var ends, dones int
	for _, n := range seen[1:] {
		switch n.State {
		case StateTick:
			ticks = append(ticks, n.RemainingMs)
		case StateEnd:
			ends++
		case StateDone:
			dones++
		}
	}
	if len(ticks) != 9 {
		t.Fatalf("tick notifications = %v, want 9000..1000", ticks)
	}
	for i, r := range ticks {
		want := uint32(9000 - i*1000)
		if r != want {
			t.Errorf("tick %d remaining = %d, want %d", i, r, want)
		}
	}
	if ends != 1 {
		t.Errorf("End observed %d times, want exactly once", ends)
	}
	if dones != 1 {
		t.Errorf("Done observed %d times, want exactly once", dones)
	}
	if seen[len(seen)-1].State != StateDone {
		t.Errorf("last notification = %v, want Done", seen[len(seen)-1].State)
	}

	// Remaining values never increase across the run.
	prev := seen[0].RemainingMs
	for _, n := range seen[1:] {
		if n.RemainingMs > prev {
			t.Fatalf("remaining increased: %d after %d", n.RemainingMs, prev)
		}
		prev = n.RemainingMs
	}

	// The per-second beep lands on every whole second of the visible
	// timer, the last aligned with its end at elapsed 10150.
	if len(buzz.starts) != 10 {
		t.Fatalf("beep count = %d, want 10", len(buzz.starts))
	}
	if last := buzz.starts[len(buzz.starts)-1]; last != 1015 {
		t.Errorf("last beep at tick %d, want 1015", last)
	}
}

func TestEngineCancellation(t *testing.T) {
	cfg := testConfig()
	cfg.ExposureTime = 30000
	e, act, _, tick := newTestEngine(cfg)

	const cancelTick = 515
	seen := runTicks(t, e, tick, 5000, func() {
		if *tick == cancelTick {
			e.Cancel()
		}
	})

	// The actuator is off within one tick of the cancel being
	// observed.
	if act.offTick > cancelTick+1 {
		t.Errorf("actuator off at tick %d, want <= %d", act.offTick, cancelTick+1)
	}

	var ends, dones, ticksAfterEnd int
	ended := false
	for _, n := range seen {
		switch n.State {
		case StateEnd:
			ends++
			ended = true
		case StateDone:
			dones++
		case StateTick:
			if ended {
				ticksAfterEnd++
			}
		}
	}
	if ends != 1 {
		t.Errorf("End observed %d times, want exactly once on cancellation", ends)
	}
	if dones != 1 {
		t.Errorf("Done observed %d times, want exactly once on cancellation", dones)
	}
	if ticksAfterEnd != 0 {
		t.Errorf("%d tick notifications after End", ticksAfterEnd)
	}

	// The tail delay is still honoured: End at elapsed ~5160, Done
	// posted after the end delay, within a few ticks.
	if act.offTick < cancelTick || act.offTick > cancelTick+2 {
		t.Errorf("cancel path actuator off at %d", act.offTick)
	}
}

func TestEngineCancellationBeforeVisibleStart(t *testing.T) {
	e, act, _, tick := newTestEngine(testConfig())

	// Cancel in the pre-visible window: the light is already on but
	// the relay-on delay (150 ms, tick 15) has not elapsed.
	const cancelTick = 5
	seen := runTicks(t, e, tick, 5000, func() {
		if *tick == cancelTick {
			e.Cancel()
		}
	})

	// The light must still go off within one tick of the cancel
	// being observed.
	if act.offTick > cancelTick+1 {
		t.Errorf("actuator off at tick %d, want <= %d", act.offTick, cancelTick+1)
	}
	if act.on {
		t.Errorf("actuator still on at Done")
	}

	// The visible timer never ran: no Start or Tick notifications,
	// just the End/Done pair.
	var starts, ticks, ends, dones int
	for _, n := range seen {
		switch n.State {
		case StateStart:
			starts++
		case StateTick:
			ticks++
		case StateEnd:
			ends++
		case StateDone:
			dones++
		}
	}
	if starts != 0 || ticks != 0 {
		t.Errorf("start/tick notifications = %d/%d, want none before visible start", starts, ticks)
	}
	if ends != 1 {
		t.Errorf("End observed %d times, want exactly once", ends)
	}
	if dones != 1 {
		t.Errorf("Done observed %d times, want exactly once", dones)
	}
}

func TestEngineRunValidation(t *testing.T) {
	e, _, _, _ := newTestEngine(Config{})

	err := e.Run()
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("zero time: expected ErrNotConfigured, got %v", err)
	}

	e.cfg = Config{ExposureTime: MaxExposureMs + 1}
	err = e.Run()
	if !errors.Is(err, ErrInvalidExposure) {
		t.Errorf("over-long time: expected ErrInvalidExposure, got %v", err)
	}

	e.cfg = Config{ExposureTime: 1000, RelayOffDelay: 1000}
	err = e.Run()
	if !errors.Is(err, ErrInvalidExposure) {
		t.Errorf("impossible off delay: expected ErrInvalidExposure, got %v", err)
	}
}

func TestEngineShortExposureRates(t *testing.T) {
	// 100 ms callbacks for a sub-10s exposure.
	cfg := Config{
		ExposureTime: 2500,
		Rate:         Rate100Ms,
	}
	e, _, _, tick := newTestEngine(cfg)

	seen := runTicks(t, e, tick, 1000, nil)

	var ticks int
	for _, n := range seen {
		if n.State == StateTick {
			ticks++
			if n.RemainingMs%100 != 0 {
				t.Errorf("tick remaining %d not on the 100ms rate", n.RemainingMs)
			}
		}
	}
	if ticks != 24 {
		t.Errorf("tick notifications = %d, want 24", ticks)
	}
}
