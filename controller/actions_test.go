/*
DESCRIPTION
  actions_test.go provides testing for the keypad actions layer:
  single keys, repeats, long presses, combos and encoder ticks.

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
	"errors"
	"testing"
)

// queueKeypad replays a scripted sequence of events.
type queueKeypad struct {
	events []Event
}

func (kp *queueKeypad) WaitEvent(timeoutMs int) (Event, error) {
	if len(kp.events) == 0 {
		return Event{}, ErrNoEvent
	}
	ev := kp.events[0]
	kp.events = kp.events[1:]
	return ev, nil
}

const (
	testActionA = iota + 1
	testActionB
	testActionLong
	testActionCombo
	testActionCW
	testActionCCW
)

func TestActionsSingleKey(t *testing.T) {
	kp := &queueKeypad{events: []Event{
		{Key: KeyStart, Pressed: true},
		{Key: KeyStart, Pressed: false},
	}}
	a := NewActions(kp)
	a.AddSingle(KeyStart, testActionA, ActionNone, false)

	got, err := a.Wait(-1)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got.ID != testActionA || got.Key != KeyStart {
		t.Errorf("action = %+v, want A on start", got)
	}
}

func TestActionsUnboundKeySwallowed(t *testing.T) {
	kp := &queueKeypad{events: []Event{
		{Key: KeyMenu, Pressed: true},
		{Key: KeyMenu, Pressed: false},
		{Key: KeyStart, Pressed: true},
		{Key: KeyStart, Pressed: false},
	}}
	a := NewActions(kp)
	a.AddSingle(KeyStart, testActionA, ActionNone, false)

	got, err := a.Wait(-1)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got.ID != testActionA {
		t.Errorf("action = %+v, want A after unbound key", got)
	}
}

func TestActionsRepeat(t *testing.T) {
	kp := &queueKeypad{events: []Event{
		{Key: KeyIncExposure, Pressed: true},
		{Key: KeyIncExposure, Pressed: true, Repeated: true},
		{Key: KeyIncExposure, Pressed: true, Repeated: true},
	}}
	a := NewActions(kp)
	a.AddSingle(KeyIncExposure, testActionA, ActionNone, true)

	for i := 0; i < 2; i++ {
		got, err := a.Wait(-1)
		if err != nil {
			t.Fatalf("repeat %d: did not expect error: %v", i, err)
		}
		if got.ID != testActionA {
			t.Errorf("repeat %d: action = %+v, want A", i, got)
		}
	}
}

func TestActionsLongPress(t *testing.T) {
	events := []Event{{Key: KeyStart, Pressed: true}}
	for i := 0; i < longPressRepeats; i++ {
		events = append(events, Event{Key: KeyStart, Pressed: true, Repeated: true})
	}
	events = append(events, Event{Key: KeyStart, Pressed: false})
	kp := &queueKeypad{events: events}

	a := NewActions(kp)
	a.AddSingle(KeyStart, testActionA, testActionLong, false)

	got, err := a.Wait(-1)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got.ID != testActionLong {
		t.Errorf("action = %+v, want long press", got)
	}

	// The release after a fired long press produces nothing.
	_, err = a.Wait(-1)
	if !errors.Is(err, ErrNoEvent) {
		t.Errorf("expected queue to drain with no action, got %v", err)
	}
}

func TestActionsShortPressBelowLongThreshold(t *testing.T) {
	kp := &queueKeypad{events: []Event{
		{Key: KeyStart, Pressed: true},
		{Key: KeyStart, Pressed: true, Repeated: true},
		{Key: KeyStart, Pressed: false},
	}}
	a := NewActions(kp)
	a.AddSingle(KeyStart, testActionA, testActionLong, false)

	got, err := a.Wait(-1)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got.ID != testActionA {
		t.Errorf("action = %+v, want the plain action", got)
	}
}

func TestActionsCombo(t *testing.T) {
	kp := &queueKeypad{events: []Event{
		{Key: KeyIncExposure, Pressed: true},
		{Key: KeyDecExposure, Pressed: true},
		{Key: KeyIncExposure, Pressed: false},
		{Key: KeyDecExposure, Pressed: false},
	}}
	a := NewActions(kp)
	a.AddSingle(KeyIncExposure, testActionA, ActionNone, false)
	a.AddSingle(KeyDecExposure, testActionB, ActionNone, false)
	a.AddCombo(KeyIncExposure, KeyDecExposure, testActionCombo)

	got, err := a.Wait(-1)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got.ID != testActionCombo {
		t.Errorf("action = %+v, want combo", got)
	}

	// The member key releases were swallowed, not delivered as
	// singles.
	_, err = a.Wait(-1)
	if !errors.Is(err, ErrNoEvent) {
		t.Errorf("expected no further actions, got %v", err)
	}
}

func TestActionsEncoder(t *testing.T) {
	kp := &queueKeypad{events: []Event{
		{Key: KeyEncoderCW, Pressed: true, Count: 3},
		{Key: KeyEncoderCCW, Pressed: true, Count: 1},
	}}
	a := NewActions(kp)
	a.AddEncoder(testActionCCW, testActionCW)

	got, err := a.Wait(-1)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got.ID != testActionCW || got.Count != 3 {
		t.Errorf("action = %+v, want CW x3", got)
	}

	got, err = a.Wait(-1)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got.ID != testActionCCW || got.Count != 1 {
		t.Errorf("action = %+v, want CCW x1", got)
	}
}

func TestActionsClear(t *testing.T) {
	kp := &queueKeypad{events: []Event{
		{Key: KeyStart, Pressed: true},
		{Key: KeyStart, Pressed: false},
	}}
	a := NewActions(kp)
	a.AddSingle(KeyStart, testActionA, ActionNone, false)
	a.Clear()

	_, err := a.Wait(-1)
	if !errors.Is(err, ErrNoEvent) {
		t.Errorf("expected no action after clear, got %v", err)
	}
}
