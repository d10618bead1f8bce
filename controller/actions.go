/*
DESCRIPTION
  actions.go provides the keypad actions layer: a thin mapping from
  raw key events to the action identifiers a state cares about, with
  support for long presses, two-key combos, and encoder ticks.

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

import "errors"

const (
	maxKeyActions   = 16
	maxComboActions = 4

	// Repeats of a held key before its long-press action fires.
	longPressRepeats = 4
)

var ErrTooManyActions = errors.New("controller: too many registered actions")

// ActionNone means the event mapped to nothing a state cares about.
const ActionNone = 0

// Action is one decoded user action.
type Action struct {
	ID uint8

	// Key is the raw key that produced the action.
	Key Key

	// Count carries encoder steps for encoder actions.
	Count uint8
}

type keyAction struct {
	key           Key
	actionID      uint8
	longPressID   uint8
	allowRepeat   bool
	repeatCounter uint8
	firedLong     bool
}

type comboAction struct {
	key1, key2     Key
	actionID       uint8
	pending        bool
	swallowK1      bool
	swallowK2      bool
}

// Actions decodes keypad events into registered actions. A state
// registers its bindings on entry and clears them on exit.
type Actions struct {
	kp     Keypad
	keys   []keyAction
	combos []comboAction
	ccwID  uint8
	cwID   uint8

	down map[Key]bool
}

// NewActions returns an empty actions layer over the keypad.
func NewActions(kp Keypad) *Actions {
	return &Actions{kp: kp, down: make(map[Key]bool)}
}

// AddSingle binds a key to an action, with an optional long-press
// action and repeat delivery while held.
func (a *Actions) AddSingle(key Key, actionID, longPressID uint8, allowRepeat bool) error {
	if len(a.keys) >= maxKeyActions {
		return ErrTooManyActions
	}
	if key == KeyEncoderCW || key == KeyEncoderCCW {
		return errors.New("controller: encoder keys bind via AddEncoder")
	}
	a.keys = append(a.keys, keyAction{
		key:         key,
		actionID:    actionID,
		longPressID: longPressID,
		allowRepeat: allowRepeat,
	})
	return nil
}

// AddCombo binds a simultaneous two-key press to an action.
func (a *Actions) AddCombo(key1, key2 Key, actionID uint8) error {
	if len(a.combos) >= maxComboActions {
		return ErrTooManyActions
	}
	a.combos = append(a.combos, comboAction{key1: key1, key2: key2, actionID: actionID})
	return nil
}

// AddEncoder binds the encoder directions.
func (a *Actions) AddEncoder(ccwID, cwID uint8) {
	a.ccwID = ccwID
	a.cwID = cwID
}

// Clear removes all bindings.
func (a *Actions) Clear() {
	a.keys = nil
	a.combos = nil
	a.ccwID = 0
	a.cwID = 0
	for k := range a.down {
		delete(a.down, k)
	}
}

// Wait blocks for the next event that maps to a registered action.
// Unmapped events are swallowed. It returns ErrNoEvent when the
// timeout expires first. A zero timeout polls without blocking; a
// negative timeout blocks indefinitely.
func (a *Actions) Wait(timeoutMs int) (Action, error) {
	for {
		ev, err := a.kp.WaitEvent(timeoutMs)
		if err != nil {
			return Action{}, err
		}

		act, ok := a.decode(ev)
		if ok {
			return act, nil
		}
		// Events that decode to nothing restart a blocking wait with
		// the full timeout; polls return.
		if timeoutMs == 0 {
			return Action{}, ErrNoEvent
		}
	}
}

func (a *Actions) decode(ev Event) (Action, bool) {
	a.down[ev.Key] = ev.Pressed || ev.Repeated

	// Encoder ticks.
	if ev.Key == KeyEncoderCW && a.cwID != ActionNone {
		return Action{ID: a.cwID, Key: ev.Key, Count: ev.Count}, true
	}
	if ev.Key == KeyEncoderCCW && a.ccwID != ActionNone {
		return Action{ID: a.ccwID, Key: ev.Key, Count: ev.Count}, true
	}

	// Combos take precedence over singles so a combo press does not
	// also fire the member keys.
	for i := range a.combos {
		combo := &a.combos[i]
		if !combo.pending && a.down[combo.key1] && a.down[combo.key2] {
			combo.pending = true
			combo.swallowK1 = true
			combo.swallowK2 = true
		}
		if combo.pending {
			if ev.Key == combo.key1 && !ev.Pressed {
				combo.swallowK1 = false
			}
			if ev.Key == combo.key2 && !ev.Pressed {
				combo.swallowK2 = false
			}
			if !combo.swallowK1 && !combo.swallowK2 {
				combo.pending = false
				return Action{ID: combo.actionID, Key: combo.key1}, true
			}
			if ev.Key == combo.key1 || ev.Key == combo.key2 {
				return Action{}, false
			}
		}
	}

	for i := range a.keys {
		ka := &a.keys[i]
		if ka.key != ev.Key {
			continue
		}
		switch {
		case ev.Repeated:
			ka.repeatCounter++
			if ka.longPressID != ActionNone && !ka.firedLong && ka.repeatCounter >= longPressRepeats {
				ka.firedLong = true
				return Action{ID: ka.longPressID, Key: ev.Key}, true
			}
			if ka.allowRepeat && ka.longPressID == ActionNone {
				return Action{ID: ka.actionID, Key: ev.Key, Count: ev.Count}, true
			}
		case !ev.Pressed:
			fired := ka.firedLong
			ka.firedLong = false
			ka.repeatCounter = 0
			if fired {
				// The long press already consumed this hold.
				return Action{}, false
			}
			return Action{ID: ka.actionID, Key: ev.Key, Count: ev.Count}, true
		}
		return Action{}, false
	}

	return Action{}, false
}
