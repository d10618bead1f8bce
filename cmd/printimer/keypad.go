/*
DESCRIPTION
  keypad.go provides a development keypad reading single characters
  from standard input, for driving the controller on a workstation
  where the membrane keypad hardware is absent.

AUTHORS
  Dana Okafor <dana@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

package main

import (
	"bufio"
	"os"
	"time"

	"github.com/opendarkroom/printimer/controller"
)

var keyChars = map[byte]controller.Key{
	'+': controller.KeyIncExposure,
	'-': controller.KeyDecExposure,
	']': controller.KeyIncContrast,
	'[': controller.KeyDecContrast,
	's': controller.KeyStart,
	'f': controller.KeyFocus,
	'm': controller.KeyMenu,
	'c': controller.KeyCancel,
	'p': controller.KeyMeterProbe,
	'b': controller.KeyBlackout,
	'>': controller.KeyEncoderCW,
	'<': controller.KeyEncoderCCW,
}

// terminalKeypad emits a press/release pair for each mapped character
// read from stdin.
type terminalKeypad struct {
	events chan controller.Event
}

func newTerminalKeypad() *terminalKeypad {
	kp := &terminalKeypad{events: make(chan controller.Event, 16)}
	go kp.read()
	return kp
}

func (kp *terminalKeypad) read() {
	r := bufio.NewReader(os.Stdin)
	for {
		ch, err := r.ReadByte()
		if err != nil {
			close(kp.events)
			return
		}
		key, ok := keyChars[ch]
		if !ok {
			continue
		}
		kp.events <- controller.Event{Key: key, Pressed: true, Count: 1}
		kp.events <- controller.Event{Key: key, Pressed: false, Count: 1}
	}
}

func (kp *terminalKeypad) WaitEvent(timeoutMs int) (controller.Event, error) {
	switch {
	case timeoutMs < 0:
		ev, ok := <-kp.events
		if !ok {
			return controller.Event{}, controller.ErrNoEvent
		}
		return ev, nil
	case timeoutMs == 0:
		select {
		case ev, ok := <-kp.events:
			if !ok {
				return controller.Event{}, controller.ErrNoEvent
			}
			return ev, nil
		default:
			return controller.Event{}, controller.ErrNoEvent
		}
	default:
		t := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
		defer t.Stop()
		select {
		case ev, ok := <-kp.events:
			if !ok {
				return controller.Event{}, controller.ErrNoEvent
			}
			return ev, nil
		case <-t.C:
			return controller.Event{}, controller.ErrNoEvent
		}
	}
}
