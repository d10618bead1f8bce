/*
DESCRIPTION
  buzzer.go provides the buzzer contract used for audible cues during
  exposures, and a silent implementation for headless operation.

AUTHORS
  Dana Okafor <dana@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

// Package buzzer provides audible cue output.
package buzzer

// Volume is a coarse output level.
type Volume uint8

const (
	VolumeOff Volume = iota
	VolumeLow
	VolumeMedium
	VolumeHigh
)

// Standard cue frequencies, in hertz.
const (
	Freq500Hz  uint16 = 500
	Freq1000Hz uint16 = 1000
	Freq1500Hz uint16 = 1500
	Freq2000Hz uint16 = 2000
)

// Buzzer is a tone generator with a settable frequency and volume.
// Start and Stop gate the output; frequency changes while started take
// effect immediately, which the exposure cues rely on.
type Buzzer interface {
	SetFrequency(hz uint16)
	Frequency() uint16
	SetVolume(v Volume)
	Volume() Volume
	Start()
	Stop()
}

// Null is a Buzzer that produces no sound. It still tracks frequency
// and volume so callers can save and restore them.
type Null struct {
	freq uint16
	vol  Volume
}

func (n *Null) SetFrequency(hz uint16) { n.freq = hz }
func (n *Null) Frequency() uint16      { return n.freq }
func (n *Null) SetVolume(v Volume)     { n.vol = v }
func (n *Null) Volume() Volume         { return n.vol }
func (n *Null) Start()                 {}
func (n *Null) Stop()                  {}
