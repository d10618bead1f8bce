/*
DESCRIPTION
  enlarger.go provides the enlarger profile record, which captures the
  measured timing behaviour of an enlarger lamp, and the optional
  control block used to drive dimmable RGB+W heads.

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

package profile

import (
	"encoding/json"
	"errors"
	"fmt"
)

// recordVersion is the on-disk format version for profile records.
// Records with any other version are rejected without mutating state.
const recordVersion = 1

// Timing fields are bounded to a sensible maximum of just over a
// minute, so downstream delay arithmetic cannot overflow.
const maxTimingMs = 0xFFFF

var (
	ErrInvalidProfile = errors.New("profile: invalid profile")
	ErrBadVersion     = errors.New("profile: unsupported record version")
)

// ChannelMode describes the channel layout of a dimmable head.
type ChannelMode uint8

const (
	ChannelsRGB ChannelMode = iota
	ChannelsRGBW
)

// ChannelValues holds one output level per channel, in R, G, B, W
// order. Heads in RGB mode ignore the W slot. Values are 16-bit; heads
// in 8-bit mode use the low byte.
type ChannelValues [4]uint16

// Control describes how a dimmable head expresses grades and utility
// states as channel values. A nil Control on an Enlarger means the lamp
// is switched by the mechanical relay.
type Control struct {
	Mode ChannelMode `json:"mode"`

	// Wide selects 16-bit channel values on the wire. When false the
	// head is driven with 8-bit values.
	Wide bool `json:"wide"`

	// Focus is the steady output used for composition and focusing.
	Focus ChannelValues `json:"focus"`

	// Safe is the output used when the head must stay lit but
	// paper-safe, such as between test strip patches.
	Safe ChannelValues `json:"safe"`

	// Grades holds the exposure output for each printable contrast
	// grade.
	Grades [GradeCount]ChannelValues `json:"grades"`
}

// Enlarger describes one lamp-and-head combination. The timing fields
// are produced by the calibration procedure and consumed by the
// exposure execution engine; all are in milliseconds.
type Enlarger struct {
	Name string `json:"name"`

	// TurnOnDelay is the time from relay activation until the light
	// level starts to rise.
	TurnOnDelay uint32 `json:"turn_on_delay"`

	// RiseTime is the time from the start of the rise until the light
	// approaches its peak.
	RiseTime uint32 `json:"rise_time"`

	// RiseTimeEquiv is the time at full output that gives the same
	// exposure as the output integrated across the rise.
	RiseTimeEquiv uint32 `json:"rise_time_equiv"`

	// TurnOffDelay is the time from relay deactivation until the light
	// level starts to fall.
	TurnOffDelay uint32 `json:"turn_off_delay"`

	// FallTime is the time from the start of the fall until the light
	// is completely off.
	FallTime uint32 `json:"fall_time"`

	// FallTimeEquiv is the full-output equivalent of the fall period.
	FallTimeEquiv uint32 `json:"fall_time_equiv"`

	// ColorTemperature is the lamp colour temperature in kelvin as
	// measured during calibration, or zero if unknown. Display only.
	ColorTemperature uint32 `json:"color_temperature,omitempty"`

	// ContrastFilter names the filter set used with this enlarger.
	ContrastFilter ContrastFilter `json:"contrast_filter"`

	// Control is present for dimmable heads and absent for
	// relay-switched lamps.
	Control *Control `json:"control,omitempty"`
}

// IsValid checks the relationships between the timing values.
//
// Upstream behaviour checks the rise-time bound twice and the fall
// time not at all; the bound is applied to every field here so a
// garbage fall time cannot reach the delay arithmetic. Flagged for
// review against upstream.
func (p *Enlarger) IsValid() bool {
	if p == nil {
		return false
	}

	if p.TurnOnDelay > maxTimingMs ||
		p.RiseTime > maxTimingMs || p.RiseTimeEquiv > maxTimingMs ||
		p.TurnOffDelay > maxTimingMs ||
		p.FallTime > maxTimingMs || p.FallTimeEquiv > maxTimingMs {
		return false
	}

	// Equivalent rise time must not exceed actual rise time.
	if p.RiseTimeEquiv > p.RiseTime {
		return false
	}

	// Equivalent fall time must not exceed actual fall time.
	if p.FallTimeEquiv > p.FallTime {
		return false
	}

	return true
}

// MinExposure returns the minimum exposure duration, in milliseconds,
// that can be accurately timed with this profile.
func (p *Enlarger) MinExposure() uint32 {
	if p == nil {
		return 0
	}
	return p.RiseTimeEquiv + p.FallTimeEquiv + p.TurnOffDelay
}

// DimmableHead reports whether the enlarger is driven with per-channel
// values rather than a mechanical relay.
func (p *Enlarger) DimmableHead() bool {
	return p != nil && p.Control != nil
}

type enlargerRecord struct {
	Version int `json:"version"`
	Enlarger
}

// EncodeEnlarger serialises a valid profile as a versioned record.
func EncodeEnlarger(p *Enlarger) ([]byte, error) {
	if !p.IsValid() {
		return nil, ErrInvalidProfile
	}
	return json.Marshal(enlargerRecord{Version: recordVersion, Enlarger: *p})
}

// DecodeEnlarger parses a versioned enlarger record. Records with a
// mismatched version or an invalid profile are rejected.
func DecodeEnlarger(data []byte) (*Enlarger, error) {
	var rec enlargerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("could not parse enlarger record: %w", err)
	}
	if rec.Version != recordVersion {
		return nil, ErrBadVersion
	}
	p := rec.Enlarger
	if !p.IsValid() {
		return nil, ErrInvalidProfile
	}
	return &p, nil
}
