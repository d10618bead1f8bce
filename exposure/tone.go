/*
DESCRIPTION
  tone.go provides the tone graph: a 17-bucket histogram showing where
  metered areas of the image will fall on the active paper's
  characteristic curve.

AUTHORS
  Dana Okafor <dana@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

package exposure

import (
	"math"

	"github.com/opendarkroom/printimer/profile"
)

// Tone identifies one bucket of the tone graph. ToneUnder marks a
// reading that falls below the paper's first printable tone, ToneOver
// one that falls beyond its deepest shadow, and tones 1 through 15 the
// printable range between Ht and Hs.
type Tone uint8

const (
	ToneUnder Tone = 0
	ToneOver  Tone = 16
	toneCount      = 17
)

// ToneSet is a set of tone buckets, packed one bit per tone into the
// low 17 bits of a uint32:
//
//	 1 | 1  1  1  1  1  1       |
//	 6 | 5  4  3  2  1  0  9  8 | 7  6  5  4  3  2  1  0
//	[<]|[ ][ ][ ][ ][ ][ ][ ][ ]|[ ][ ][ ][ ][ ][ ][ ][>]
//	 + |                        |                      -
//
// The packed form is what the display renders; the typed methods are
// what the model works with.
type ToneSet uint32

// Add returns the set with tone t included.
func (s ToneSet) Add(t Tone) ToneSet {
	if t >= toneCount {
		return s
	}
	return s | 1<<t
}

// Contains reports whether tone t is in the set.
func (s ToneSet) Contains(t Tone) bool {
	return t < toneCount && s&(1<<t) != 0
}

// Under reports whether the set contains the under-exposure token.
func (s ToneSet) Under() bool { return s.Contains(ToneUnder) }

// Over reports whether the set contains the over-exposure token.
func (s ToneSet) Over() bool { return s.Contains(ToneOver) }

// Bits returns the packed display form, with bits above 16 clear.
func (s ToneSet) Bits() uint32 { return uint32(s) & 0x0001FFFF }

// toneForPEV places a paper exposure value on the grade's curve. The
// printable range [Ht, Hs) maps to 15 equal bins; values below Ht go
// to the under token and values at or beyond the 15th bin boundary go
// to the over token.
func toneForPEV(pev float64, g profile.PaperGrade) Tone {
	ht := float64(g.Ht)
	hs := float64(g.Hs)
	if hs <= ht {
		return ToneOver
	}
	if pev < ht {
		return ToneUnder
	}
	bin := int(math.Floor(15 * (pev - ht) / (hs - ht)))
	if bin >= 15 {
		return ToneOver
	}
	return Tone(bin + 1)
}
