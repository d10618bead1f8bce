/*
DESCRIPTION
  tone_test.go provides testing for the tone graph: bit packing,
  placement of readings on the paper curve, and the under/over
  tokens.

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
	"testing"

	"github.com/opendarkroom/printimer/profile"
)

func TestToneSetPacking(t *testing.T) {
	var s ToneSet
	s = s.Add(ToneUnder).Add(1).Add(8).Add(ToneOver)

	if !s.Under() || !s.Over() {
		t.Errorf("under/over tokens missing: %#x", uint32(s))
	}
	if !s.Contains(1) || !s.Contains(8) {
		t.Errorf("tone bits missing: %#x", uint32(s))
	}

	want := uint32(1)<<0 | 1<<1 | 1<<8 | 1<<16
	if got := s.Bits(); got != want {
		t.Errorf("Bits = %#x, want %#x", got, want)
	}

	// Bits outside the 17 tone positions are always clear.
	if got := ToneSet(0xFFFFFFFF).Bits(); got != 0x0001FFFF {
		t.Errorf("Bits mask = %#x, want 0x0001FFFF", got)
	}

	// Adding an out of range tone is a no-op.
	if got := ToneSet(0).Add(17); got != 0 {
		t.Errorf("Add(17) = %#x, want 0", uint32(got))
	}
}

func TestToneForPEV(t *testing.T) {
	// A wide illustrative curve: Ht=60 with a 1000 PEV range, so each
	// of the 15 bins spans 66.7 PEV.
	g := profile.PaperGrade{Ht: 60, Hs: 1060}

	tests := []struct {
		pev  float64
		want Tone
	}{
		{59, ToneUnder},
		{60, 1},
		{560, 8},
		{1059, 15},
		{1060, ToneOver},
		{1200, ToneOver},
	}
	for _, test := range tests {
		got := toneForPEV(test.pev, g)
		if got != test.want {
			t.Errorf("toneForPEV(%v) = %v, want %v", test.pev, got, test.want)
		}
	}
}

func TestToneGraphTwoReadings(t *testing.T) {
	g := profile.PaperGrade{Ht: 60, Hs: 1060}
	s := newTestState(10.0, IncrementHalf)

	// The reference (lowest) reading lands on Ht; a reading five
	// decades brighter lands at PEV 560.
	s.AddMeterReading(1.0)
	s.AddMeterReading(math.Pow(10, 5))

	set := s.graphAt(g, s.ExposureTime())
	want := ToneSet(0).Add(1).Add(8)
	if set != want {
		t.Errorf("tone graph = %#x, want %#x", uint32(set), uint32(want))
	}

	// A reading beyond the shadow point sets the over token.
	s.AddMeterReading(math.Pow(10, 11.4))
	set = s.graphAt(g, s.ExposureTime())
	if !set.Over() {
		t.Errorf("over token missing: %#x", uint32(set))
	}
	if set.Under() {
		t.Errorf("under token set with no reading below Ht: %#x", uint32(set))
	}
}

func TestAdjustedToneGraphShiftsUnder(t *testing.T) {
	s := newTestState(10.0, IncrementHalf)
	p := profile.DefaultPaper()
	err := s.SetActivePaperProfile(p, 0)
	if err != nil {
		t.Fatalf("could not activate paper profile: %v", err)
	}

	s.AddMeterReading(1.0)

	// At the metered time the reference sits on the first tone.
	set := s.ToneGraph()
	if !set.Contains(1) {
		t.Fatalf("reference reading should sit on tone 1, got %#x", uint32(set))
	}

	// Pulling many stops out drops it below the printable range.
	set = s.AdjustedToneGraph(-144)
	if !set.Under() {
		t.Errorf("twelve stops down should under-expose, got %#x", uint32(set))
	}

	// Piling stops on pushes it over.
	set = s.AdjustedToneGraph(144)
	if !set.Over() {
		t.Errorf("twelve stops up should over-expose, got %#x", uint32(set))
	}
}

func TestMeterReadingToneCursor(t *testing.T) {
	s := newTestState(10.0, IncrementHalf)
	p := profile.DefaultPaper()
	err := s.SetActivePaperProfile(p, 0)
	if err != nil {
		t.Fatalf("could not activate paper profile: %v", err)
	}

	// No cursor without a reference reading.
	if got := s.MeterReadingTone(5.0); got != 0 {
		t.Errorf("cursor without readings = %#x, want 0", uint32(got))
	}

	s.AddMeterReading(1.0)
	cursor := s.MeterReadingTone(1.0)
	if !cursor.Contains(1) {
		t.Errorf("cursor at reference = %#x, want tone 1", uint32(cursor))
	}

	// The cursor mutates nothing.
	if got := s.MeterReadingCount(); got != 1 {
		t.Errorf("reading count after cursor = %d, want 1", got)
	}
}

func TestToneGraphEmptyWithoutPaper(t *testing.T) {
	s := newTestState(10.0, IncrementHalf)
	s.AddMeterReading(1.0)
	if got := s.ToneGraph(); got != 0 {
		t.Errorf("tone graph without active paper = %#x, want 0", uint32(got))
	}
}
