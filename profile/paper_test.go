/*
DESCRIPTION
  paper_test.go provides testing for paper grade validation, the
  half-grade derivation rules, and record round-tripping.

AUTHORS
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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPaperGradeIsValid(t *testing.T) {
	tests := []struct {
		name string
		g    PaperGrade
		want bool
	}{
		{name: "two point grade", g: PaperGrade{Ht: 60, Hs: 190}, want: true},
		{name: "three point grade", g: PaperGrade{Ht: 60, Hm: 120, Hs: 190}, want: true},
		{name: "empty grade", g: PaperGrade{}, want: false},
		{name: "missing Hs", g: PaperGrade{Ht: 60}, want: false},
		{name: "Ht above Hs", g: PaperGrade{Ht: 200, Hs: 190}, want: false},
		{name: "Ht equal to Hs", g: PaperGrade{Ht: 190, Hs: 190}, want: false},
		{name: "Hm below Ht", g: PaperGrade{Ht: 60, Hm: 50, Hs: 190}, want: false},
		{name: "Hm above Hs", g: PaperGrade{Ht: 60, Hm: 195, Hs: 190}, want: false},
		{name: "Ht out of range", g: PaperGrade{Ht: 1000, Hs: 1060}, want: false},
	}

	for _, test := range tests {
		got := test.g.IsValid()
		if got != test.want {
			t.Errorf("%s: IsValid = %v, want %v", test.name, got, test.want)
		}
	}
}

func TestPaperRecalculateMidpoints(t *testing.T) {
	var p Paper
	p.Grades[Grade0] = PaperGrade{Ht: 60, Hm: 140, Hs: 230}
	p.Grades[Grade1] = PaperGrade{Ht: 60, Hm: 130, Hs: 210}
	p.Recalculate()

	want := PaperGrade{Ht: 60, Hm: 135, Hs: 220}
	got := p.Grades[Grade0Half]
	if got != want {
		t.Errorf("grade 0-1/2 = %+v, want %+v", got, want)
	}
}

func TestPaperRecalculateSkipsUnusableNeighbours(t *testing.T) {
	var p Paper
	p.Grades[Grade1] = PaperGrade{Ht: 60, Hs: 210}
	// Grade 2 left empty.
	p.Recalculate()

	if !p.Grades[Grade1Half].IsEmpty() {
		t.Errorf("grade 1-1/2 should be empty without both neighbours, got %+v", p.Grades[Grade1Half])
	}
}

func TestPaperRecalculateGrade3Half(t *testing.T) {
	var p Paper
	p.Grades[Grade3] = PaperGrade{Ht: 60, Hm: 120, Hs: 170}
	p.Grades[Grade4] = PaperGrade{Ht: 90, Hs: 180}
	p.Recalculate()

	got := p.Grades[Grade3Half]

	// Exposure follows grade 3: same Ht, same Hm.
	if got.Ht != 60 {
		t.Errorf("grade 3-1/2 Ht = %d, want grade 3's 60", got.Ht)
	}
	if got.Hm != 120 {
		t.Errorf("grade 3-1/2 Hm = %d, want grade 3's 120", got.Hm)
	}

	// Contrast range is averaged: (110 + 90) / 2 = 100.
	if got.Hs != 160 {
		t.Errorf("grade 3-1/2 Hs = %d, want 160", got.Hs)
	}
}

func TestPaperHalfGradesOmitPartialHm(t *testing.T) {
	var p Paper
	p.Grades[Grade2] = PaperGrade{Ht: 60, Hm: 120, Hs: 190}
	p.Grades[Grade3] = PaperGrade{Ht: 60, Hs: 170}
	p.Recalculate()

	if p.Grades[Grade2Half].Hm != 0 {
		t.Errorf("grade 2-1/2 Hm = %d, want 0 when only one neighbour has a speed point", p.Grades[Grade2Half].Hm)
	}
}

func TestDefaultPaperValid(t *testing.T) {
	p := DefaultPaper()
	if !p.IsValid() {
		t.Fatalf("default paper profile must be valid")
	}
	for _, g := range []ContrastGrade{Grade0Half, Grade1Half, Grade2Half, Grade3Half, Grade4Half} {
		if _, ok := p.Grade(g); !ok {
			t.Errorf("default paper should derive grade %s", g)
		}
	}
}

func TestPaperRoundTrip(t *testing.T) {
	p := DefaultPaper()
	p.Name = "MGIV RC"

	data, err := EncodePaper(p)
	if err != nil {
		t.Fatalf("did not expect encode error: %v", err)
	}
	got, err := DecodePaper(data)
	if err != nil {
		t.Fatalf("did not expect decode error: %v", err)
	}
	if !cmp.Equal(got, p) {
		t.Errorf("profiles not equal\nwant: %v\ngot: %v", p, got)
	}
}

func TestPaperDecodeRejectsBadVersion(t *testing.T) {
	_, err := DecodePaper([]byte(`{"version":0}`))
	if !errors.Is(err, ErrBadVersion) {
		t.Errorf("expected ErrBadVersion, got %v", err)
	}
}

func TestPaperIsValidRejectsBadGrade(t *testing.T) {
	var p Paper
	p.Grades[Grade2] = PaperGrade{Ht: 200, Hs: 100}
	if p.IsValid() {
		t.Errorf("profile with inverted grade should be invalid")
	}
}
