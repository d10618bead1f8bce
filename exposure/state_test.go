/*
DESCRIPTION
  state_test.go provides testing for the exposure state arithmetic:
  stops adjustments, increments, test strip times, and the burn/dodge
  list rules.

AUTHORS
  Miles Whitaker <miles@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

package exposure

import (
	"errors"
	"math"
	"testing"

	"github.com/opendarkroom/printimer/profile"
)

func newTestState(base float64, inc Increment) *State {
	s := NewState()
	s.SetDefaults(base, profile.Grade2, inc)
	return s
}

func TestExposureTimeStopsDoubling(t *testing.T) {
	s := newTestState(5.0, IncrementTwelfth)

	s.AdjSet(12)
	if got := s.ExposureTime(); math.Abs(got-10.0) > 1e-4 {
		t.Errorf("one stop up from 5s = %v, want 10", got)
	}

	s.AdjSet(-12)
	if got := s.ExposureTime(); math.Abs(got-2.5) > 1e-4 {
		t.Errorf("one stop down from 5s = %v, want 2.5", got)
	}

	s.AdjSet(0)
	base := s.ExposureTime()
	s.AdjSet(12)
	if got := s.ExposureTime(); math.Abs(got-2*base) > 1e-4 {
		t.Errorf("adj += 12 should double: %v vs %v", got, base)
	}
}

func TestExposureTimeMonotoneInAdjustment(t *testing.T) {
	s := newTestState(8.0, IncrementTwelfth)

	prev := math.Inf(-1)
	for adj := -48; adj <= 48; adj++ {
		s.AdjSet(adj)
		got := s.ExposureTime()
		if got <= prev {
			t.Fatalf("exposure time not monotone at adj=%d: %v <= %v", adj, got, prev)
		}
		prev = got
	}
}

func TestAdjClamps(t *testing.T) {
	s := newTestState(5.0, IncrementWhole)

	s.AdjSet(MaxAdjustment + 50)
	if got := s.Adjustment(); got != MaxAdjustment {
		t.Errorf("adjustment clamp high = %d, want %d", got, MaxAdjustment)
	}
	s.AdjSet(MinAdjustment - 50)
	if got := s.Adjustment(); got != MinAdjustment {
		t.Errorf("adjustment clamp low = %d, want %d", got, MinAdjustment)
	}

	// Steps refuse to move once the adjusted time is out of range.
	s.SetBaseTime(999)
	s.AdjSet(0)
	s.AdjIncrease()
	if got := s.Adjustment(); got != 0 {
		t.Errorf("increase past 999s should be refused, adj = %d", got)
	}

	s.SetBaseTime(0.01)
	s.AdjSet(0)
	s.AdjDecrease()
	if got := s.Adjustment(); got != 0 {
		t.Errorf("decrease past 0.01s should be refused, adj = %d", got)
	}
}

func TestAdjBounds(t *testing.T) {
	s := newTestState(5.0, IncrementTwelfth)

	max := s.AdjMax()
	s.AdjSet(max)
	if got := s.ExposureTime(); got > MaxTimeSecs {
		t.Errorf("time at AdjMax = %v, beyond cap", got)
	}

	min := s.AdjMin()
	s.AdjSet(min)
	if got := s.ExposureTime(); got < MinTimeSecs-1e-9 {
		t.Errorf("time at AdjMin = %v, below floor", got)
	}
}

func TestIncrementLadder(t *testing.T) {
	s := newTestState(5.0, IncrementThird)

	want := []Increment{IncrementQuarter, IncrementSixth, IncrementTwelfth, IncrementTwelfth}
	for i, w := range want {
		s.IncrementIncrease()
		if got := s.Increment(); got != w {
			t.Fatalf("increase %d: increment = %v, want %v", i, got, w)
		}
	}

	s.SetDefaults(5.0, profile.Grade2, IncrementThird)
	wantDown := []Increment{IncrementHalf, IncrementWhole, IncrementWhole}
	for i, w := range wantDown {
		s.IncrementDecrease()
		if got := s.Increment(); got != w {
			t.Fatalf("decrease %d: increment = %v, want %v", i, got, w)
		}
	}
}

func TestContrastSaturates(t *testing.T) {
	s := newTestState(5.0, IncrementThird)

	for i := 0; i < 30; i++ {
		s.ContrastIncrease()
	}
	if got := s.ContrastGrade(); got != profile.Grade5 {
		t.Errorf("contrast should saturate at 5, got %v", got)
	}
	for i := 0; i < 30; i++ {
		s.ContrastDecrease()
	}
	if got := s.ContrastGrade(); got != profile.Grade00 {
		t.Errorf("contrast should saturate at 00, got %v", got)
	}
}

func TestTestStripTimes(t *testing.T) {
	// Five patches at half-stop steps around a 4 second base.
	s := newTestState(4.0, IncrementHalf)
	const patchMin = -2

	wantComplete := []float64{2.000, 2.828, 4.000, 5.657, 8.000}
	wantIncremental := []float64{2.000, 0.828, 1.172, 1.657, 2.343}

	for i := 0; i < 5; i++ {
		got := s.TestStripTimeComplete(patchMin + i)
		if math.Abs(got-wantComplete[i]) > 5e-4 {
			t.Errorf("complete patch %d = %v, want %v", i, got, wantComplete[i])
		}

		inc := s.TestStripTimeIncremental(patchMin, uint(i))
		if math.Abs(inc-wantIncremental[i]) > 5e-4 {
			t.Errorf("incremental patch %d = %v, want %v", i, inc, wantIncremental[i])
		}
	}

	// The incremental times must sum to the last complete time
	// exactly in ms-rounded arithmetic.
	var sum float64
	for i := 0; i < 5; i++ {
		sum += s.TestStripTimeIncremental(patchMin, uint(i))
	}
	complete := s.TestStripTimeComplete(patchMin + 4)
	if RoundedTimeMs(sum) != RoundedTimeMs(complete) {
		t.Errorf("incremental sum %v != complete %v", sum, complete)
	}
}

func TestTestStripIncrementalSumsProperty(t *testing.T) {
	for _, inc := range []Increment{IncrementTwelfth, IncrementQuarter, IncrementThird, IncrementWhole} {
		s := newTestState(7.3, inc)
		for i := 0; i <= 6; i++ {
			var sum float64
			for k := 0; k <= i; k++ {
				sum += s.TestStripTimeIncremental(-3, uint(k))
			}
			complete := s.TestStripTimeComplete(-3 + i)
			if RoundedTimeMs(sum) != RoundedTimeMs(complete) {
				t.Errorf("inc %v patch %d: sum %v != complete %v", inc, i, sum, complete)
			}
		}
	}
}

func TestBurnDodgeRules(t *testing.T) {
	s := newTestState(10.0, IncrementHalf)

	// A dodge in the first slot is fine.
	err := s.BurnDodgeSet(BurnDodge{Numerator: -6, Denominator: 12, Grade: profile.GradeNone}, 0)
	if err != nil {
		t.Fatalf("dodge on first entry refused: %v", err)
	}

	// A dodge anywhere else is refused.
	err = s.BurnDodgeSet(BurnDodge{Numerator: -3, Denominator: 12, Grade: profile.GradeNone}, 1)
	if !errors.Is(err, ErrDodgeNotFirst) {
		t.Errorf("expected ErrDodgeNotFirst, got %v", err)
	}

	// Burns append up to the limit.
	for i := 1; i < MaxBurnDodge; i++ {
		err = s.BurnDodgeSet(BurnDodge{Numerator: 6, Denominator: 12, Grade: profile.GradeNone}, i)
		if err != nil {
			t.Fatalf("burn %d refused: %v", i, err)
		}
	}
	err = s.BurnDodgeSet(BurnDodge{Numerator: 6, Denominator: 12, Grade: profile.GradeNone}, MaxBurnDodge)
	if !errors.Is(err, ErrBurnDodgeFull) {
		t.Errorf("expected ErrBurnDodgeFull, got %v", err)
	}

	// Numerator bounded to nine stops.
	err = s.BurnDodgeSet(BurnDodge{Numerator: 55, Denominator: 6, Grade: profile.GradeNone}, 0)
	if !errors.Is(err, ErrBurnDodgeEntry) {
		t.Errorf("expected ErrBurnDodgeEntry for out of range numerator, got %v", err)
	}

	// Deleting shifts the list down.
	count := s.BurnDodgeCount()
	err = s.BurnDodgeDelete(0)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if got := s.BurnDodgeCount(); got != count-1 {
		t.Errorf("count after delete = %d, want %d", got, count-1)
	}

	s.BurnDodgeDeleteAll()
	if got := s.BurnDodgeCount(); got != 0 {
		t.Errorf("count after delete all = %d, want 0", got)
	}
}

func TestRoundedTimeMs(t *testing.T) {
	tests := []struct {
		seconds float64
		want    uint32
	}{
		{0.01, 10},
		{2.828, 2830},
		{10.0, 10000},
		{999.0, 999000},
		{1e6, 1000000},
	}
	for _, test := range tests {
		got := RoundedTimeMs(test.seconds)
		if got != test.want {
			t.Errorf("RoundedTimeMs(%v) = %d, want %d", test.seconds, got, test.want)
		}
	}
}

func TestRelativeDensity(t *testing.T) {
	s := newTestState(10.0, IncrementHalf)
	s.SetMode(ModeDensitometer)

	if !math.IsNaN(s.RelativeDensity()) {
		t.Errorf("density without readings should be NaN")
	}

	s.AddMeterReading(1000)
	s.AddMeterReading(10)
	if got := s.RelativeDensity(); math.Abs(got-2.0) > 1e-9 {
		t.Errorf("relative density = %v, want 2.0", got)
	}
}
