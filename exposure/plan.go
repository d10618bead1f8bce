/*
DESCRIPTION
  plan.go builds the exposure plan: the ordered list of timed light
  segments that realises a base exposure plus its burn/dodge entries.
  The plan is constructed when a run begins, is owned by the execution
  engine for the duration of the run, and is dropped afterwards.

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

	"github.com/opendarkroom/printimer/profile"
)

var (
	ErrPlanEmpty    = errors.New("exposure: plan has no segments")
	ErrPlanTooShort = errors.New("exposure: segment time below timeable range")
)

// SegmentKind says what the printer does with their hands during a
// segment.
type SegmentKind uint8

const (
	// SegmentBase exposes the whole print.
	SegmentBase SegmentKind = iota

	// SegmentDodge exposes the whole print while the dodged area is
	// held back.
	SegmentDodge

	// SegmentBurn exposes only the burned area.
	SegmentBurn
)

// Segment is one timed light output of a plan.
type Segment struct {
	Kind SegmentKind

	// EffectiveMs is the integrated-light duration, rounded to 10 ms.
	EffectiveMs uint32

	// StartTone and EndTone bracket the tones this segment moves on
	// the graph, for display while the segment runs.
	StartTone ToneSet
	EndTone   ToneSet

	// Grade is the contrast grade for the segment.
	Grade profile.ContrastGrade

	// Channels carries the per-channel levels for dimmable heads when
	// the state is in colour mode; zero otherwise.
	Channels profile.ChannelValues
}

// Plan is the ordered segment list for one print.
type Plan struct {
	Segments []Segment
}

// TotalMs returns the summed effective time of all segments.
func (p *Plan) TotalMs() uint32 {
	var total uint32
	for _, seg := range p.Segments {
		total += seg.EffectiveMs
	}
	return total
}

// BuildPlan derives the segment list from the state at the moment the
// user starts a print.
//
// With no burn/dodge entries the plan is a single base segment. A
// dodge entry shortens the base segment (the held-back area receives
// only the shortened time) and appends a dodge segment making up the
// difference. Each burn entry appends a segment with the extra
// exposure its stop adjustment calls for, on its own grade when one is
// set.
func BuildPlan(s *State) (*Plan, error) {
	channels := profile.ChannelValues{}
	if s.Mode() == ModePrintingColor {
		channels = s.Channels()
	}

	base := s.ExposureTime()
	baseSeg := Segment{
		Kind:      SegmentBase,
		Grade:     s.ContrastGrade(),
		Channels:  channels,
		StartTone: s.ToneGraph(),
		EndTone:   s.ToneGraph(),
	}

	var segs []Segment
	var dodgeSeg *Segment

	for i := 0; i < s.BurnDodgeCount(); i++ {
		entry, err := s.BurnDodgeGet(i)
		if err != nil {
			return nil, err
		}
		if entry.Numerator < 0 {
			// The dodged area only receives the reduced time; the
			// rest of the print is topped up to the full base time
			// while the area is held back.
			reduced := base * math.Pow(2, entry.Stops())
			dodgeSeg = &Segment{
				Kind:        SegmentDodge,
				EffectiveMs: RoundedTimeMs(base - reduced),
				Grade:       s.ContrastGrade(),
				Channels:    channels,
				StartTone:   s.BurnDodgeToneGraph(entry),
				EndTone:     s.ToneGraph(),
			}
			base = reduced
			continue
		}
		extra := s.ExposureTime() * (math.Pow(2, entry.Stops()) - 1)
		grade := entry.Grade
		if grade == profile.GradeNone {
			grade = s.ContrastGrade()
		}
		segs = append(segs, Segment{
			Kind:        SegmentBurn,
			EffectiveMs: RoundedTimeMs(extra),
			Grade:       grade,
			Channels:    channels,
			StartTone:   s.ToneGraph(),
			EndTone:     s.BurnDodgeToneGraph(entry),
		})
	}

	baseSeg.EffectiveMs = RoundedTimeMs(base)
	plan := &Plan{Segments: []Segment{baseSeg}}
	if dodgeSeg != nil {
		plan.Segments = append(plan.Segments, *dodgeSeg)
	}
	plan.Segments = append(plan.Segments, segs...)

	for _, seg := range plan.Segments {
		if seg.EffectiveMs == 0 {
			return nil, ErrPlanTooShort
		}
	}
	if len(plan.Segments) == 0 {
		return nil, ErrPlanEmpty
	}
	return plan, nil
}
