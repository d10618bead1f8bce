/*
DESCRIPTION
  profile.go provides the contrast grade scale and contrast filter
  designations shared by the enlarger and paper profile records.

AUTHORS
  Miles Whitaker <miles@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

// Package profile contains the data records that describe the printing
// hardware and materials: enlarger lamp timing profiles, paper
// characteristic-curve profiles, and calibrated step wedges.
package profile

// ContrastGrade identifies one of the multigrade paper contrast grades,
// from 00 (softest) through 5 (hardest), including half grades.
type ContrastGrade uint8

const (
	Grade00 ContrastGrade = iota
	Grade0
	Grade0Half
	Grade1
	Grade1Half
	Grade2
	Grade2Half
	Grade3
	Grade3Half
	Grade4
	Grade4Half
	Grade5
	GradeCount
)

// GradeNone marks the absence of a grade selection, such as when a
// dimmable head is driven by explicit channel values instead.
const GradeNone ContrastGrade = 0xFF

var gradeNames = [GradeCount]string{
	"00", "0", "0-1/2", "1", "1-1/2", "2", "2-1/2", "3", "3-1/2", "4", "4-1/2", "5",
}

func (g ContrastGrade) String() string {
	if g >= GradeCount {
		return "?"
	}
	return gradeNames[g]
}

// IsWhole reports whether the grade is one of the whole-numbered grades
// that are stored directly in a paper profile. The half grades are
// derived from their neighbours on demand.
func (g ContrastGrade) IsWhole() bool {
	switch g {
	case Grade00, Grade0, Grade1, Grade2, Grade3, Grade4, Grade5:
		return true
	}
	return false
}

// ContrastFilter identifies the filter numbering convention used when
// exposing the paper. It is carried for display purposes only, so the
// grade shown on screen matches the filters in the user's drawer.
type ContrastFilter uint8

const (
	FilterRegular ContrastFilter = iota
	FilterDurst170M
	FilterDurst130M
	FilterKodak
	filterCount
)

func (f ContrastFilter) String() string {
	switch f {
	case FilterRegular:
		return "Regular"
	case FilterDurst170M:
		return "Durst 170M"
	case FilterDurst130M:
		return "Durst 130M"
	case FilterKodak:
		return "Kodak"
	}
	return "?"
}
