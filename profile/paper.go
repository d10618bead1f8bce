/*
DESCRIPTION
  paper.go provides the paper profile record describing the
  characteristic curve of a printing paper, one set of paper exposure
  values per contrast grade, and the derivation of half-grade curves
  from their whole-grade neighbours.

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
	"fmt"
	"math"
)

// PaperGrade holds the characteristic-curve points for one contrast
// grade, expressed as paper exposure values (PEV).
//
// A PEV is defined as log10(H) * 100, where H is the exposure in
// lux-seconds required to produce a specific density. Values are kept
// integral throughout the system; floating point appears only in curve
// interpolation.
type PaperGrade struct {
	// Ht is the PEV at Dmin + 0.04, the first usable highlight tone.
	Ht uint32 `json:"ht_lev100"`

	// Hm is the PEV at Dmin + 0.60, the paper's speed point. It is
	// optional; zero means the speed point is unknown and the curve is
	// treated as a linear average gradient.
	Hm uint32 `json:"hm_lev100"`

	// Hs is the PEV at 90% of the net density, the deepest usable
	// shadow tone. The paper's ISO(R) contrast range is Hs - Ht.
	Hs uint32 `json:"hs_lev100"`
}

// IsEmpty reports whether the grade carries no curve data at all.
func (g PaperGrade) IsEmpty() bool {
	return g.Ht == 0 && g.Hm == 0 && g.Hs == 0
}

// IsValid checks the value relationships for a populated grade.
func (g PaperGrade) IsValid() bool {
	// All values must be within a sensible maximum.
	if g.Ht > 999 || g.Hm > 999 || g.Hs > 999 {
		return false
	}

	// Ht and Hs must be non-zero, with Ht below Hs.
	if g.Ht == 0 || g.Hs == 0 || g.Ht >= g.Hs {
		return false
	}

	// If the speed point is defined, it must sit between Ht and Hs.
	if g.Hm > 0 && (g.Hm <= g.Ht || g.Hm >= g.Hs) {
		return false
	}

	return true
}

// Paper describes the characteristic curve of a printing paper. The
// whole-numbered grades are stored; half grades are recalculated from
// them on demand.
//
// Terminology follows ISO 6846, the standard for measuring the
// photographic characteristics of black and white printing papers.
type Paper struct {
	Name string `json:"name"`

	// Grades holds curve data indexed by ContrastGrade. Only the
	// whole-grade entries are authoritative; Recalculate fills in the
	// half grades.
	Grades [GradeCount]PaperGrade `json:"grades"`

	// MaxNetDensity is the paper's Dmax relative to its base density.
	// It places the Hs point on an absolute density scale.
	MaxNetDensity float64 `json:"max_net_density"`

	// ContrastFilter names the filter convention shown alongside the
	// grade. Display only.
	ContrastFilter ContrastFilter `json:"contrast_filter"`
}

// IsValid reports whether every grade is either empty or valid.
func (p *Paper) IsValid() bool {
	if p == nil {
		return false
	}
	for i := range p.Grades {
		if !p.Grades[i].IsEmpty() && !p.Grades[i].IsValid() {
			return false
		}
	}
	return true
}

// Grade returns the curve for the requested grade and whether it is
// populated.
func (p *Paper) Grade(g ContrastGrade) (PaperGrade, bool) {
	if p == nil || g >= GradeCount {
		return PaperGrade{}, false
	}
	pg := p.Grades[g]
	return pg, pg.IsValid()
}

// Recalculate refreshes the derived half-grade curves from their
// whole-grade neighbours. Grades 0-1/2 through 4-1/2 are midpoints of
// the adjacent grades. Grade 3-1/2 is the exception: multigrade filter
// sets hold exposure constant from 00 through 3-1/2 and double it for
// 4 and above, so its Ht is taken from grade 3 while its contrast
// range is averaged.
func (p *Paper) Recalculate() {
	if p == nil {
		return
	}
	p.Grades[Grade0Half] = midpointGrade(p.Grades[Grade0], p.Grades[Grade1])
	p.Grades[Grade1Half] = midpointGrade(p.Grades[Grade1], p.Grades[Grade2])
	p.Grades[Grade2Half] = midpointGrade(p.Grades[Grade2], p.Grades[Grade3])
	p.Grades[Grade3Half] = midpointGradeExposureA(p.Grades[Grade3], p.Grades[Grade4])
	p.Grades[Grade4Half] = midpointGrade(p.Grades[Grade4], p.Grades[Grade5])
}

// midpointGrade averages the exposure and contrast of two adjacent
// grades. An empty grade is returned if either neighbour is unusable
// or rounding produced an invalid result.
func midpointGrade(a, b PaperGrade) PaperGrade {
	if !a.IsValid() || !b.IsValid() {
		return PaperGrade{}
	}

	var mid PaperGrade
	mid.Ht = uint32(math.Round((float64(a.Ht) + float64(b.Ht)) / 2))
	mid.Hs = uint32(math.Round((float64(a.Hs) + float64(b.Hs)) / 2))
	if a.Hm > 0 && b.Hm > 0 {
		mid.Hm = uint32(math.Round((float64(a.Hm) + float64(b.Hm)) / 2))
	}

	if !mid.IsValid() {
		return PaperGrade{}
	}
	return mid
}

// midpointGradeExposureA is the grade 3-1/2 case: exposure points come
// from grade A, only the contrast range is averaged.
func midpointGradeExposureA(a, b PaperGrade) PaperGrade {
	if !a.IsValid() || !b.IsValid() {
		return PaperGrade{}
	}

	var mid PaperGrade
	mid.Ht = a.Ht
	contrastA := float64(a.Hs - a.Ht)
	contrastB := float64(b.Hs - b.Ht)
	mid.Hs = mid.Ht + uint32(math.Round((contrastA+contrastB)/2))
	if a.Hm > 0 {
		mid.Hm = a.Hm
	}

	if !mid.IsValid() {
		return PaperGrade{}
	}
	return mid
}

// DefaultPaper returns a fallback profile, roughly modelled on one
// interpretation of an Ilford MGIV RC datasheet. It should only be
// used when no saved paper profile is available.
func DefaultPaper() *Paper {
	p := &Paper{
		Name:          "Default",
		MaxNetDensity: 1.90,
	}
	p.Grades[Grade00] = PaperGrade{Ht: 60, Hs: 240}
	p.Grades[Grade0] = PaperGrade{Ht: 60, Hs: 230}
	p.Grades[Grade1] = PaperGrade{Ht: 60, Hs: 210}
	p.Grades[Grade2] = PaperGrade{Ht: 60, Hs: 190}
	p.Grades[Grade3] = PaperGrade{Ht: 60, Hs: 170}
	p.Grades[Grade4] = PaperGrade{Ht: 90, Hs: 180}
	p.Grades[Grade5] = PaperGrade{Ht: 90, Hs: 160}
	p.Recalculate()
	return p
}

type paperRecord struct {
	Version int `json:"version"`
	Paper
}

// EncodePaper serialises a valid paper profile as a versioned record.
func EncodePaper(p *Paper) ([]byte, error) {
	if !p.IsValid() {
		return nil, ErrInvalidProfile
	}
	return json.Marshal(paperRecord{Version: recordVersion, Paper: *p})
}

// DecodePaper parses a versioned paper record, rejecting mismatched
// versions and invalid profiles.
func DecodePaper(data []byte) (*Paper, error) {
	var rec paperRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("could not parse paper record: %w", err)
	}
	if rec.Version != recordVersion {
		return nil, ErrBadVersion
	}
	p := rec.Paper
	if !p.IsValid() {
		return nil, ErrInvalidProfile
	}
	p.Recalculate()
	return &p, nil
}
