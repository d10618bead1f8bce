/*
DESCRIPTION
  state.go represents and manipulates the currently selected exposure
  settings: mode, base time, stops adjustment, contrast grade,
  burn/dodge entries, colour channel levels, and the rolling list of
  meter readings.

AUTHORS
  Miles Whitaker <miles@opendarkroom.org>
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
	"errors"
	"math"

	"github.com/opendarkroom/printimer/profile"
)

// MaxBurnDodge is the maximum number of burn/dodge entries per print.
const MaxBurnDodge = 9

var (
	ErrBurnDodgeFull    = errors.New("exposure: burn/dodge list full")
	ErrBurnDodgeEntry   = errors.New("exposure: invalid burn/dodge entry")
	ErrDodgeNotFirst    = errors.New("exposure: dodge only permitted on the first entry")
	ErrNoSuchEntry      = errors.New("exposure: no such burn/dodge entry")
	ErrNoSuchChannel    = errors.New("exposure: no such channel")
	ErrPaperIndexRange  = errors.New("exposure: paper profile index out of range")
)

// PEVPreset selects which calibration exposure value is being edited.
type PEVPreset uint8

const (
	PEVPresetBase PEVPreset = iota
	PEVPresetStrip
)

// Default calibration exposure values for the two presets, adjustable
// by the user in steps of ten.
const (
	defaultPEVBase  = 250
	defaultPEVStrip = 450
	pevStep         = 10
)

// BurnDodge is one local exposure adjustment: a signed stop fraction
// applied to a sub-area of the print, with an optional contrast grade
// override. A positive numerator burns (adds exposure), a negative one
// dodges (holds exposure back).
type BurnDodge struct {
	Numerator   int8
	Denominator uint8

	// Grade overrides the print's contrast grade for this entry, or
	// profile.GradeNone to inherit it.
	Grade profile.ContrastGrade
}

// Stops returns the entry's adjustment in stops.
func (bd BurnDodge) Stops() float64 {
	if bd.Denominator == 0 {
		return 0
	}
	return float64(bd.Numerator) / float64(bd.Denominator)
}

func (bd BurnDodge) valid() bool {
	if bd.Denominator == 0 {
		return false
	}
	limit := int16(bd.Denominator) * MaxBurnDodge
	n := int16(bd.Numerator)
	return n >= -limit && n <= limit
}

// State holds the selected exposure settings. It is owned and mutated
// by the controller task only; nothing here is safe for concurrent
// use.
type State struct {
	mode Mode

	baseTime     float64 // seconds
	adjustedTime float64 // seconds, derived
	adjustment   int     // twelfths of a stop
	increment    Increment

	grade profile.ContrastGrade

	burnDodge []BurnDodge

	channels    profile.ChannelValues
	channelWide bool

	paper      *profile.Paper
	paperIndex int

	// minExposure is the shortest exposure, in seconds, the active
	// enlarger profile can accurately time. Zero means unknown.
	minExposure float64

	// Meter readings, in lux. The reference reading is the lowest
	// recorded, taken as the brightest print-white position, and
	// refTime is the adjusted time at the moment the first reading of
	// the metering session was recorded.
	readings []float64
	refLux   float64
	refTime  float64

	pevPreset PEVPreset
	pevBase   int
	pevStrip  int
}

// NewState returns a state with conservative defaults. The controller
// normally replaces these with the persisted defaults at startup via
// SetDefaults.
func NewState() *State {
	s := &State{}
	s.SetDefaults(15.0, profile.Grade2, IncrementThird)
	return s
}

// SetDefaults resets the adjustable settings to the given defaults and
// clears the adjustment, burn/dodge list and meter readings.
func (s *State) SetDefaults(baseTime float64, grade profile.ContrastGrade, inc Increment) {
	s.baseTime = clampTime(baseTime)
	s.adjustedTime = s.baseTime
	s.adjustment = 0
	s.increment = inc
	s.grade = grade
	s.burnDodge = nil
	s.channels = profile.ChannelValues{}
	s.pevPreset = PEVPresetBase
	s.pevBase = defaultPEVBase
	s.pevStrip = defaultPEVStrip
	s.ClearMeterReadings()
}

func clampTime(t float64) float64 {
	switch {
	case math.IsNaN(t), t < MinTimeSecs:
		return MinTimeSecs
	case t > MaxTimeSecs:
		return MaxTimeSecs
	}
	return t
}

// Mode returns the current operating mode.
func (s *State) Mode() Mode { return s.mode }

// SetMode changes the operating mode. Meter readings do not carry
// between modes.
func (s *State) SetMode(m Mode) {
	if s.mode != m {
		s.mode = m
		s.ClearMeterReadings()
	}
}

// BaseTime returns the base exposure time in seconds.
func (s *State) BaseTime() float64 { return s.baseTime }

// SetBaseTime replaces the base time, keeping the current adjustment.
func (s *State) SetBaseTime(t float64) {
	s.baseTime = clampTime(t)
	s.recalculate()
}

// SetMinExposureTime records the shortest accurately timeable
// exposure, in seconds, for the active enlarger profile.
func (s *State) SetMinExposureTime(t float64) { s.minExposure = t }

// MinExposureTime returns the recorded minimum, or zero if unknown.
func (s *State) MinExposureTime() float64 { return s.minExposure }

// ExposureTime returns the adjusted exposure time in seconds:
// base * 2^(adjustment/12).
func (s *State) ExposureTime() float64 { return s.adjustedTime }

func (s *State) recalculate() {
	stops := float64(s.adjustment) / 12.0
	s.adjustedTime = s.baseTime * math.Pow(2, stops)
}

// Adjustment returns the current stops adjustment in twelfths.
func (s *State) Adjustment() int { return s.adjustment }

// AdjIncrease steps the adjustment up by the current increment,
// refusing to move past +12 stops or a 999 second adjusted time.
func (s *State) AdjIncrease() {
	next := s.adjustment + int(s.increment)
	if next > MaxAdjustment {
		return
	}
	if s.baseTime*math.Pow(2, float64(next)/12.0) > MaxTimeSecs {
		return
	}
	s.adjustment = next
	s.recalculate()
}

// AdjDecrease steps the adjustment down by the current increment,
// refusing to move past -12 stops or a 0.01 second adjusted time.
func (s *State) AdjDecrease() {
	next := s.adjustment - int(s.increment)
	if next < MinAdjustment {
		return
	}
	if s.baseTime*math.Pow(2, float64(next)/12.0) < MinTimeSecs {
		return
	}
	s.adjustment = next
	s.recalculate()
}

// AdjSet sets the adjustment directly, clamped to +/- 12 stops.
func (s *State) AdjSet(v int) {
	if v > MaxAdjustment {
		v = MaxAdjustment
	} else if v < MinAdjustment {
		v = MinAdjustment
	}
	s.adjustment = v
	s.recalculate()
}

// AdjMin returns the lowest reachable adjustment for the current base
// time, limited by the 0.01 second floor.
func (s *State) AdjMin() int {
	limit := int(math.Ceil(12 * math.Log2(MinTimeSecs/s.baseTime)))
	if limit < MinAdjustment {
		return MinAdjustment
	}
	return limit
}

// AdjMax returns the highest reachable adjustment for the current base
// time, limited by the 999 second cap.
func (s *State) AdjMax() int {
	limit := int(math.Floor(12 * math.Log2(MaxTimeSecs/s.baseTime)))
	if limit > MaxAdjustment {
		return MaxAdjustment
	}
	return limit
}

// Increment returns the adjustment step size.
func (s *State) Increment() Increment { return s.increment }

// IncrementIncrease selects the next finer step size.
func (s *State) IncrementIncrease() { s.increment = s.increment.Smaller() }

// IncrementDecrease selects the next coarser step size.
func (s *State) IncrementDecrease() { s.increment = s.increment.Larger() }

// ContrastGrade returns the selected contrast grade.
func (s *State) ContrastGrade() profile.ContrastGrade { return s.grade }

// SetContrastGrade selects a grade directly.
func (s *State) SetContrastGrade(g profile.ContrastGrade) {
	if g < profile.GradeCount {
		s.grade = g
	}
}

// ContrastIncrease steps one grade harder, saturating at 5.
func (s *State) ContrastIncrease() {
	if s.grade < profile.Grade5 {
		s.grade++
	}
}

// ContrastDecrease steps one grade softer, saturating at 00.
func (s *State) ContrastDecrease() {
	if s.grade > profile.Grade00 {
		s.grade--
	}
}

// ChannelValue returns the level of colour channel i (R, G, B, W).
func (s *State) ChannelValue(i int) uint16 {
	if i < 0 || i >= len(s.channels) {
		return 0
	}
	return s.channels[i]
}

// SetChannelValue sets the level of colour channel i.
func (s *State) SetChannelValue(i int, v uint16) error {
	if i < 0 || i >= len(s.channels) {
		return ErrNoSuchChannel
	}
	s.channels[i] = v
	return nil
}

// Channels returns all four channel levels.
func (s *State) Channels() profile.ChannelValues { return s.channels }

// ChannelWide reports whether channel values are 16-bit.
func (s *State) ChannelWide() bool { return s.channelWide }

// SetChannelWide selects between 8- and 16-bit channel values.
func (s *State) SetChannelWide(wide bool) { s.channelWide = wide }

// ActivePaperProfileIndex returns the selected paper profile index, or
// -1 when none is active.
func (s *State) ActivePaperProfileIndex() int {
	if s.paper == nil {
		return -1
	}
	return s.paperIndex
}

// SetActivePaperProfile activates a paper profile for tone graph
// calculations.
func (s *State) SetActivePaperProfile(p *profile.Paper, index int) error {
	if index < 0 {
		return ErrPaperIndexRange
	}
	if !p.IsValid() {
		return profile.ErrInvalidProfile
	}
	s.paper = p
	s.paperIndex = index
	return nil
}

// ClearActivePaperProfile deactivates the paper profile.
func (s *State) ClearActivePaperProfile() {
	s.paper = nil
	s.paperIndex = 0
}

// BurnDodgeCount returns the number of burn/dodge entries.
func (s *State) BurnDodgeCount() int { return len(s.burnDodge) }

// BurnDodgeGet returns entry i.
func (s *State) BurnDodgeGet(i int) (BurnDodge, error) {
	if i < 0 || i >= len(s.burnDodge) {
		return BurnDodge{}, ErrNoSuchEntry
	}
	return s.burnDodge[i], nil
}

// BurnDodgeSet replaces entry i, or appends when i equals the current
// count. A dodge (negative numerator) is only permitted in the first
// position.
func (s *State) BurnDodgeSet(entry BurnDodge, i int) error {
	if !entry.valid() {
		return ErrBurnDodgeEntry
	}
	if entry.Numerator < 0 && i != 0 {
		return ErrDodgeNotFirst
	}
	switch {
	case i >= 0 && i < len(s.burnDodge):
		s.burnDodge[i] = entry
	case i == len(s.burnDodge):
		if len(s.burnDodge) >= MaxBurnDodge {
			return ErrBurnDodgeFull
		}
		s.burnDodge = append(s.burnDodge, entry)
	default:
		return ErrNoSuchEntry
	}
	return nil
}

// BurnDodgeDelete removes entry i. If the removal promotes a dodge out
// of the first position the list would become invalid, so a dodge
// anywhere but entry zero can never result from this operation: a
// dodge is only ever at index zero and deleting it shifts burns down.
func (s *State) BurnDodgeDelete(i int) error {
	if i < 0 || i >= len(s.burnDodge) {
		return ErrNoSuchEntry
	}
	s.burnDodge = append(s.burnDodge[:i], s.burnDodge[i+1:]...)
	return nil
}

// BurnDodgeDeleteAll clears the list.
func (s *State) BurnDodgeDeleteAll() { s.burnDodge = nil }

// TestStripTimeComplete returns the full exposure time, in seconds,
// for test strip patch number `patch` relative to the base patch.
func (s *State) TestStripTimeComplete(patch int) float64 {
	patchAdjustment := int(s.increment) * patch
	stops := float64(patchAdjustment) / 12.0
	return s.adjustedTime * math.Pow(2, stops)
}

// TestStripTimeIncremental returns the additional exposure time for
// the next patch of an incremental test strip, where patchMin is the
// patch number of the first (shortest) patch and covered is the number
// of patches already exposed.
func (s *State) TestStripTimeIncremental(patchMin int, covered uint) float64 {
	if covered == 0 {
		return s.TestStripTimeComplete(patchMin)
	}
	prev := s.TestStripTimeComplete(patchMin + int(covered) - 1)
	curr := s.TestStripTimeComplete(patchMin + int(covered))
	return curr - prev
}

// TestStripPatchPEV returns the calibration PEV for a test strip
// patch, offset from the strip preset by the patch's stop adjustment.
func (s *State) TestStripPatchPEV(patch int) uint32 {
	stops := float64(int(s.increment)*patch) / 12.0
	return clampPEV(float64(s.pevStrip) + stops*pevPerStop)
}

// AddMeterReading appends a probe reading, in lux, and returns the
// tone it contributes to the graph. The first reading of a metering
// session fixes the session's reference exposure time.
func (s *State) AddMeterReading(lux float64) ToneSet {
	if lux <= 0 || math.IsNaN(lux) || math.IsInf(lux, 0) {
		return 0
	}
	if len(s.readings) == 0 {
		s.refTime = s.adjustedTime
		s.refLux = lux
	} else if lux < s.refLux {
		s.refLux = lux
	}
	s.readings = append(s.readings, lux)
	return s.MeterReadingTone(lux)
}

// ClearMeterReadings discards the metering session.
func (s *State) ClearMeterReadings() {
	s.readings = nil
	s.refLux = 0
	s.refTime = 0
}

// MeterReadingCount returns the number of recorded readings.
func (s *State) MeterReadingCount() int { return len(s.readings) }

// readingPEV places a reading on the paper curve for the given grade
// at the given exposure time. The reference reading sits at the
// grade's Ht when the time matches the metering session; adjusting the
// time shifts every reading along the curve.
func (s *State) readingPEV(lux float64, g profile.PaperGrade, atTime float64) float64 {
	pev := float64(g.Ht)
	pev += 100 * math.Log10(lux/s.refLux)
	if s.refTime > 0 && atTime > 0 {
		pev += 100 * math.Log10(atTime/s.refTime)
	}
	return pev
}

func (s *State) graphAt(g profile.PaperGrade, atTime float64) ToneSet {
	if len(s.readings) == 0 || g.Hs <= g.Ht {
		return 0
	}
	var set ToneSet
	for _, lux := range s.readings {
		set = set.Add(toneForPEV(s.readingPEV(lux, g, atTime), g))
	}
	return set
}

// activeGrade returns the curve for the current grade, falling back to
// an empty grade when no paper profile is active.
func (s *State) activeGrade() (profile.PaperGrade, bool) {
	if s.paper == nil {
		return profile.PaperGrade{}, false
	}
	return s.paper.Grade(s.grade)
}

// gradeFor resolves a burn/dodge grade override against the active
// paper profile.
func (s *State) gradeFor(g profile.ContrastGrade) (profile.PaperGrade, bool) {
	if s.paper == nil {
		return profile.PaperGrade{}, false
	}
	if g == profile.GradeNone {
		g = s.grade
	}
	return s.paper.Grade(g)
}

// ToneGraph returns the tone graph for the current settings and
// readings. An empty set means no readings or no usable paper profile.
func (s *State) ToneGraph() ToneSet {
	g, ok := s.activeGrade()
	if !ok {
		return 0
	}
	return s.graphAt(g, s.adjustedTime)
}

// AdjustedToneGraph returns the graph as it would look with the stops
// adjustment changed by `adjustment` twelfths.
func (s *State) AdjustedToneGraph(adjustment int) ToneSet {
	g, ok := s.activeGrade()
	if !ok {
		return 0
	}
	stops := float64(adjustment) / 12.0
	return s.graphAt(g, s.adjustedTime*math.Pow(2, stops))
}

// AbsoluteToneGraph returns the graph for an arbitrary exposure time.
func (s *State) AbsoluteToneGraph(seconds float64) ToneSet {
	g, ok := s.activeGrade()
	if !ok {
		return 0
	}
	return s.graphAt(g, seconds)
}

// BurnDodgeToneGraph returns the graph contribution of one burn/dodge
// entry: the readings shifted by the entry's stops, on the entry's
// grade override if one is set.
func (s *State) BurnDodgeToneGraph(entry BurnDodge) ToneSet {
	g, ok := s.gradeFor(entry.Grade)
	if !ok {
		return 0
	}
	return s.graphAt(g, s.adjustedTime*math.Pow(2, entry.Stops()))
}

// MeterReadingTone returns the tone a reading would contribute without
// recording it. Used for the live probe cursor during focus.
func (s *State) MeterReadingTone(lux float64) ToneSet {
	g, ok := s.activeGrade()
	if !ok || len(s.readings) == 0 || lux <= 0 {
		return 0
	}
	return ToneSet(0).Add(toneForPEV(s.readingPEV(lux, g, s.adjustedTime), g))
}

// RelativeDensity returns the density of the latest densitometer
// reading relative to the first reading of the session, or NaN when
// fewer than two readings exist.
func (s *State) RelativeDensity() float64 {
	if len(s.readings) < 2 {
		return math.NaN()
	}
	ref := s.readings[0]
	latest := s.readings[len(s.readings)-1]
	if ref <= 0 || latest <= 0 {
		return math.NaN()
	}
	return math.Log10(ref / latest)
}

// PEVPreset returns the calibration preset being edited.
func (s *State) PEVPreset() PEVPreset { return s.pevPreset }

// SetPEVPreset selects which calibration value is being edited.
func (s *State) SetPEVPreset(p PEVPreset) { s.pevPreset = p }

// PEVIncrease raises the selected calibration value one step.
func (s *State) PEVIncrease() {
	v := s.pevValue() + pevStep
	s.setPEVValue(v)
}

// PEVDecrease lowers the selected calibration value one step.
func (s *State) PEVDecrease() {
	v := s.pevValue() - pevStep
	s.setPEVValue(v)
}

func (s *State) pevValue() int {
	if s.pevPreset == PEVPresetStrip {
		return s.pevStrip
	}
	return s.pevBase
}

func (s *State) setPEVValue(v int) {
	if v < 0 {
		v = 0
	}
	if v > 999 {
		v = 999
	}
	if s.pevPreset == PEVPresetStrip {
		s.pevStrip = v
	} else {
		s.pevBase = v
	}
}

// CalibrationPEV returns the print exposure value for the calibration
// display: the selected preset value shifted by the current stops
// adjustment.
func (s *State) CalibrationPEV() uint32 {
	stops := float64(s.adjustment) / 12.0
	return clampPEV(float64(s.pevValue()) + stops*pevPerStop)
}

func clampPEV(v float64) uint32 {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 999 {
		return 999
	}
	return uint32(r)
}
