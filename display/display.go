/*
DESCRIPTION
  display.go provides the display surface contract: the value types
  the core builds for each screen, and the draw interface an on-device
  renderer implements. Draw calls are synchronous and cheap; the
  renderer owns the framebuffer.

AUTHORS
  Dana Okafor <dana@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

// Package display defines the drawing contract between the control
// core and the on-device renderer.
package display

// TimerElements is a displayable exposure time: whole seconds,
// milliseconds, and how many fraction digits the layout shows.
type TimerElements struct {
	Seconds        uint32
	Milliseconds   uint32
	FractionDigits uint8
}

// PrintingType selects the main screen layout.
type PrintingType uint8

const (
	PrintingBW PrintingType = iota
	PrintingColor
)

// TimeIcon is the state of the time validity icon.
type TimeIcon uint8

const (
	TimeIconNone TimeIcon = iota
	TimeIconNormal
	TimeIconInvalid
)

// MainPrintingElements is the main printing screen.
type MainPrintingElements struct {
	Type PrintingType

	ToneGraph        uint32
	ToneGraphOverlay uint32

	// PaperProfileNum is the 1-based profile number, 0 when none.
	PaperProfileNum int

	BurnDodgeCount int

	ContrastGrade string
	ContrastNote  string

	Channels    [4]uint16
	ChannelWide bool

	Time     TimerElements
	TimeIcon TimeIcon
}

// DensitometerElements is the relative density readout.
type DensitometerElements struct {
	// Whole and Fractional are the density digits; all-ones values
	// mean no reading.
	Whole          uint32
	Fractional     uint32
	FractionDigits uint8
}

// CalibrationElements is the print-exposure calibration screen.
type CalibrationElements struct {
	Title1, Title2 string
	Value          uint32
	Time           TimerElements
	TimeTooShort   bool
}

// TestStripElements is the test strip screen.
type TestStripElements struct {
	Title1, Title2 string

	// Patches is the patch count of the mask; CoveredPatches is a
	// bitmask of patches currently covered, MSB-first.
	Patches        int
	CoveredPatches uint8

	Time TimerElements
}

// AdjustmentElements is the burn/dodge edit screen.
type AdjustmentElements struct {
	Numerator   int8
	Denominator uint8
	Grade       string
	ToneGraph   uint32
}

// Display is the renderer contract.
type Display interface {
	DrawMainPrinting(e MainPrintingElements)
	DrawMainDensitometer(e DensitometerElements)
	DrawMainCalibration(e CalibrationElements)
	DrawExposureTimer(e, prev TimerElements)
	DrawTestStripElements(e TestStripElements)
	DrawTestStripTimer(e TimerElements)
	DrawStopIncrement(denominator uint8)
	DrawModeText(text string)
	DrawExposureAdj(value int, toneGraph uint32)
	DrawTimerAdj(e TimerElements, toneGraph uint32)
	DrawAdjustment(e AdjustmentElements)
	RedrawToneGraph(graph, overlay uint32)
	DrawMessage(title, message string)
}

// TimerFromMs populates timer elements with both a fresh time value
// and the fraction digit count for its magnitude.
func TimerFromMs(ms uint32) TimerElements {
	var e TimerElements
	UpdateTimer(&e, ms)
	switch {
	case ms < 10000:
		e.FractionDigits = 2
	case ms < 100000:
		e.FractionDigits = 1
	default:
		e.FractionDigits = 0
	}
	return e
}

// UpdateTimer updates just the time members of existing elements.
func UpdateTimer(e *TimerElements, ms uint32) {
	e.Seconds = ms / 1000
	e.Milliseconds = roundToTen(ms % 1000)
}

func roundToTen(n uint32) uint32 {
	a := (n / 10) * 10
	b := a + 10
	if n-a > b-n {
		return b
	}
	return a
}

// Null is a Display that draws nothing, for headless operation and
// tests.
type Null struct{}

func (Null) DrawMainPrinting(MainPrintingElements)         {}
func (Null) DrawMainDensitometer(DensitometerElements)     {}
func (Null) DrawMainCalibration(CalibrationElements)       {}
func (Null) DrawExposureTimer(_, _ TimerElements)          {}
func (Null) DrawTestStripElements(TestStripElements)       {}
func (Null) DrawTestStripTimer(TimerElements)              {}
func (Null) DrawStopIncrement(uint8)                       {}
func (Null) DrawModeText(string)                           {}
func (Null) DrawExposureAdj(int, uint32)                   {}
func (Null) DrawTimerAdj(TimerElements, uint32)            {}
func (Null) DrawAdjustment(AdjustmentElements)             {}
func (Null) RedrawToneGraph(uint32, uint32)                {}
func (Null) DrawMessage(string, string)                    {}
