/*
DESCRIPTION
  config.go contains the persisted configuration settings for the
  timer: printing defaults, test strip behaviour, safelight mode,
  buzzer volume, and the saved enlarger and paper profile lists.

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

// Package config contains the configuration settings for the timer and
// their persistence.
package config

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ausocean/utils/logging"

	"github.com/opendarkroom/printimer/device"
	"github.com/opendarkroom/printimer/device/buzzer"
	"github.com/opendarkroom/printimer/exposure"
	"github.com/opendarkroom/printimer/profile"
)

// Configuration field errors.
var (
	errInvalidContrastGrade    = errors.New("invalid default contrast grade, defaulting")
	errInvalidStepSize         = errors.New("invalid default step size, defaulting")
	errInvalidTestStripMode    = errors.New("invalid test strip mode, defaulting")
	errInvalidTestStripPatches = errors.New("invalid test strip patch count, defaulting")
	errInvalidSafelightMode    = errors.New("invalid safelight mode, defaulting")
	errInvalidBuzzerVolume     = errors.New("invalid buzzer volume, defaulting")
)

// MaxProfiles bounds the saved enlarger and paper profile lists.
const MaxProfiles = 16

// TestStripMode selects between separate and incremental test strip
// exposures.
type TestStripMode uint8

const (
	// TestStripSeparate exposes each patch for its full time with the
	// other patches covered.
	TestStripSeparate TestStripMode = iota

	// TestStripIncremental covers one more patch after each exposure,
	// each exposure after the first adding the difference to the
	// previous patch.
	TestStripIncremental
)

// TestStripPatches selects the patch count of the test strip mask.
// The zero value is the 7-patch mask.
type TestStripPatches uint8

const (
	TestStripPatches7 TestStripPatches = iota
	TestStripPatches5
)

// Count returns the number of patches.
func (p TestStripPatches) Count() int {
	if p == TestStripPatches5 {
		return 5
	}
	return 7
}

// PatchMin returns the patch number of the first (shortest) patch,
// placing the base exposure in the middle of the strip.
func (p TestStripPatches) PatchMin() int {
	if p == TestStripPatches5 {
		return -2
	}
	return -3
}

// SafelightMode controls how the safelight relay follows the system
// state. The zero value is automatic.
type SafelightMode uint8

const (
	// SafelightModeAuto keeps the safelight on except during exposure
	// and measurement.
	SafelightModeAuto SafelightMode = iota

	// SafelightModeOff keeps the safelight off at all times.
	SafelightModeOff

	// SafelightModeOn keeps the safelight on except during focus,
	// exposure and measurement.
	SafelightModeOn
)

// Default values, applied by Validate to unset fields.
const (
	defaultExposureTime      = uint32(15000) // ms
	defaultContrastGrade     = profile.Grade2
	defaultStepSize          = exposure.IncrementThird
	defaultSafelightOffDelay = uint32(300)    // ms
	defaultFocusTimeout      = uint32(300000) // ms
)

// Factory returns the factory default configuration, used when no
// settings document exists yet.
func Factory() Config {
	return Config{
		DefaultExposureTime:  defaultExposureTime,
		DefaultContrastGrade: defaultContrastGrade,
		DefaultStepSize:      defaultStepSize,
		SafelightOffDelay:    defaultSafelightOffDelay,
		FocusTimeout:         defaultFocusTimeout,
	}
}

// Config provides the parameters for a timer instance. Validate fills
// the unset-able fields with defaults; Factory provides a complete
// starting point for a fresh device.
type Config struct {
	// Logger is used for logging throughout configuration handling.
	Logger logging.Logger `json:"-"`

	// DefaultExposureTime is the base exposure time, in milliseconds,
	// applied when the exposure state is reset.
	DefaultExposureTime uint32 `json:"default_exposure_time"`

	// DefaultContrastGrade is the grade applied on reset.
	DefaultContrastGrade profile.ContrastGrade `json:"default_contrast_grade"`

	// DefaultStepSize is the stop-adjustment increment applied on
	// reset.
	DefaultStepSize exposure.Increment `json:"default_step_size"`

	TestStripMode    TestStripMode    `json:"teststrip_mode"`
	TestStripPatches TestStripPatches `json:"teststrip_patches"`

	SafelightMode SafelightMode `json:"safelight_mode"`

	// SafelightOffDelay is the settle time between suppressing the
	// safelight and asserting the enlarger, in milliseconds.
	SafelightOffDelay uint32 `json:"safelight_off_delay"`

	// FocusTimeout forces the focus lamp off after this many
	// milliseconds without the user leaving focus mode.
	FocusTimeout uint32 `json:"focus_timeout"`

	BuzzerVolume buzzer.Volume `json:"buzzer_volume"`

	// EnlargerConfigs is the saved enlarger profile list, flat and
	// index addressed; DefaultEnlargerIndex selects the active one.
	EnlargerConfigs      []profile.Enlarger `json:"enlarger_configs"`
	DefaultEnlargerIndex int                `json:"default_enlarger_index"`

	// PaperProfiles is the saved paper profile list;
	// DefaultPaperIndex selects the active one.
	PaperProfiles     []profile.Paper `json:"paper_profiles"`
	DefaultPaperIndex int             `json:"default_paper_index"`

	// StepWedge is the calibrated wedge used for paper profiling.
	StepWedge *profile.StepWedge `json:"step_wedge,omitempty"`
}

// Validate fills unset fields with defaults and bounds the profile
// lists and indices. Out-of-range values and saved profiles that
// violate their invariants are replaced or dropped, never silently
// repaired: every correction is reported through the returned
// MultiError, while the defaults are applied so the caller can
// proceed. The one exception is a default enlarger or paper index
// that is out of range after the lists are bounded: it is reset to 0
// without a report.
func (c *Config) Validate() error {
	var errs device.MultiError

	if c.DefaultExposureTime == 0 {
		c.DefaultExposureTime = defaultExposureTime
	}
	if c.DefaultContrastGrade >= profile.GradeCount {
		errs = append(errs, errInvalidContrastGrade)
		c.DefaultContrastGrade = defaultContrastGrade
	}
	if c.DefaultStepSize == 0 {
		c.DefaultStepSize = defaultStepSize
	} else if c.DefaultStepSize.Denominator() == 0 {
		errs = append(errs, errInvalidStepSize)
		c.DefaultStepSize = defaultStepSize
	}
	if c.TestStripMode > TestStripIncremental {
		errs = append(errs, errInvalidTestStripMode)
		c.TestStripMode = TestStripSeparate
	}
	if c.TestStripPatches > TestStripPatches5 {
		errs = append(errs, errInvalidTestStripPatches)
		c.TestStripPatches = TestStripPatches7
	}
	if c.SafelightMode > SafelightModeOn {
		errs = append(errs, errInvalidSafelightMode)
		c.SafelightMode = SafelightModeAuto
	}
	if c.SafelightOffDelay == 0 {
		c.SafelightOffDelay = defaultSafelightOffDelay
	}
	if c.FocusTimeout == 0 {
		c.FocusTimeout = defaultFocusTimeout
	}
	if c.BuzzerVolume > buzzer.VolumeHigh {
		errs = append(errs, errInvalidBuzzerVolume)
		c.BuzzerVolume = buzzer.VolumeMedium
	}

	if len(c.EnlargerConfigs) > MaxProfiles {
		errs = append(errs, fmt.Errorf("dropping enlarger profiles beyond %d", MaxProfiles))
		c.EnlargerConfigs = c.EnlargerConfigs[:MaxProfiles]
	}
	kept := c.EnlargerConfigs[:0]
	for i := range c.EnlargerConfigs {
		if c.EnlargerConfigs[i].IsValid() {
			kept = append(kept, c.EnlargerConfigs[i])
			continue
		}
		errs = append(errs, fmt.Errorf("dropping invalid enlarger profile %q", c.EnlargerConfigs[i].Name))
	}
	c.EnlargerConfigs = kept
	if c.DefaultEnlargerIndex < 0 || c.DefaultEnlargerIndex >= len(c.EnlargerConfigs) {
		c.DefaultEnlargerIndex = 0
	}

	if len(c.PaperProfiles) > MaxProfiles {
		errs = append(errs, fmt.Errorf("dropping paper profiles beyond %d", MaxProfiles))
		c.PaperProfiles = c.PaperProfiles[:MaxProfiles]
	}
	keptPaper := c.PaperProfiles[:0]
	for i := range c.PaperProfiles {
		if c.PaperProfiles[i].IsValid() {
			c.PaperProfiles[i].Recalculate()
			keptPaper = append(keptPaper, c.PaperProfiles[i])
			continue
		}
		errs = append(errs, fmt.Errorf("dropping invalid paper profile %q", c.PaperProfiles[i].Name))
	}
	c.PaperProfiles = keptPaper
	if c.DefaultPaperIndex < 0 || c.DefaultPaperIndex >= len(c.PaperProfiles) {
		c.DefaultPaperIndex = 0
	}

	if c.StepWedge != nil && !c.StepWedge.IsValid() {
		errs = append(errs, fmt.Errorf("dropping invalid step wedge %q", c.StepWedge.Name))
		c.StepWedge = nil
	}

	if len(errs) != 0 {
		return errs
	}
	return nil
}

// Update looks through the vars and updates the config where the
// variables are recognised as valid parameters.
func (c *Config) Update(vars map[string]string) {
	for key, value := range vars {
		switch key {
		case "DefaultExposureTime":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				c.logInvalidField(key, err)
				break
			}
			c.DefaultExposureTime = uint32(v)
		case "DefaultContrastGrade":
			g, err := parseGrade(value)
			if err != nil {
				c.logInvalidField(key, err)
				break
			}
			c.DefaultContrastGrade = g
		case "DefaultStepSize":
			v, err := strconv.Atoi(value)
			if err != nil || exposure.Increment(v).Denominator() == 0 {
				c.logInvalidField(key, err)
				break
			}
			c.DefaultStepSize = exposure.Increment(v)
		case "TestStripMode":
			switch value {
			case "Separate":
				c.TestStripMode = TestStripSeparate
			case "Incremental":
				c.TestStripMode = TestStripIncremental
			default:
				c.logInvalidField(key, nil)
			}
		case "TestStripPatches":
			switch value {
			case "5":
				c.TestStripPatches = TestStripPatches5
			case "7":
				c.TestStripPatches = TestStripPatches7
			default:
				c.logInvalidField(key, nil)
			}
		case "SafelightMode":
			switch value {
			case "Off":
				c.SafelightMode = SafelightModeOff
			case "On":
				c.SafelightMode = SafelightModeOn
			case "Auto":
				c.SafelightMode = SafelightModeAuto
			default:
				c.logInvalidField(key, nil)
			}
		case "SafelightOffDelay":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				c.logInvalidField(key, err)
				break
			}
			c.SafelightOffDelay = uint32(v)
		case "FocusTimeout":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				c.logInvalidField(key, err)
				break
			}
			c.FocusTimeout = uint32(v)
		case "BuzzerVolume":
			v, err := strconv.Atoi(value)
			if err != nil || v < 0 || v > int(buzzer.VolumeHigh) {
				c.logInvalidField(key, err)
				break
			}
			c.BuzzerVolume = buzzer.Volume(v)
		case "DefaultEnlargerIndex":
			v, err := strconv.Atoi(value)
			if err != nil {
				c.logInvalidField(key, err)
				break
			}
			c.DefaultEnlargerIndex = v
		case "DefaultPaperIndex":
			v, err := strconv.Atoi(value)
			if err != nil {
				c.logInvalidField(key, err)
				break
			}
			c.DefaultPaperIndex = v
		}
	}
}

func (c *Config) logInvalidField(key string, err error) {
	if c.Logger == nil {
		return
	}
	if err != nil {
		c.Logger.Warning("invalid config field", "field", key, "error", err.Error())
		return
	}
	c.Logger.Warning("invalid config field", "field", key)
}

func parseGrade(s string) (profile.ContrastGrade, error) {
	for g := profile.Grade00; g < profile.GradeCount; g++ {
		if g.String() == s {
			return g, nil
		}
	}
	return 0, fmt.Errorf("unknown contrast grade: %q", s)
}
