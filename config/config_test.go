/*
DESCRIPTION
  config_test.go provides testing for the Config struct methods
  (Validate and Update) and the settings store persistence.

AUTHORS
  Dana Okafor <dana@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/opendarkroom/printimer/device"
	"github.com/opendarkroom/printimer/device/buzzer"
	"github.com/opendarkroom/printimer/exposure"
	"github.com/opendarkroom/printimer/profile"
)

type dumbLogger struct{}

func (dl *dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dl *dumbLogger) SetLevel(l int8)                         {}
func (dl *dumbLogger) Debug(msg string, args ...interface{})   {}
func (dl *dumbLogger) Info(msg string, args ...interface{})    {}
func (dl *dumbLogger) Warning(msg string, args ...interface{}) {}
func (dl *dumbLogger) Error(msg string, args ...interface{})   {}
func (dl *dumbLogger) Fatal(msg string, args ...interface{})   {}

func TestValidate(t *testing.T) {
	dl := &dumbLogger{}

	// Grade 00 is a legitimate stored grade, so Validate leaves a zero
	// grade alone; the factory defaults carry the out-of-box choices.
	want := Config{
		Logger:               dl,
		DefaultExposureTime:  defaultExposureTime,
		DefaultContrastGrade: profile.Grade00,
		DefaultStepSize:      defaultStepSize,
		SafelightOffDelay:    defaultSafelightOffDelay,
		FocusTimeout:         defaultFocusTimeout,
	}

	got := Config{Logger: dl}
	err := (&got).Validate()
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	if !cmp.Equal(got, want) {
		t.Errorf("configs not equal\nwant: %v\ngot: %v", want, got)
	}
}

func TestFactory(t *testing.T) {
	got := Factory()
	err := got.Validate()
	if err != nil {
		t.Fatalf("factory defaults should validate cleanly: %v", err)
	}
	if got.DefaultContrastGrade != defaultContrastGrade {
		t.Errorf("factory grade = %v, want %v", got.DefaultContrastGrade, defaultContrastGrade)
	}
	if got.DefaultExposureTime != defaultExposureTime {
		t.Errorf("factory exposure time = %d, want %d", got.DefaultExposureTime, defaultExposureTime)
	}
}

func TestValidateDropsInvalidProfiles(t *testing.T) {
	dl := &dumbLogger{}

	var badPaper profile.Paper
	badPaper.Grades[profile.Grade2] = profile.PaperGrade{Ht: 200, Hs: 100}

	got := Config{
		Logger: dl,
		EnlargerConfigs: []profile.Enlarger{
			{Name: "good", RiseTime: 100, RiseTimeEquiv: 50},
			{Name: "bad", RiseTime: 50, RiseTimeEquiv: 100},
		},
		DefaultEnlargerIndex: 1,
		PaperProfiles:        []profile.Paper{badPaper},
	}
	err := got.Validate()

	// Every correction is reported through the multi error.
	var errs device.MultiError
	if !errors.As(err, &errs) {
		t.Fatalf("expected a MultiError reporting the drops, got %v", err)
	}
	if len(errs) != 2 {
		t.Errorf("corrections reported = %d, want 2: %v", len(errs), errs)
	}

	if len(got.EnlargerConfigs) != 1 || got.EnlargerConfigs[0].Name != "good" {
		t.Errorf("invalid enlarger profile not dropped: %v", got.EnlargerConfigs)
	}
	if got.DefaultEnlargerIndex != 0 {
		t.Errorf("default enlarger index = %d, want reset to 0", got.DefaultEnlargerIndex)
	}
	if len(got.PaperProfiles) != 0 {
		t.Errorf("invalid paper profile not dropped")
	}
}

func TestUpdate(t *testing.T) {
	updateMap := map[string]string{
		"DefaultExposureTime":  "8000",
		"DefaultContrastGrade": "2-1/2",
		"DefaultStepSize":      "6",
		"TestStripMode":        "Incremental",
		"TestStripPatches":     "5",
		"SafelightMode":        "On",
		"SafelightOffDelay":    "450",
		"FocusTimeout":         "120000",
		"BuzzerVolume":         "3",
		"Rubbish":              "ignored",
	}

	got := Config{Logger: &dumbLogger{}}
	got.Update(updateMap)

	if got.DefaultExposureTime != 8000 {
		t.Errorf("DefaultExposureTime = %d, want 8000", got.DefaultExposureTime)
	}
	if got.DefaultContrastGrade != profile.Grade2Half {
		t.Errorf("DefaultContrastGrade = %v, want 2-1/2", got.DefaultContrastGrade)
	}
	if got.DefaultStepSize != exposure.IncrementHalf {
		t.Errorf("DefaultStepSize = %v, want half stops", got.DefaultStepSize)
	}
	if got.TestStripMode != TestStripIncremental {
		t.Errorf("TestStripMode = %v, want incremental", got.TestStripMode)
	}
	if got.TestStripPatches != TestStripPatches5 {
		t.Errorf("TestStripPatches = %v, want 5", got.TestStripPatches)
	}
	if got.SafelightMode != SafelightModeOn {
		t.Errorf("SafelightMode = %v, want on", got.SafelightMode)
	}
	if got.SafelightOffDelay != 450 {
		t.Errorf("SafelightOffDelay = %d, want 450", got.SafelightOffDelay)
	}
	if got.FocusTimeout != 120000 {
		t.Errorf("FocusTimeout = %d, want 120000", got.FocusTimeout)
	}
	if got.BuzzerVolume != buzzer.VolumeHigh {
		t.Errorf("BuzzerVolume = %v, want high", got.BuzzerVolume)
	}
}

func TestUpdateRejectsBadValues(t *testing.T) {
	got := Config{Logger: &dumbLogger{}}
	got.Update(map[string]string{
		"DefaultExposureTime": "not-a-number",
		"SafelightMode":       "Sometimes",
	})
	if got.DefaultExposureTime != 0 {
		t.Errorf("bad value applied: %d", got.DefaultExposureTime)
	}
	if got.SafelightMode != SafelightModeAuto {
		t.Errorf("bad safelight mode applied: %v", got.SafelightMode)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	dl := &dumbLogger{}
	path := filepath.Join(t.TempDir(), "settings.json")

	s, err := NewStore(path, dl)
	if err != nil {
		t.Fatalf("could not create store: %v", err)
	}

	p := &profile.Enlarger{Name: "Omega D2", TurnOnDelay: 60, RiseTime: 180, RiseTimeEquiv: 90}
	err = s.SetEnlargerConfig(0, p)
	if err != nil {
		t.Fatalf("could not save enlarger profile: %v", err)
	}

	paper := profile.DefaultPaper()
	err = s.SetPaperProfile(0, paper)
	if err != nil {
		t.Fatalf("could not save paper profile: %v", err)
	}

	wedge := profile.NewStepWedge("T2115", 0.05, 0.15, 21)
	err = s.SetStepWedge(wedge)
	if err != nil {
		t.Fatalf("could not save wedge: %v", err)
	}

	// Reopen from disk.
	s2, err := NewStore(path, dl)
	if err != nil {
		t.Fatalf("could not reopen store: %v", err)
	}

	got, err := s2.EnlargerConfig(0)
	if err != nil {
		t.Fatalf("could not read enlarger profile: %v", err)
	}
	if !cmp.Equal(got, p) {
		t.Errorf("enlarger profile not equal\nwant: %v\ngot: %v", p, got)
	}

	if s2.PaperProfileCount() != 1 {
		t.Errorf("paper profile count = %d, want 1", s2.PaperProfileCount())
	}
	if s2.StepWedge() == nil || s2.StepWedge().StepCount() != 21 {
		t.Errorf("wedge did not round trip")
	}
}

func TestStoreRefusesInvalidProfile(t *testing.T) {
	dl := &dumbLogger{}
	path := filepath.Join(t.TempDir(), "settings.json")

	s, err := NewStore(path, dl)
	if err != nil {
		t.Fatalf("could not create store: %v", err)
	}

	bad := &profile.Enlarger{RiseTime: 10, RiseTimeEquiv: 20}
	err = s.SetEnlargerConfig(0, bad)
	if err == nil {
		t.Errorf("invalid profile accepted")
	}
	if s.EnlargerConfigCount() != 0 {
		t.Errorf("invalid profile stored")
	}
}

func TestDefaultEnlarger(t *testing.T) {
	dl := &dumbLogger{}
	path := filepath.Join(t.TempDir(), "settings.json")

	s, err := NewStore(path, dl)
	if err != nil {
		t.Fatalf("could not create store: %v", err)
	}
	if s.DefaultEnlarger() != nil {
		t.Errorf("default enlarger without any saved, want nil")
	}

	s.SetEnlargerConfig(0, &profile.Enlarger{Name: "a"})
	s.SetEnlargerConfig(1, &profile.Enlarger{Name: "b"})
	err = s.SetDefaultEnlargerIndex(1)
	if err != nil {
		t.Fatalf("could not set default index: %v", err)
	}
	if got := s.DefaultEnlarger(); got == nil || got.Name != "b" {
		t.Errorf("default enlarger = %v, want b", got)
	}
}
