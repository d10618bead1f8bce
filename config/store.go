/*
DESCRIPTION
  store.go provides the settings store: keyed access to the persisted
  configuration, held in memory after startup, written through to a
  JSON document on change, and optionally watched for external edits
  such as a profile import.

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
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/ausocean/utils/logging"

	"github.com/opendarkroom/printimer/device/buzzer"
	"github.com/opendarkroom/printimer/exposure"
	"github.com/opendarkroom/printimer/profile"
)

var ErrNoSuchProfile = errors.New("config: no such profile")

// Store is the settings store. Reads come from memory; writes update
// memory and are persisted before returning, so a returned setter
// call can be assumed durable.
type Store struct {
	mu   sync.Mutex
	path string
	l    logging.Logger
	cfg  Config

	watcher  *fsnotify.Watcher
	onReload func(Config)
	done     chan struct{}
}

// NewStore loads the settings document at path, or starts from
// defaults when it does not exist.
func NewStore(path string, l logging.Logger) (*Store, error) {
	s := &Store{path: path, l: l}
	s.cfg.Logger = l

	err := s.load()
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		l.Info("no settings file, starting from factory defaults", "path", path)
		s.cfg = Factory()
		s.cfg.Logger = l
		err = s.cfg.Validate()
		if err != nil {
			l.Warning("settings corrected to defaults", "error", err.Error())
		}
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	cfg := Config{Logger: s.l}
	err = json.Unmarshal(data, &cfg)
	if err != nil {
		return err
	}
	err = cfg.Validate()
	if err != nil {
		s.l.Warning("settings document corrected", "error", err.Error())
	}
	s.cfg = cfg
	return nil
}

// save writes the settings document atomically.
func (s *Store) save() error {
	data, err := json.MarshalIndent(&s.cfg, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	err = os.MkdirAll(filepath.Dir(s.path), 0o755)
	if err != nil {
		return err
	}
	err = os.WriteFile(tmp, data, 0o644)
	if err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Config returns a copy of the current configuration.
func (s *Store) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Update applies string-keyed variables and persists the result.
func (s *Store) Update(vars map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Update(vars)
	err := s.cfg.Validate()
	if err != nil {
		s.l.Warning("updated settings corrected", "error", err.Error())
	}
	return s.save()
}

// DefaultExposureTime returns the reset base time in milliseconds.
func (s *Store) DefaultExposureTime() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.DefaultExposureTime
}

// DefaultContrastGrade returns the reset contrast grade.
func (s *Store) DefaultContrastGrade() profile.ContrastGrade {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.DefaultContrastGrade
}

// DefaultStepSize returns the reset adjustment increment.
func (s *Store) DefaultStepSize() exposure.Increment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.DefaultStepSize
}

// TestStripMode returns the configured strip semantics.
func (s *Store) TestStripMode() TestStripMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.TestStripMode
}

// TestStripPatches returns the configured patch mask.
func (s *Store) TestStripPatches() TestStripPatches {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.TestStripPatches
}

// SafelightMode returns the safelight follow mode.
func (s *Store) SafelightMode() SafelightMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.SafelightMode
}

// SafelightOffDelay returns the safelight settle time in ms.
func (s *Store) SafelightOffDelay() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.SafelightOffDelay
}

// FocusTimeout returns the focus lamp timeout in ms.
func (s *Store) FocusTimeout() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.FocusTimeout
}

// BuzzerVolume returns the configured cue volume.
func (s *Store) BuzzerVolume() buzzer.Volume {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.BuzzerVolume
}

// SetBuzzerVolume updates and persists the cue volume.
func (s *Store) SetBuzzerVolume(v buzzer.Volume) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.BuzzerVolume = v
	return s.save()
}

// EnlargerConfig returns saved enlarger profile i.
func (s *Store) EnlargerConfig(i int) (*profile.Enlarger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.cfg.EnlargerConfigs) {
		return nil, ErrNoSuchProfile
	}
	p := s.cfg.EnlargerConfigs[i]
	return &p, nil
}

// EnlargerConfigCount returns the number of saved enlarger profiles.
func (s *Store) EnlargerConfigCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cfg.EnlargerConfigs)
}

// DefaultEnlarger returns the active enlarger profile, or nil when
// none is saved.
func (s *Store) DefaultEnlarger() *profile.Enlarger {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cfg.EnlargerConfigs) == 0 {
		return nil
	}
	p := s.cfg.EnlargerConfigs[s.cfg.DefaultEnlargerIndex]
	return &p
}

// SetEnlargerConfig saves profile p at index i, appending when i
// equals the current count. Invalid profiles are refused.
func (s *Store) SetEnlargerConfig(i int, p *profile.Enlarger) error {
	if !p.IsValid() {
		return profile.ErrInvalidProfile
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case i >= 0 && i < len(s.cfg.EnlargerConfigs):
		s.cfg.EnlargerConfigs[i] = *p
	case i == len(s.cfg.EnlargerConfigs) && i < MaxProfiles:
		s.cfg.EnlargerConfigs = append(s.cfg.EnlargerConfigs, *p)
	default:
		return ErrNoSuchProfile
	}
	return s.save()
}

// DeleteEnlargerConfig removes saved profile i.
func (s *Store) DeleteEnlargerConfig(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.cfg.EnlargerConfigs) {
		return ErrNoSuchProfile
	}
	s.cfg.EnlargerConfigs = append(s.cfg.EnlargerConfigs[:i], s.cfg.EnlargerConfigs[i+1:]...)
	if s.cfg.DefaultEnlargerIndex >= len(s.cfg.EnlargerConfigs) {
		s.cfg.DefaultEnlargerIndex = 0
	}
	return s.save()
}

// SetDefaultEnlargerIndex selects the active enlarger profile.
func (s *Store) SetDefaultEnlargerIndex(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.cfg.EnlargerConfigs) {
		return ErrNoSuchProfile
	}
	s.cfg.DefaultEnlargerIndex = i
	return s.save()
}

// PaperProfile returns saved paper profile i.
func (s *Store) PaperProfile(i int) (*profile.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.cfg.PaperProfiles) {
		return nil, ErrNoSuchProfile
	}
	p := s.cfg.PaperProfiles[i]
	return &p, nil
}

// PaperProfileCount returns the number of saved paper profiles.
func (s *Store) PaperProfileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cfg.PaperProfiles)
}

// DefaultPaperIndex returns the active paper profile index.
func (s *Store) DefaultPaperIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.DefaultPaperIndex
}

// SetPaperProfile saves profile p at index i, appending when i equals
// the current count. Invalid profiles are refused.
func (s *Store) SetPaperProfile(i int, p *profile.Paper) error {
	if !p.IsValid() {
		return profile.ErrInvalidProfile
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	cp.Recalculate()
	switch {
	case i >= 0 && i < len(s.cfg.PaperProfiles):
		s.cfg.PaperProfiles[i] = cp
	case i == len(s.cfg.PaperProfiles) && i < MaxProfiles:
		s.cfg.PaperProfiles = append(s.cfg.PaperProfiles, cp)
	default:
		return ErrNoSuchProfile
	}
	return s.save()
}

// SetDefaultPaperIndex selects the active paper profile.
func (s *Store) SetDefaultPaperIndex(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.cfg.PaperProfiles) {
		return ErrNoSuchProfile
	}
	s.cfg.DefaultPaperIndex = i
	return s.save()
}

// StepWedge returns the saved wedge, or nil.
func (s *Store) StepWedge() *profile.StepWedge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.StepWedge
}

// SetStepWedge saves the wedge, refusing invalid geometry.
func (s *Store) SetStepWedge(w *profile.StepWedge) error {
	if !w.IsValid() {
		return profile.ErrInvalidProfile
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.StepWedge = w
	return s.save()
}

// Watch reloads the store when the settings document changes on disk,
// such as after an import, and invokes onReload with the new
// configuration. Documents that cannot be read or parsed are logged
// and ignored. A parsed document goes through Validate: records that
// fail it are dropped or replaced with defaults, the correction is
// logged, and the corrected configuration replaces the live state.
func (s *Store) Watch(onReload func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	err = watcher.Add(filepath.Dir(s.path))
	if err != nil {
		watcher.Close()
		return err
	}
	s.watcher = watcher
	s.onReload = onReload
	s.done = make(chan struct{})
	go s.watch()
	return nil
}

func (s *Store) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.path || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.mu.Lock()
			err := s.load()
			cfg := s.cfg
			s.mu.Unlock()
			if err != nil {
				s.l.Warning("settings reload failed", "error", err.Error())
				continue
			}
			s.l.Info("settings reloaded", "path", s.path)
			if s.onReload != nil {
				s.onReload(cfg)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.l.Warning("settings watcher error", "error", err.Error())
		}
	}
}

// Close stops the watcher, if one is running.
func (s *Store) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	return s.watcher.Close()
}
