package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DeviceProfileStore wraps a device profile's backing Config with the
// ability to persist discovered per-controller toggle/address state back
// to the profile file it was loaded from.
//
// An LPF receiver drops a repeated frame whose toggle bit matches the
// last one it saw. Every freshly constructed controller starts its
// toggle at 0 (see pkg/controller), so restarting lpfctl against a
// receiver that already saw toggle 0 from a previous run makes the
// receiver ignore the first command until the toggle happens to flip.
// Saving the last-known toggle (and, for Extended controllers, the
// address bit) per section lets the next run seed from it instead of
// guessing.
type DeviceProfileStore struct {
	mu         sync.Mutex
	path       string
	cfg        *Config
	discovered map[string]map[string]string // section -> option -> value
}

// OpenDeviceProfileStore loads path as a device profile and returns both
// the profile and a store that can persist discovered state back to it.
func OpenDeviceProfileStore(path string) (*DeviceProfileStore, *DeviceProfile, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, nil, err
	}

	// last_toggle/last_address are DeviceProfileStore's own options, not
	// part of a controller spec, so buildDeviceProfile's factories never
	// touch them. Read them here (ignoring the value) to mark them
	// accessed before CheckUnusedOptions runs, or a profile with
	// previously-saved state would fail to load as "unused options".
	for _, sec := range cfg.GetSections() {
		_, _ = sec.GetInt("last_toggle", -1)
		_, _ = sec.GetInt("last_address", -1)
	}

	profile, err := buildDeviceProfile(cfg)
	if err != nil {
		return nil, nil, err
	}
	return &DeviceProfileStore{
		path:       path,
		cfg:        cfg,
		discovered: make(map[string]map[string]string),
	}, profile, nil
}

// LoadToggle returns the toggle bit last saved for sectionName (e.g.
// "speed_controller motor1"), or ok=false if nothing was ever saved.
func (s *DeviceProfileStore) LoadToggle(sectionName string) (toggle uint8, ok bool) {
	sec := s.cfg.GetSectionOptional(sectionName)
	if sec == nil {
		return 0, false
	}
	v, err := sec.GetInt("last_toggle", -1)
	if err != nil || v < 0 {
		return 0, false
	}
	return uint8(v) & 0x1, true
}

// LoadAddress returns the address bit last saved for sectionName, or
// ok=false if nothing was ever saved. Only Extended controllers have an
// address bit.
func (s *DeviceProfileStore) LoadAddress(sectionName string) (address uint8, ok bool) {
	sec := s.cfg.GetSectionOptional(sectionName)
	if sec == nil {
		return 0, false
	}
	v, err := sec.GetInt("last_address", -1)
	if err != nil || v < 0 {
		return 0, false
	}
	return uint8(v) & 0x1, true
}

// SaveToggle records the toggle bit a controller's section last sent
// successfully. It does not touch disk; call Flush to write it out.
func (s *DeviceProfileStore) SaveToggle(sectionName string, toggle uint8) {
	s.set(sectionName, "last_toggle", strconv.Itoa(int(toggle&0x1)))
}

// SaveAddress records the address bit an Extended controller's section
// last sent successfully. It does not touch disk; call Flush to write
// it out.
func (s *DeviceProfileStore) SaveAddress(sectionName string, address uint8) {
	s.set(sectionName, "last_address", strconv.Itoa(int(address&0x1)))
}

func (s *DeviceProfileStore) set(sectionName, option, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discovered[sectionName] == nil {
		s.discovered[sectionName] = make(map[string]string)
	}
	s.discovered[sectionName][option] = value
}

// Flush writes every SaveToggle/SaveAddress call back to the profile
// file, marking each discovered line with the "#*#" prefix Config
// already recognizes as auto-generated (see Config.parseFile). The file
// is regenerated from the parsed config (see render): options are written
// sorted as "key: value", comments and [include] lines are not kept, and
// state saved by an earlier Flush comes back as a plain option. A timestamped backup of
// the previous file is kept alongside it before the new one is written.
// Flush is a no-op if nothing was saved since the store was opened or
// last flushed.
func (s *DeviceProfileStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.discovered) == 0 {
		return nil
	}

	if err := s.backup(); err != nil {
		return fmt.Errorf("backup device profile: %w", err)
	}

	content := s.render()

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".device-profile-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write device profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	s.discovered = make(map[string]map[string]string)
	return nil
}

func (s *DeviceProfileStore) backup() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	ext := filepath.Ext(s.path)
	base := strings.TrimSuffix(s.path, ext)
	backupPath := fmt.Sprintf("%s-%s%s", base, time.Now().Format("20060102_150405"), ext)
	return os.WriteFile(backupPath, data, 0644)
}

// render rewrites the whole profile, section by section in their
// original order, each section's own options first and any discovered
// state for it appended below as "#*#"-prefixed lines.
func (s *DeviceProfileStore) render() string {
	var sb strings.Builder

	names := s.cfg.GetSectionNames()
	for i, name := range names {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("[")
		sb.WriteString(name)
		sb.WriteString("]\n")

		if sec := s.cfg.GetSectionOptional(name); sec != nil {
			opts := sec.RawOptions()
			keys := make([]string, 0, len(opts))
			for k := range opts {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				sb.WriteString(k)
				sb.WriteString(": ")
				sb.WriteString(opts[k])
				sb.WriteString("\n")
			}
		}

		discovered := s.discovered[name]
		keys := make([]string, 0, len(discovered))
		for k := range discovered {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString("#*# ")
			sb.WriteString(k)
			sb.WriteString(": ")
			sb.WriteString(discovered[k])
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
