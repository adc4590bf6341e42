package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"dppmini/internal/models"
	"dppmini/internal/structures"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
)

// SettingsFault describes a settings file problem. It is reported to the
// caller for logging and never aborts an operation, so it is not an error.
type SettingsFault struct {
	Op   string
	Path string
	Err  error
}

func (f *SettingsFault) String() string {
	return fmt.Sprintf("settings %s %s: %v", f.Op, f.Path, f.Err)
}

type SettingsStore struct {
	path string
}

func NewSettingsStore(conf *structures.Config) *SettingsStore {
	return &SettingsStore{path: conf.Storage.SettingsFile}
}

func (s *SettingsStore) Path() string {
	return s.path
}

// Load returns the stored settings merged over the defaults. Unknown keys are
// ignored. Values that do not coerce to a bool keep their default and are
// reported in the fault. A missing file is not a fault.
func (s *SettingsStore) Load() (models.Settings, *SettingsFault) {
	settings := models.DefaultSettings()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, &SettingsFault{Op: "read", Path: s.path, Err: err}
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return settings, &SettingsFault{Op: "parse", Path: s.path, Err: err}
	}

	var fault *SettingsFault
	coerce := func(key string, dst *bool) {
		v, ok := raw[key]
		if !ok {
			return
		}
		b, err := cast.ToBoolE(v)
		if err != nil {
			fault = &SettingsFault{Op: "parse", Path: s.path, Err: fmt.Errorf("%s: %w", key, err)}
			return
		}
		*dst = b
	}
	coerce("auto_fix_gtin", &settings.AutoFixGTIN)
	coerce("enforce_future_expiry", &settings.EnforceFutureExpiry)

	return settings, fault
}

// Save writes the settings as indented JSON. Failures are returned as a
// fault for the caller to log.
func (s *SettingsStore) Save(settings models.Settings) *SettingsFault {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return &SettingsFault{Op: "encode", Path: s.path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &SettingsFault{Op: "write", Path: s.path, Err: err}
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o644); err != nil {
		return &SettingsFault{Op: "write", Path: s.path, Err: err}
	}
	return nil
}
