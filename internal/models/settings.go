package models

// Settings are the user-facing toggles persisted in the settings file.
type Settings struct {
	AutoFixGTIN         bool `json:"auto_fix_gtin"`
	EnforceFutureExpiry bool `json:"enforce_future_expiry"`
}

func DefaultSettings() Settings {
	return Settings{}
}

// SettingsPatch carries the toggles a caller wants to change. Nil fields keep
// their current value.
type SettingsPatch struct {
	AutoFixGTIN         *bool `json:"auto_fix_gtin"`
	EnforceFutureExpiry *bool `json:"enforce_future_expiry"`
}

func (p SettingsPatch) IsEmpty() bool {
	return p.AutoFixGTIN == nil && p.EnforceFutureExpiry == nil
}

func (p SettingsPatch) Apply(s Settings) Settings {
	if p.AutoFixGTIN != nil {
		s.AutoFixGTIN = *p.AutoFixGTIN
	}
	if p.EnforceFutureExpiry != nil {
		s.EnforceFutureExpiry = *p.EnforceFutureExpiry
	}
	return s
}
