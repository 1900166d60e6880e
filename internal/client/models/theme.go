package models

// Theme is a concrete display theme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Preference is what the user picked; PreferenceSystem defers to the platform.
type Preference string

const (
	PreferenceLight  Preference = "light"
	PreferenceDark   Preference = "dark"
	PreferenceSystem Preference = "system"
)

var preferenceOrder = []Preference{PreferenceLight, PreferenceDark, PreferenceSystem}

// ParsePreference accepts the stored or typed spelling of a preference.
func ParsePreference(s string) (Preference, bool) {
	for _, p := range preferenceOrder {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// Next returns the preference after p in the light, dark, system cycle.
func (p Preference) Next() Preference {
	for i, v := range preferenceOrder {
		if v == p {
			return preferenceOrder[(i+1)%len(preferenceOrder)]
		}
	}
	return PreferenceLight
}

// Resolve maps p to a concrete theme using the platform theme for system.
func (p Preference) Resolve(platform Theme) Theme {
	switch p {
	case PreferenceLight:
		return ThemeLight
	case PreferenceDark:
		return ThemeDark
	}
	if platform == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}
