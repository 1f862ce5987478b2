package optics

import "math"

// Preset is a named effective index the user can pick instead of typing one.
type Preset struct {
	Name           string  `json:"name"`
	EffectiveIndex float64 `json:"effective_index"`
}

// presetTolerance is how close a typed index must be to select a preset.
const presetTolerance = 1e-6

// DefaultPresets returns the built-in effective index list, low to high.
func DefaultPresets() []Preset {
	return []Preset{
		{Name: "Low-index cavity (SiO2)", EffectiveIndex: 1.45},
		{Name: "Mixed cavity", EffectiveIndex: 1.70},
		{Name: "High-index cavity (Ta2O5)", EffectiveIndex: 1.90},
		{Name: "High-index cavity (Nb2O5)", EffectiveIndex: 2.05},
		{Name: "Hydrogenated silicon cavity", EffectiveIndex: 3.20},
	}
}

// MatchPreset returns the first preset whose index is within 1e-6 of neff.
func MatchPreset(presets []Preset, neff float64) (Preset, bool) {
	if !isFinite(neff) {
		return Preset{}, false
	}
	for _, p := range presets {
		if math.Abs(p.EffectiveIndex-neff) < presetTolerance {
			return p, true
		}
	}
	return Preset{}, false
}

// FindPreset looks a preset up by name.
func FindPreset(presets []Preset, name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
