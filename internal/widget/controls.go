// Package widget holds the state of the calculator's input controls and
// runs one recompute cycle over it. Controls replaces a global table of UI
// elements: front ends own a Controls value and pass it to Update.
package widget

import (
	"math"
	"strconv"
	"strings"

	"github.com/talgya/aoi-shift/internal/optics"
)

// Defaults shown when a front end starts.
const (
	DefaultWavelengthNm = 1550.0
	DefaultIndex        = 2.05
	DefaultAngleDeg     = 12.0
)

// AngleSource says which of the two mirrored angle controls changed.
type AngleSource uint8

const (
	FromNumber AngleSource = iota
	FromSlider
)

// Controls mirrors the input fields. Text fields keep exactly what the
// user typed until a commit normalises them.
type Controls struct {
	WavelengthText string
	IndexText      string
	AngleText      string // numeric field
	SliderText     string // range slider, always equal to AngleText after a sync
	Preset         string // selected preset name, "" when the index is custom

	presets []optics.Preset
}

// NewControls returns controls at their defaults. A nil presets list
// means optics.DefaultPresets.
func NewControls(presets []optics.Preset) *Controls {
	if presets == nil {
		presets = optics.DefaultPresets()
	}
	c := &Controls{
		WavelengthText: optics.FormatNumber(DefaultWavelengthNm),
		IndexText:      optics.FormatNumber(DefaultIndex),
		AngleText:      optics.FormatNumber(DefaultAngleDeg),
		SliderText:     optics.FormatNumber(DefaultAngleDeg),
		presets:        presets,
	}
	c.syncPreset()
	return c
}

// Presets returns the preset list the controls offer.
func (c *Controls) Presets() []optics.Preset {
	return c.presets
}

// SetWavelengthText records a keystroke in the wavelength field.
func (c *Controls) SetWavelengthText(raw string) {
	c.WavelengthText = raw
}

// CommitWavelength clamps the wavelength field into range when editing
// ends. Unparsable text becomes the lower bound.
func (c *Controls) CommitWavelength() {
	nm := optics.ClampWavelength(ParseNumber(c.WavelengthText))
	if math.IsNaN(nm) {
		nm = optics.MinWavelengthNm
	}
	c.WavelengthText = optics.FormatNumber(nm)
}

// SetAngle takes a new value from either angle control, clamps it and
// copies it to the other one. Unparsable text becomes 0°.
func (c *Controls) SetAngle(raw string, from AngleSource) {
	deg := optics.ClampAngle(ParseNumber(raw))
	if math.IsNaN(deg) {
		deg = optics.MinAngleDeg
	}
	text := optics.FormatNumber(deg)
	switch from {
	case FromSlider:
		c.SliderText = text
		c.AngleText = c.SliderText
	default:
		c.AngleText = text
		c.SliderText = c.AngleText
	}
}

// SetIndexText records a keystroke in the index field and selects the
// matching preset, if any.
func (c *Controls) SetIndexText(raw string) {
	c.IndexText = raw
	c.syncPreset()
}

// SelectPreset copies a preset's index into the index field. An empty or
// unknown name leaves the field alone and marks the index custom.
func (c *Controls) SelectPreset(name string) {
	p, ok := optics.FindPreset(c.presets, name)
	if !ok {
		c.Preset = ""
		return
	}
	c.IndexText = optics.FormatNumber(p.EffectiveIndex)
	c.Preset = p.Name
}

func (c *Controls) syncPreset() {
	c.Preset = ""
	if p, ok := optics.MatchPreset(c.presets, ParseNumber(c.IndexText)); ok {
		c.Preset = p.Name
	}
}

// Inputs reads the current field values. The angle is clamped; the other
// two are passed through as typed (NaN when unparsable).
func (c *Controls) Inputs() optics.Inputs {
	return optics.Inputs{
		DesignWavelengthNm: ParseNumber(c.WavelengthText),
		EffectiveIndex:     ParseNumber(c.IndexText),
		IncidenceAngleDeg:  optics.ClampAngle(ParseNumber(c.AngleText)),
	}
}

// ParseNumber reads a field value. Empty, malformed and non-finite text
// all give NaN.
func ParseNumber(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return math.NaN()
	}
	return v
}
