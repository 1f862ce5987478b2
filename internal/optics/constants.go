// Package optics provides the angle-of-incidence shift model for thin-film
// filters: the paraxial shift equation, its domain checks and the readout
// formatting applied to its results.
package optics

import "math"

// IncidentIndex is the refractive index of the incident medium (air).
const IncidentIndex = 1.0

// Wavelength range the widget accepts, in nm.
const (
	// MinWavelengthNm is the deep-UV end of the design range (ArF excimer line).
	MinWavelengthNm = 193.0

	// MaxWavelengthNm is the short-wave infrared end of the design range.
	MaxWavelengthNm = 1940.0
)

// Incidence angle range, in degrees. 90° is grazing and never reachable.
const (
	MinAngleDeg = 0.0
	MaxAngleDeg = 85.0
)

// Placeholder is shown wherever a value is unavailable.
const Placeholder = "—"

const degToRad = math.Pi / 180

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return degToRad * deg
}

func isFinite(x float64) bool { return !math.IsInf(x, 0) && !math.IsNaN(x) }
