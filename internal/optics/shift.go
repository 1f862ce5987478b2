package optics

import (
	"fmt"
	"math"
	"strings"
)

// Inputs are the three scalars the shift model works from.
type Inputs struct {
	DesignWavelengthNm float64 `json:"design_wavelength_nm"`
	EffectiveIndex     float64 `json:"effective_index"`
	IncidenceAngleDeg  float64 `json:"incidence_angle_deg"`
}

// Result holds the shifted center wavelength and the deltas derived from it.
// All three fields are invalid together whenever the shift has no solution.
type Result struct {
	ShiftedNm Value `json:"shifted_nm"`
	DeltaNm   Value `json:"delta_nm"`
	Percent   Value `json:"percent"`
}

// Strictness selects how much of the input domain is validated.
type Strictness uint8

const (
	// Strict also rejects design wavelengths outside [MinWavelengthNm, MaxWavelengthNm].
	Strict Strictness = iota
	// Lenient only rejects non-finite inputs and non-positive indices.
	Lenient
)

func (s Strictness) String() string {
	switch s {
	case Strict:
		return "strict"
	case Lenient:
		return "lenient"
	default:
		return fmt.Sprintf("Strictness(%d)", uint8(s))
	}
}

// ParseStrictness accepts "strict" or "lenient" (case-insensitive).
func ParseStrictness(s string) (Strictness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return Strict, nil
	case "lenient":
		return Lenient, nil
	default:
		return Strict, fmt.Errorf("unknown strictness %q", s)
	}
}

// ShiftedWavelength evaluates λθ = λ₀·sqrt(1 − (n₀/n_eff)²·sin²θ).
// It is invalid when the inputs fail validation or the radicand is negative.
func ShiftedWavelength(in Inputs, s Strictness) Value {
	lambda0, neff, theta := in.DesignWavelengthNm, in.EffectiveIndex, in.IncidenceAngleDeg
	if !isFinite(lambda0) || !isFinite(neff) || !isFinite(theta) {
		return Invalid()
	}
	if neff <= 0 {
		return Invalid()
	}
	if s == Strict && (lambda0 < MinWavelengthNm || lambda0 > MaxWavelengthNm) {
		return Invalid()
	}

	sinTheta := math.Sin(Radians(theta))
	ratio := IncidentIndex / neff
	inside := 1 - (ratio*ratio)*(sinTheta*sinTheta)
	if inside < 0 {
		return Invalid()
	}
	return Valid(lambda0 * math.Sqrt(inside))
}

// ComputeShift returns the shifted wavelength, its delta from the design
// wavelength and that delta as a percentage. It never fails; unavailable
// quantities are marked invalid.
func ComputeShift(in Inputs, s Strictness) Result {
	shifted := ShiftedWavelength(in, s)
	lambda0 := in.DesignWavelengthNm

	delta := shifted.Map(func(x float64) float64 { return x - lambda0 })

	percent := Invalid()
	if d, ok := delta.Get(); ok && lambda0 != 0 {
		percent = Valid(d / lambda0 * 100)
	}

	return Result{ShiftedNm: shifted, DeltaNm: delta, Percent: percent}
}
