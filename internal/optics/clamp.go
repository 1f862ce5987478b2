package optics

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. A NaN v is returned unchanged.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampWavelength limits a design wavelength to the accepted range.
func ClampWavelength(nm float64) float64 {
	return Clamp(nm, MinWavelengthNm, MaxWavelengthNm)
}

// ClampAngle limits an incidence angle to the accepted range.
func ClampAngle(deg float64) float64 {
	return Clamp(deg, MinAngleDeg, MaxAngleDeg)
}
