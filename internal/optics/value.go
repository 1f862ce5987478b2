package optics

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Value is a float64 that may be unavailable. The zero Value is invalid.
// Non-finite numbers are never valid, so a NaN cannot leak out of Get.
type Value struct {
	x  float64
	ok bool
}

// Valid wraps x. NaN and ±Inf produce an invalid Value.
func Valid(x float64) Value {
	if !isFinite(x) {
		return Value{}
	}
	return Value{x: x, ok: true}
}

// Invalid returns the unavailable Value.
func Invalid() Value {
	return Value{}
}

// Get returns the number and whether it is available.
func (v Value) Get() (float64, bool) {
	return v.x, v.ok
}

// IsValid reports whether the value is available.
func (v Value) IsValid() bool {
	return v.ok
}

// Or returns the number, or fallback when unavailable.
func (v Value) Or(fallback float64) float64 {
	if !v.ok {
		return fallback
	}
	return v.x
}

// Float returns the number, or NaN when unavailable.
func (v Value) Float() float64 {
	return v.Or(math.NaN())
}

// Map applies fn to an available value. The result is re-validated.
func (v Value) Map(fn func(float64) float64) Value {
	if !v.ok {
		return Value{}
	}
	return Valid(fn(v.x))
}

// Format renders the value fixed-point with the given number of digits,
// or Placeholder when unavailable.
func (v Value) Format(digits int) string {
	if !v.ok {
		return Placeholder
	}
	return strconv.FormatFloat(v.x, 'f', digits, 64)
}

func (v Value) String() string {
	if !v.ok {
		return Placeholder
	}
	return strconv.FormatFloat(v.x, 'g', -1, 64)
}

// MarshalJSON encodes an unavailable value as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.x)
}

// UnmarshalJSON accepts a number or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Value{}
		return nil
	}
	var x float64
	if err := json.Unmarshal(data, &x); err != nil {
		return err
	}
	*v = Valid(x)
	return nil
}
