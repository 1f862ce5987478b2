package optics

import "strconv"

// Readouts are the three text readouts shown under the inputs.
type Readouts struct {
	Shifted string `json:"shifted"`
	Delta   string `json:"delta"`
	Percent string `json:"percent"`
}

// FormatReadouts applies the display policy: one decimal everywhere,
// a percent sign on the percentage and Placeholder for anything invalid.
func FormatReadouts(r Result) Readouts {
	pct := Placeholder
	if r.Percent.IsValid() {
		pct = r.Percent.Format(1) + "%"
	}
	return Readouts{
		Shifted: r.ShiftedNm.Format(1),
		Delta:   r.DeltaNm.Format(1),
		Percent: pct,
	}
}

// FormatFixed formats x with digits decimals, or Placeholder if x is not finite.
func FormatFixed(x float64, digits int) string {
	return Valid(x).Format(digits)
}

// FormatNumber renders x the shortest way that round-trips, as an input
// field would show it.
func FormatNumber(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
