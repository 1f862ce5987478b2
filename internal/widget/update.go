package widget

import (
	"github.com/talgya/aoi-shift/internal/diagram"
	"github.com/talgya/aoi-shift/internal/optics"
)

// Snapshot is the output of one recompute cycle: everything a front end
// needs to redraw.
type Snapshot struct {
	Inputs       optics.Inputs         `json:"-"`
	Strictness   optics.Strictness     `json:"-"`
	Result       optics.Result         `json:"result"`
	Readouts     optics.Readouts       `json:"readouts"`
	Ray          diagram.RayGeometry   `json:"ray"`
	Transmission diagram.CurveGeometry `json:"transmission"`
}

// Update reads the controls and recomputes everything from scratch.
func Update(c *Controls, s optics.Strictness) Snapshot {
	return Evaluate(c.Inputs(), s)
}

// Evaluate runs the model and both renderers over in.
func Evaluate(in optics.Inputs, s optics.Strictness) Snapshot {
	res := optics.ComputeShift(in, s)
	return Snapshot{
		Inputs:       in,
		Strictness:   s,
		Result:       res,
		Readouts:     optics.FormatReadouts(res),
		Ray:          diagram.RenderRay(in.EffectiveIndex, in.IncidenceAngleDeg),
		Transmission: diagram.RenderTransmission(in.DesignWavelengthNm, res.ShiftedNm),
	}
}
