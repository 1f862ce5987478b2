// Package diagram turns shift-model outputs into drawable geometry: the
// incident-ray diagram and the transmission-curve diagram. Coordinates are
// in each diagram's fixed SVG frame (y grows downward). Nothing here keeps
// state between calls.
package diagram

import (
	"strconv"
	"strings"
)

// Point is a position in diagram coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Segment is a straight line between two points.
type Segment struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

// Label is a text anchored at a point.
type Label struct {
	At   Point  `json:"at"`
	Text string `json:"text"`
}

// Path is a polyline through sampled points, left to right.
type Path struct {
	Points []Point `json:"points"`
}

// D formats the path as SVG path data: "M x y L x y ...", two decimals.
func (p Path) D() string {
	var sb strings.Builder
	for i, pt := range p.Points {
		if i == 0 {
			sb.WriteString("M ")
		} else {
			sb.WriteString(" L ")
		}
		sb.WriteString(fixed2(pt.X))
		sb.WriteByte(' ')
		sb.WriteString(fixed2(pt.Y))
	}
	return sb.String()
}

func fixed2(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}

func shortest(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
