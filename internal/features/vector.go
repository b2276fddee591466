// Package features turns face landmark frames into fixed-size mouth descriptors.
package features

import (
	"math"

	"github.com/ayusman/lipread/internal/mesh"
)

// Length is the size of a flattened Vector: three coordinates per lip
// landmark followed by the three geometry scalars.
const Length = mesh.NumLipLandmarks*3 + 3

// Geometry holds the scalar mouth shape descriptors of one frame.
type Geometry struct {
	Height    float64 `json:"height"`
	Width     float64 `json:"width"`
	InnerArea float64 `json:"inner_area"`
}

// Vector is the per-frame feature descriptor.
type Vector struct {
	// Differences are the lip landmarks relative to the anchor, outer ring first.
	Differences [mesh.NumLipLandmarks]mesh.Point3D
	Geometry    Geometry
}

// Flatten returns the vector as Length floats: dx, dy, dz per lip landmark,
// then height, width and inner area.
func (v Vector) Flatten() []float64 {
	out := make([]float64, 0, Length)
	for _, d := range v.Differences {
		out = append(out, d.X, d.Y, d.Z)
	}
	return append(out, v.Geometry.Height, v.Geometry.Width, v.Geometry.InnerArea)
}

// IsZero reports whether every component of v is zero.
func (v Vector) IsZero() bool {
	return v == Vector{}
}

func (v Vector) finite() bool {
	for _, f := range v.Flatten() {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
