package mesh

import "math"

// Mouth center used by the synthetic generators.
const (
	mouthCenterX = 0.5
	mouthCenterY = 0.7
)

// MouthLandmarks returns a synthetic face whose outer lip ring is an ellipse
// of the given height and width and whose inner ring is an ellipse of
// innerHeight and innerWidth, both centered on the same point.
//
// Ring points start at the left corner and run along the lower lip first,
// matching the order of OuterLip and InnerLip. The resulting frame has
// mouth height == height, mouth width == width and inner area ==
// innerHeight*innerWidth.
func MouthLandmarks(height, width, innerHeight, innerWidth float64) FaceLandmarks {
	face := FaceLandmarks{
		Points: make([]Point3D, NumFaceLandmarks),
		Score:  0.95,
	}

	// Everything off the mouth sits around the nose.
	for i := range face.Points {
		face.Points[i] = Point3D{X: mouthCenterX, Y: mouthCenterY - 0.2, Z: -0.05}
	}

	placeRing(face.Points, OuterLip, height, width, 0.0)
	placeRing(face.Points, InnerLip, innerHeight, innerWidth, -0.01)

	return face
}

// ClosedMouthLandmarks returns a synthetic face with lips pressed together.
func ClosedMouthLandmarks() FaceLandmarks {
	return MouthLandmarks(0.04, 0.18, 0.0, 0.16)
}

// OpenMouthLandmarks returns a synthetic face with a wide open mouth.
func OpenMouthLandmarks() FaceLandmarks {
	return MouthLandmarks(0.16, 0.20, 0.10, 0.15)
}

func placeRing(points []Point3D, ring [NumLipRing]int, height, width, z float64) {
	for i, idx := range ring {
		theta := 2 * math.Pi * float64(i) / NumLipRing
		points[idx] = Point3D{
			X: mouthCenterX - width/2*math.Cos(theta),
			Y: mouthCenterY + height/2*math.Sin(theta),
			Z: z,
		}
	}
}
