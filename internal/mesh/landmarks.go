// Package mesh holds face mesh landmark types and the lip index tables.
// It has no OpenCV dependency, so feature code can build without it.
package mesh

// Face mesh landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	// Anchor is the reference landmark every lip point is measured against.
	Anchor = 0
	// NumFaceLandmarks is the size of a face mesh without iris refinement.
	NumFaceLandmarks = 468
	// NumLipRing is the number of landmarks on each lip ring.
	NumLipRing = 20
	// NumLipLandmarks is the number of landmarks across both lip rings.
	NumLipLandmarks = 2 * NumLipRing
)

// OuterLip traces the outer lip boundary starting at the left mouth corner.
var OuterLip = [NumLipRing]int{
	61, 146, 91, 181, 84, 17, 314, 405, 321, 375,
	291, 409, 270, 269, 267, 0, 37, 39, 40, 185,
}

// InnerLip traces the inner lip boundary starting at the left mouth corner.
var InnerLip = [NumLipRing]int{
	78, 95, 88, 178, 87, 14, 317, 402, 318, 324,
	308, 415, 310, 311, 312, 13, 82, 81, 80, 191,
}

// LipIndices returns all lip landmark indices, outer ring first.
func LipIndices() [NumLipLandmarks]int {
	var idx [NumLipLandmarks]int
	copy(idx[:NumLipRing], OuterLip[:])
	copy(idx[NumLipRing:], InnerLip[:])
	return idx
}

// Point3D represents a 3D point in normalized image space.
// X and Y are in [0,1]; Z is depth relative to the face center.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns the component-wise difference p - q.
func (p Point3D) Sub(q Point3D) Point3D {
	return Point3D{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// FaceLandmarks represents the landmarks of a single detected face.
type FaceLandmarks struct {
	Points []Point3D `json:"points"`
	Score  float64   `json:"score"`
}

// Point returns the landmark at idx. The second result is false when the
// frame does not contain that index.
func (f *FaceLandmarks) Point(idx int) (Point3D, bool) {
	if f == nil || idx < 0 || idx >= len(f.Points) {
		return Point3D{}, false
	}
	return f.Points[idx], true
}

// Len returns the number of landmarks in the frame.
func (f *FaceLandmarks) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Points)
}
