package features

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ayusman/lipread/internal/mesh"
)

var (
	// ErrMissingLandmark is reported when a frame lacks the anchor or a lip index.
	ErrMissingLandmark = errors.New("missing landmark")
	// ErrNonFinite is reported when a landmark or derived value is NaN or infinite.
	ErrNonFinite = errors.New("non-finite value")
)

// Extractor converts landmark frames into feature vectors.
type Extractor struct {
	logger   zerolog.Logger
	failures atomic.Int64
}

// NewExtractor creates an extractor that reports failures to logger.
func NewExtractor(logger zerolog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// result is the outcome of analyzing one frame.
type result struct {
	vector Vector
	err    error
}

// Extract returns the feature vector for frame. It never fails: a frame that
// cannot be analyzed yields the zero vector and the failure is logged.
func (e *Extractor) Extract(frame mesh.FaceLandmarks) Vector {
	r := analyze(&frame)
	if r.err != nil {
		e.failures.Add(1)
		e.logger.Warn().Err(r.err).Int("points", frame.Len()).Msg("feature extraction failed")
		return Vector{}
	}
	return r.vector
}

// Failures returns how many frames fell back to the zero vector.
func (e *Extractor) Failures() int64 {
	return e.failures.Load()
}

func analyze(frame *mesh.FaceLandmarks) result {
	anchor, ok := frame.Point(mesh.Anchor)
	if !ok {
		return result{err: fmt.Errorf("anchor %d: %w", mesh.Anchor, ErrMissingLandmark)}
	}

	var v Vector
	for i, idx := range mesh.LipIndices() {
		p, ok := frame.Point(idx)
		if !ok {
			return result{err: fmt.Errorf("lip index %d: %w", idx, ErrMissingLandmark)}
		}
		v.Differences[i] = p.Sub(anchor)
	}

	outer := bounds(frame, mesh.OuterLip)
	inner := bounds(frame, mesh.InnerLip)
	v.Geometry = Geometry{
		Height:    outer.maxY - outer.minY,
		Width:     outer.maxX - outer.minX,
		InnerArea: math.Abs(inner.maxX-inner.minX) * math.Abs(inner.maxY-inner.minY),
	}

	if !v.finite() {
		return result{err: ErrNonFinite}
	}

	return result{vector: v}
}

type box struct {
	minX, maxX, minY, maxY float64
}

// bounds returns the axis-aligned box of a lip ring. All indices must exist.
func bounds(frame *mesh.FaceLandmarks, ring [mesh.NumLipRing]int) box {
	b := box{
		minX: math.Inf(1), maxX: math.Inf(-1),
		minY: math.Inf(1), maxY: math.Inf(-1),
	}
	for _, idx := range ring {
		p := frame.Points[idx]
		b.minX = math.Min(b.minX, p.X)
		b.maxX = math.Max(b.maxX, p.X)
		b.minY = math.Min(b.minY, p.Y)
		b.maxY = math.Max(b.maxY, p.Y)
	}
	return b
}
