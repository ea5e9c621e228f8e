package downsample

import "math"

// circleSelector makes the per-read keep decision. It draws a circle
// whose area is the fraction of the unit square to keep (or, for
// fractions above one half, the complementary fraction to discard),
// centered so that the circle's intersection with each edge of the
// unit square has width equal to that fraction. Combined with folding
// coordinates modulo 1,
// the mask tiles consistently across neighboring flowcell tiles, so
// clusters near a shared tile edge are kept or dropped the same way
// on both sides.
//
// Immutable after construction; decisions depend only on the
// normalized position, never on read order or a random seed.
type circleSelector struct {
	radiusSquared     float64
	offset            float64
	positiveSelection bool
}

func newCircleSelector(fraction float64) *circleSelector {
	s := &circleSelector{}
	p := fraction
	if fraction > 0.5 {
		// Work with the complement to avoid numerical trouble when
		// the fraction is close to 1.
		p = 1 - fraction
	} else {
		s.positiveSelection = true
	}
	// The area is pi*r^2 = p, so the circle covers a fraction p of
	// the unit square.
	s.radiusSquared = p / math.Pi
	// With (offset, offset) as the center, the overlap of the circle
	// with each boundary of the unit square has length p, so the
	// circle covers a fraction p of every tile edge.
	s.offset = math.Sqrt(s.radiusSquared - p*p/4)
	return s
}

// roundedPart returns the signed distance from v to its nearest
// integer, folding v into [-0.5, 0.5]. Ties round toward positive
// infinity.
func roundedPart(v float64) float64 {
	return v - math.Floor(v+0.5)
}

// keep reports whether a read at loc, within a tile of the given
// bounds, should be kept.
func (s *circleSelector) keep(loc PhysicalLocation, bounds *tileBounds) bool {
	// r^2 = (x-x_0)^2 + (y-y_0)^2, where both x_0 and y_0 equal offset.
	dx := roundedPart(float64(loc.X)/float64(bounds.maxX) - s.offset)
	dy := roundedPart(float64(loc.Y)/float64(bounds.maxY) - s.offset)
	distanceSquared := dx*dx + dy*dy

	return (distanceSquared > s.radiusSquared) != s.positiveSelection
}
