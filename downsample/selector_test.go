package downsample

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

var selectorBounds = &tileBounds{maxX: 2000, maxY: 2000, count: 1000}

func TestSelectorDeterminism(t *testing.T) {
	s := newCircleSelector(0.3)
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		loc := PhysicalLocation{Tile: 1101, X: r.Intn(2001), Y: r.Intn(2001)}
		first := s.keep(loc, selectorBounds)
		for j := 0; j < 10; j++ {
			assert.Equal(t, first, s.keep(loc, selectorBounds), "decision changed for %+v", loc)
		}
	}
}

func TestSelectorComplement(t *testing.T) {
	// Selectors for p and 1-p share the same circle with the keep
	// side flipped, so their decisions are complementary everywhere.
	for _, p := range []float64{0.1, 0.25, 0.4, 0.49} {
		s := newCircleSelector(p)
		c := newCircleSelector(1 - p)
		for x := 0; x <= 2000; x += 50 {
			for y := 0; y <= 2000; y += 50 {
				loc := PhysicalLocation{Tile: 1101, X: x, Y: y}
				assert.NotEqual(t, s.keep(loc, selectorBounds), c.keep(loc, selectorBounds),
					"p=%f x=%d y=%d", p, x, y)
			}
		}
	}
}

func TestSelectorExtremes(t *testing.T) {
	zero := newCircleSelector(0)
	one := newCircleSelector(1)
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 1000; i++ {
		// Interior positions only: at probability 0 the circle
		// degenerates to the point (0, 0), which positions exactly on
		// a tile corner can still hit.
		loc := PhysicalLocation{Tile: 1101, X: 1 + r.Intn(1999), Y: 1 + r.Intn(1999)}
		assert.False(t, zero.keep(loc, selectorBounds), "p=0 kept %+v", loc)
		assert.True(t, one.keep(loc, selectorBounds), "p=1 dropped %+v", loc)
	}
}

func TestSelectorWrapConsistency(t *testing.T) {
	// A cluster at X=0 and one at X=maxX occupy the same physical
	// position on adjacent tiles, and must get the same decision.
	// Same for Y, and for the four corners.
	for _, p := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		s := newCircleSelector(p)
		for v := 0; v <= 2000; v += 97 {
			low := s.keep(PhysicalLocation{Tile: 1101, X: 0, Y: v}, selectorBounds)
			high := s.keep(PhysicalLocation{Tile: 1101, X: 2000, Y: v}, selectorBounds)
			assert.Equal(t, low, high, "p=%f y=%d", p, v)

			low = s.keep(PhysicalLocation{Tile: 1101, X: v, Y: 0}, selectorBounds)
			high = s.keep(PhysicalLocation{Tile: 1101, X: v, Y: 2000}, selectorBounds)
			assert.Equal(t, low, high, "p=%f x=%d", p, v)
		}
		corners := []PhysicalLocation{
			{Tile: 1101, X: 0, Y: 0},
			{Tile: 1101, X: 0, Y: 2000},
			{Tile: 1101, X: 2000, Y: 0},
			{Tile: 1101, X: 2000, Y: 2000},
		}
		first := s.keep(corners[0], selectorBounds)
		for _, corner := range corners[1:] {
			assert.Equal(t, first, s.keep(corner, selectorBounds), "p=%f corner=%+v", p, corner)
		}
	}
}

func TestSelectorFraction(t *testing.T) {
	// Over a fine uniform grid the kept fraction should track the
	// requested probability closely; the documented contract for real
	// inputs is only within 20% relative.
	for _, p := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		s := newCircleSelector(p)
		kept, total := 0, 0
		for x := 0; x < 2000; x += 5 {
			for y := 0; y < 2000; y += 5 {
				total++
				if s.keep(PhysicalLocation{Tile: 1101, X: x, Y: y}, selectorBounds) {
					kept++
				}
			}
		}
		fraction := float64(kept) / float64(total)
		assert.InDelta(t, p, fraction, 0.02, "p=%f fraction=%f", p, fraction)
	}
}

func TestRoundedPart(t *testing.T) {
	for _, tc := range []struct {
		v    float64
		want float64
	}{
		{0, 0},
		{0.25, 0.25},
		{0.75, -0.25},
		{1, 0},
		{1.25, 0.25},
		{-0.25, -0.25},
		{-0.75, 0.25},
	} {
		t.Run(fmt.Sprintf("%g", tc.v), func(t *testing.T) {
			assert.True(t, math.Abs(roundedPart(tc.v)-tc.want) < 1e-12,
				"roundedPart(%g)=%g, want %g", tc.v, roundedPart(tc.v), tc.want)
		})
	}
}
