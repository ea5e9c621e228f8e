package downsample

import (
	"fmt"
	"os"
	"sort"

	"github.com/grailbio/base/errors"
)

// positionBins is the number of buckets in the per-tile coordinate
// histograms.
const positionBins = 20

// tileHistogram counts reads per coarse coordinate bucket along each
// axis of one tile.
type tileHistogram struct {
	x [positionBins]int64
	y [positionBins]int64
}

// MetricsCollection accumulates counts from the selection pass of one
// run: the total and kept read counts used for the post-run rate
// check, and per-tile coordinate histograms describing how reads were
// distributed within each tile.
type MetricsCollection struct {
	// Total is the number of reads examined during the selection pass.
	Total int64

	// Kept is the number of reads written to the output.
	Kept int64

	tiles map[int]*tileHistogram
}

func newMetricsCollection() *MetricsCollection {
	return &MetricsCollection{tiles: make(map[int]*tileHistogram)}
}

// KeptFraction returns Kept/Total, or 0 if no reads were examined.
func (mc *MetricsCollection) KeptFraction() float64 {
	if mc.Total == 0 {
		return 0
	}
	return float64(mc.Kept) / float64(mc.Total)
}

// recordPosition adds one read's position to its tile's histograms.
func (mc *MetricsCollection) recordPosition(loc PhysicalLocation, bounds *tileBounds) {
	h, found := mc.tiles[loc.Tile]
	if !found {
		h = &tileHistogram{}
		mc.tiles[loc.Tile] = h
	}
	h.x[positionBin(loc.X, bounds.maxX)]++
	h.y[positionBin(loc.Y, bounds.maxY)]++
}

// positionBin buckets coordinate v into one of positionBins bins
// spanning [0, max]. Out of range values are clamped to the end bins.
func positionBin(v, max int) int {
	if max <= 0 {
		return 0
	}
	bin := v * positionBins / max
	if bin < 0 {
		bin = 0
	}
	if bin >= positionBins {
		bin = positionBins - 1
	}
	return bin
}

func writeMetrics(opts *Opts, mc *MetricsCollection) (err error) {
	var f *os.File
	f, err = os.Create(opts.MetricsFile)
	if err != nil {
		return errors.E(err, "Couldn't create metrics file:", opts.MetricsFile)
	}
	defer func() {
		if err2 := f.Close(); err == nil && err2 != nil {
			err = err2
		}
	}()

	s := "# tiledown\n" +
		fmt.Sprintf("# requested probability: %g\n", opts.Probability) +
		fmt.Sprintf("# kept %d out of %d reads (fraction=%f)\n", mc.Kept, mc.Total, mc.KeptFraction()) +
		"TILE\tAXIS\tBIN\tCOUNT\n"
	if _, err = f.WriteString(s); err != nil {
		return errors.E(err, "error writing to metrics file:", opts.MetricsFile)
	}

	tiles := make([]int, 0, len(mc.tiles))
	for tile := range mc.tiles {
		tiles = append(tiles, tile)
	}
	sort.Ints(tiles)
	for _, tile := range tiles {
		h := mc.tiles[tile]
		for bin, count := range h.x {
			if _, err = fmt.Fprintf(f, "%d\tx\t%d\t%d\n", tile, bin, count); err != nil {
				return errors.E(err, "error writing to metrics file:", opts.MetricsFile)
			}
		}
		for bin, count := range h.y {
			if _, err = fmt.Fprintf(f, "%d\ty\t%d\t%d\n", tile, bin, count); err != nil {
				return errors.E(err, "error writing to metrics file:", opts.MetricsFile)
			}
		}
	}
	return nil
}
