package downsample

// tileBounds holds the largest X and Y coordinates observed in one
// tile, and the number of reads observed there.
type tileBounds struct {
	maxX  int
	maxY  int
	count int
}

// boundsMap maps a tile to the coordinate bounds observed in it
// during the first pass. We might need to track bounds per readgroup
// eventually, but at this point the assumption is that all readgroups
// of the input came from the same type of flowcell.
type boundsMap map[int]*tileBounds

// getOrInsert returns the bounds entry for tile, inserting a zeroed
// entry if the tile has not been seen. The returned pointer aliases
// the map entry.
func (b boundsMap) getOrInsert(tile int) *tileBounds {
	t, ok := b[tile]
	if !ok {
		t = &tileBounds{}
		b[tile] = t
	}
	return t
}

// observe folds one read's location into the running per-tile maxima.
func (b boundsMap) observe(loc PhysicalLocation) {
	t := b.getOrInsert(loc.Tile)
	if loc.X > t.maxX {
		t.maxX = loc.X
	}
	if loc.Y > t.maxY {
		t.maxY = loc.Y
	}
	t.count++
}

// inflate scales every tile's maxima by (count+1)/count. The largest
// observed coordinate in a finite sample slightly underestimates the
// true tile extent, so nudge it upward. The map must not be modified
// after inflate returns.
func (b boundsMap) inflate() {
	for _, t := range b {
		if t.count == 0 {
			continue
		}
		scale := (float64(t.count) + 1) / float64(t.count)
		t.maxX = int(float64(t.maxX) * scale)
		t.maxY = int(float64(t.maxY) * scale)
	}
}
