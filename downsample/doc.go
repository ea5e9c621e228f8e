/*Package downsample keeps or discards reads of a .bam file based on
  the position of each read within its flowcell tile.

  Unlike random downsampling, the decision for each read is a
  deterministic function of the read's physical location, which is
  parsed from its (Illumina style) read name. Reads that share a name,
  and therefore a location, are kept or dropped together: mates,
  secondary and supplementary alignments of a cluster always receive
  the same decision, and repeated runs over the same input produce the
  same output.

  The tool makes two sequential passes over the input. The first pass
  estimates the coordinate extent of every tile by tracking the
  largest X and Y seen per tile, then inflating those maxima slightly
  to account for having observed only a finite sample. The second pass
  normalizes each read's coordinates into its tile's unit square and
  tests them against a circle whose area equals the requested keep
  probability. The circle is centered so that its intersection with
  each edge of the unit square has width equal to that probability,
  and coordinates are folded modulo 1 before the test. Together these
  make the decisions consistent across tile boundaries, where
  physically adjacent clusters land on opposite edges of neighboring
  tiles.

  The resulting fraction of kept reads only approximates the requested
  probability; the goal is a faithful simulation of a lower throughput
  sequencing run, not an exact subsample. Because the representative
  read of a duplicate set may be downsampled away, duplicate flags on
  kept reads are cleared by default and duplicates should be re-marked
  afterwards.

  Downsampling an output of this tool again is refused by default:
  composing two circle selections is not equivalent to a single
  selection with the product probability, and the result is
  statistically surprising. The output header carries a @PG record
  that the tool uses to detect this.
*/
package downsample
