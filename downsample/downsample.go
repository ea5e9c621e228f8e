package downsample

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	gbam "github.com/grailbio/bio/encoding/bam"
	"github.com/grailbio/bio/encoding/bamprovider"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
)

// ProgramName is recorded in the output header's @PG line, and is
// how the tool recognizes inputs it has already downsampled.
const ProgramName = "tiledown"

var (
	diTag = sam.Tag{'D', 'I'}
	dlTag = sam.Tag{'D', 'L'}
	dsTag = sam.Tag{'D', 'S'}
	dtTag = sam.Tag{'D', 'T'}
	duTag = sam.Tag{'D', 'U'}
)

// Opts for position-based downsampling.
type Opts struct {
	// Commandline options.
	BamFile     string
	IndexFile   string
	OutputPath  string
	MetricsFile string

	// Probability is the approximate fraction of reads to keep, in
	// [0, 1]. The realized fraction depends on how evenly reads are
	// distributed within tiles.
	Probability float64

	// StopAfter, if nonzero, caps the number of reads processed in
	// each of the two passes. Mainly for debugging.
	StopAfter int64

	// ReadNameRegex configures location parsing; see LocationParser.
	// Reads with no parsable location are always kept.
	ReadNameRegex string

	// RemoveDupInfo clears the duplicate flag and duplicate tags on
	// kept reads. Downsampling invalidates prior duplicate marking:
	// the representative of a duplicate set may have been dropped, so
	// duplicates must be re-marked on the output.
	RemoveDupInfo bool

	// AllowMultipleDownsampling permits running on an input that this
	// tool already downsampled, despite the statistically surprising
	// results.
	AllowMultipleDownsampling bool

	// CommandLine is recorded in the @PG record of the output header.
	CommandLine string
}

// Downsampler runs the two-pass position-based downsampling. Create
// one per run; the bounds map and counters are scoped to it, so
// multiple Downsamplers may be run in one process.
type Downsampler struct {
	Provider bamprovider.Provider
	Opts     *Opts

	parser  *LocationParser
	bounds  boundsMap
	metrics *MetricsCollection
}

// Run executes both passes and writes the output. It returns the
// metrics of the run, or an error if any fatal condition was hit
// before or during processing.
func (d *Downsampler) Run(ctx context.Context) (mc *MetricsCollection, err error) {
	opts := d.Opts
	// This also rejects NaN.
	if !(opts.Probability >= 0 && opts.Probability <= 1) {
		return nil, errors.E(fmt.Sprintf("probability must be between 0 and 1, found %g", opts.Probability))
	}

	header, err := d.Provider.GetHeader()
	if err != nil {
		return nil, errors.E(err, "could not read header from:", opts.BamFile)
	}
	if err = d.checkPrograms(header); err != nil {
		return nil, err
	}

	// An unwritable output path is a configuration error; surface it
	// here rather than after a full first pass over the input.
	var out io.Writer = os.Stdout
	if opts.OutputPath != "" {
		f, ferr := file.Create(ctx, opts.OutputPath)
		if ferr != nil {
			return nil, errors.E(ferr, "Couldn't create output file:", opts.OutputPath)
		}
		defer func() {
			if err2 := f.Close(ctx); err == nil && err2 != nil {
				err = err2
			}
		}()
		out = f.Writer(ctx)
	}

	d.parser = NewLocationParser(opts.ReadNameRegex)
	d.bounds = make(boundsMap)
	d.metrics = newMetricsCollection()

	log.Printf("starting first pass: examining read distribution in tiles")
	if err = d.fillTileBounds(header); err != nil {
		return nil, err
	}
	log.Printf("first pass done: %d tiles", len(d.bounds))

	log.Printf("starting second pass: writing kept reads")
	if err = d.writeKept(header, newCircleSelector(opts.Probability), out); err != nil {
		return nil, err
	}

	finalP := d.metrics.KeptFraction()
	if d.metrics.Total > 0 &&
		math.Abs(finalP-opts.Probability)/(math.Min(finalP, opts.Probability)+1e-10) > 0.2 {
		log.Error.Printf("requested probability %g, but downsampling kept a fraction %f of reads",
			opts.Probability, finalP)
	}
	log.Printf("finished: kept %d out of %d reads (fraction=%g)", d.metrics.Kept, d.metrics.Total, finalP)

	if opts.MetricsFile != "" {
		if err = writeMetrics(opts, d.metrics); err != nil {
			return nil, err
		}
	}
	return d.metrics, nil
}

// checkPrograms refuses to downsample an input that already carries
// this tool's @PG record. Two stacked circle selections do not
// compose into one selection with the product probability, so
// repeated downsampling gives surprising results.
func (d *Downsampler) checkPrograms(header *sam.Header) error {
	for _, prog := range header.Progs() {
		if prog.Name() != ProgramName {
			continue
		}
		err := errors.E(fmt.Sprintf(
			"input was already downsampled by %s (PG record %q); downsampling twice is not supported",
			ProgramName, prog.UID()))
		if !d.Opts.AllowMultipleDownsampling {
			return err
		}
		log.Error.Printf("%v (continuing because allow-multiple-downsampling is set)", err)
	}
	return nil
}

// fillTileBounds is the first pass: scan every read and track the
// largest coordinates seen in each tile.
func (d *Downsampler) fillTileBounds(header *sam.Header) error {
	iter := d.Provider.NewIterator(gbam.UniversalShard(header))
	var total int64
	for iter.Scan() {
		if d.Opts.StopAfter != 0 && total >= d.Opts.StopAfter {
			break
		}
		total++
		rec := iter.Record()
		loc, ok, err := d.parser.Parse(rec.Name)
		sam.PutInFreePool(rec)
		if err != nil {
			_ = iter.Close()
			return err
		}
		if !ok {
			continue
		}
		d.bounds.observe(loc)
	}
	if err := iter.Close(); err != nil {
		return errors.E(err, "error reading input during first pass:", d.Opts.BamFile)
	}
	d.bounds.inflate()
	return nil
}

// writeKept is the second pass: re-scan every read, decide with the
// selector, and write the kept reads to out in input order.
func (d *Downsampler) writeKept(header *sam.Header, selector *circleSelector, out io.Writer) error {
	outHeader := header.Clone()
	prog := sam.NewProgram(programUID(outHeader), ProgramName, d.Opts.CommandLine, "", "")
	if err := outHeader.AddProgram(prog); err != nil {
		return errors.E(err, "could not add @PG record to output header")
	}
	writer, err := bam.NewWriter(out, outHeader, 1)
	if err != nil {
		return errors.E(err, "Couldn't create bam writer for:", d.Opts.OutputPath)
	}

	iter := d.Provider.NewIterator(gbam.UniversalShard(header))
	closeAll := func(first error) error {
		if err2 := iter.Close(); first == nil {
			first = err2
		}
		if err2 := writer.Close(); first == nil {
			first = err2
		}
		return first
	}

	for iter.Scan() {
		if d.Opts.StopAfter != 0 && d.metrics.Total >= d.Opts.StopAfter {
			break
		}
		d.metrics.Total++
		rec := iter.Record()

		loc, ok, perr := d.parser.Parse(rec.Name)
		if perr != nil {
			_ = closeAll(nil)
			return perr
		}
		// A read with no location cannot be placed in the circle, so
		// it is kept. This only happens when parsing is disabled.
		keep := true
		if ok {
			bounds := d.bounds.getOrInsert(loc.Tile)
			d.metrics.recordPosition(loc, bounds)
			keep = selector.keep(loc, bounds)
		}
		if keep {
			if d.Opts.RemoveDupInfo {
				clearDupInfo(rec)
			}
			if werr := writer.Write(rec); werr != nil {
				_ = closeAll(nil)
				return errors.E(werr, "error writing to output:", d.Opts.OutputPath)
			}
			d.metrics.Kept++
		}
		sam.PutInFreePool(rec)
	}
	if err = closeAll(nil); err != nil {
		return errors.E(err, "error finishing output:", d.Opts.OutputPath)
	}
	return nil
}

// programUID returns a @PG ID that does not collide with any ID
// already in the header: "tiledown", then "tiledown.1", and so on.
func programUID(header *sam.Header) string {
	used := make(map[string]bool)
	for _, prog := range header.Progs() {
		used[prog.UID()] = true
	}
	uid := ProgramName
	for n := 1; used[uid]; n++ {
		uid = ProgramName + "." + strconv.Itoa(n)
	}
	return uid
}

func clearDupInfo(r *sam.Record) {
	r.Flags &^= sam.Duplicate

	tagsToRemove := []sam.Tag{diTag, dlTag, dsTag, dtTag, duTag}
	gbam.ClearAuxTags(r, tagsToRemove)
}
