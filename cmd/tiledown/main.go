package main

/*
  tiledown downsamples a BAM file deterministically, keeping or
  dropping each read based on its physical position within its
  flowcell tile. For more information, see
  github.com/grailbio/tiledown/downsample/doc.go
*/

import (
	"flag"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bio/encoding/bamprovider"
	"github.com/grailbio/tiledown/downsample"
)

var (
	bamFile     = flag.String("bam", "", "Input BAM filename")
	indexFile   = flag.String("index", "", "Input BAM index filename. By default, set to input BAM filename + .bai")
	outputPath  = flag.String("output", "", "Output BAM filename. By default, write to stdout")
	metricsFile = flag.String("metrics", "", "Output metrics file with per-tile position histograms")
	probability = flag.Float64("probability", 1, "The (approximate) probability of keeping a read, between 0 and 1")
	stopAfter   = flag.Int64("stop-after", 0, "Stop each pass after processing N reads, mainly for debugging")
	readNameRegex = flag.String("read-name-regex", downsample.DefaultReadNameRegex,
		"Regular expression with three capture groups (tile, x, y) used to extract physical locations from read names. Set to the empty string to disable location parsing and keep every read")
	removeDupInfo = flag.Bool("remove-duplicate-info", true,
		"Clear duplicate flags and tags on kept reads, since duplicates must be re-marked after downsampling")
	allowMultiple = flag.Bool("allow-multiple-downsampling", false,
		"Allow downsampling an input already downsampled by this tool, despite this being a bad idea with possibly unexpected results")
)

func main() {
	shutdown := grail.Init()
	defer shutdown()

	// Validate parameters.
	if flag.NArg() > 0 {
		a := flag.Args()
		log.Fatalf("unparsed flags, please check flag syntax: '%s'", strings.Join(a[len(a)-flag.NArg():], " "))
	}
	if *bamFile == "" {
		log.Fatalf("missing required flag: -bam")
	}

	opts := downsample.Opts{
		BamFile:                   *bamFile,
		IndexFile:                 *indexFile,
		OutputPath:                *outputPath,
		MetricsFile:               *metricsFile,
		Probability:               *probability,
		StopAfter:                 *stopAfter,
		ReadNameRegex:             *readNameRegex,
		RemoveDupInfo:             *removeDupInfo,
		AllowMultipleDownsampling: *allowMultiple,
		CommandLine:               strings.Join(os.Args, " "),
	}

	provider := bamprovider.NewProvider(opts.BamFile, bamprovider.ProviderOpts{Index: opts.IndexFile})
	d := &downsample.Downsampler{
		Provider: provider,
		Opts:     &opts,
	}

	ctx := vcontext.Background()
	if _, err := d.Run(ctx); err != nil {
		log.Fatalf(err.Error())
	}
	if err := provider.Close(); err != nil {
		log.Fatalf("error closing %s: %v", opts.BamFile, err)
	}
	log.Debug.Printf("exiting")
}
