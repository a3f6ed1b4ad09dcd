// Package pipeline converts a building footprint dataset into newline
// delimited GeoJSON. Each stage runs over every feature before the next
// stage starts; the output file is only opened once all of them succeeded.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"footprints/pkg/geo"
	"footprints/pkg/reproject"
	"footprints/pkg/sink"
	"footprints/pkg/source"
	"footprints/pkg/year"
)

// Target is the frame every output geometry is expressed in.
var Target = reproject.WGS84

// Reprojector moves geometries between reference frames.
type Reprojector interface {
	Reproject(g orb.Geometry, from, to reproject.CRS) (orb.Geometry, error)
}

// Options describe one conversion run.
type Options struct {
	InputPath   string
	OutputPath  string
	Layer       string  // GeoPackage table; empty selects the first one
	CurrentYear int     // Upper bound for plausible construction years
	Tolerance   float64 // Simplification tolerance in degrees; <= 0 disables
	YearField   string  // Source attribute holding the construction year
	IDField     string  // Source attribute holding the building identifier
}

// Pipeline runs conversions. It is not safe for concurrent use.
type Pipeline struct {
	logger      *slog.Logger
	validator   geo.Validator
	simplifier  geo.Simplifier
	reprojector Reprojector
	stats       Stats
}

// New creates a Pipeline.
func New(logger *slog.Logger, validator geo.Validator, simplifier geo.Simplifier, reprojector Reprojector) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:      logger,
		validator:   validator,
		simplifier:  simplifier,
		reprojector: reprojector,
	}
}

// building is the working state of one feature between stages.
type building struct {
	geom   orb.Geometry
	year   year.Year
	bucket year.Bucket
	id     any
}

// Run executes a conversion and returns the number of records written.
// Any error aborts the run before the output file is touched, except
// failures of the write itself.
func (p *Pipeline) Run(opts Options) (int, error) {
	start := time.Now()
	p.stats = newStats()
	log := p.logger.With("run_id", uuid.NewString())

	log.Info("Starting conversion",
		"input", opts.InputPath,
		"output", opts.OutputPath,
		"current_year", opts.CurrentYear,
		"tolerance", opts.Tolerance)

	// 1. Load
	ds, err := source.Open(opts.InputPath, source.Options{Layer: opts.Layer, Logger: log})
	if err != nil {
		return 0, fmt.Errorf("failed to load input: %w", err)
	}

	// 2. Schema
	if err := ds.RequireFields(opts.YearField, opts.IDField); err != nil {
		return 0, err
	}

	buildings := make([]building, len(ds.Features))
	for i := range ds.Features {
		buildings[i] = building{
			geom: ds.Features[i].Geometry,
			id:   ds.Features[i].Attr(opts.IDField),
		}
	}

	// 3. Reproject
	if err := p.reprojectAll(log, buildings, ds.CRS); err != nil {
		return 0, err
	}

	// 4. Years and buckets
	p.classifyAll(buildings, ds, opts)

	// 5. Simplify
	p.simplifyAll(log, buildings, opts.Tolerance)

	// 6. Repair
	if err := p.repairAll(log, buildings); err != nil {
		return 0, err
	}

	// 7. Project to output records
	records := project(buildings)

	// 8. Write
	n, err := sink.WriteNDJSON(opts.OutputPath, records)
	if err != nil {
		return 0, fmt.Errorf("failed to write output: %w", err)
	}

	p.stats.Records = n
	p.stats.Duration = time.Since(start)
	p.stats.Log(log)

	// 9. Count
	return n, nil
}

// Stats returns the counters of the most recent run.
func (p *Pipeline) Stats() Stats {
	return p.stats
}
