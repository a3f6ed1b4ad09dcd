package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"footprints/pkg/geo"
	"footprints/pkg/logging"
	"footprints/pkg/model"
	"footprints/pkg/reproject"
	"footprints/pkg/source"
	"footprints/pkg/year"
)

// reasoner is implemented by kernels that can explain invalidity.
type reasoner interface {
	Reason(g orb.Geometry) string
}

func (p *Pipeline) reprojectAll(log *slog.Logger, buildings []building, from reproject.CRS) error {
	// The frame is checked up front so an empty or all-null dataset with a
	// bad declaration still fails.
	if _, err := p.reprojector.Reproject(nil, from, Target); err != nil {
		return fmt.Errorf("failed to reproject input: %w", err)
	}

	for i := range buildings {
		if buildings[i].geom == nil {
			continue
		}
		g, err := p.reprojector.Reproject(buildings[i].geom, from, Target)
		if err != nil {
			return fmt.Errorf("failed to reproject feature %d: %w", i, err)
		}
		buildings[i].geom = g
	}

	log.Debug("Reprojected features", "from", from.String(), "to", Target.String(), "count", len(buildings))
	return nil
}

func (p *Pipeline) classifyAll(buildings []building, ds *source.Dataset, opts Options) {
	for i := range buildings {
		y := year.Normalize(ds.Features[i].Attr(opts.YearField), opts.CurrentYear)
		b := year.AssignBucket(y)
		buildings[i].year = y
		buildings[i].bucket = b

		p.stats.Buckets[b]++
		if !y.Known() {
			p.stats.UnknownYears++
		}
	}
}

func (p *Pipeline) simplifyAll(log *slog.Logger, buildings []building, tolerance float64) {
	if tolerance <= 0 {
		log.Debug("Simplification disabled")
		return
	}

	for i := range buildings {
		orig := buildings[i].geom
		if orig == nil {
			continue
		}

		g, err := geo.Simplify(p.simplifier, orig, tolerance)
		if err != nil {
			log.Warn("Simplification failed, keeping original geometry", "feature", i, "id", buildings[i].id, "error", err)
			p.stats.SimplifyFallbacks++
			continue
		}
		if g == nil || geo.VertexCount(g) == 0 {
			log.Warn("Simplification collapsed geometry, keeping original", "feature", i, "id", buildings[i].id)
			p.stats.SimplifyFallbacks++
			continue
		}

		p.stats.VerticesIn += geo.VertexCount(orig)
		p.stats.VerticesOut += geo.VertexCount(g)
		p.stats.Simplified++
		buildings[i].geom = g
	}
}

func (p *Pipeline) repairAll(log *slog.Logger, buildings []building) error {
	for i := range buildings {
		orig := buildings[i].geom
		if orig == nil {
			p.stats.NullGeometries++
			continue
		}

		g, repaired, err := geo.Repair(p.validator, orig)
		if err != nil {
			return fmt.Errorf("failed to repair feature %d: %w", i, err)
		}
		if !repaired {
			continue
		}

		p.stats.Repaired++
		if log.Enabled(context.Background(), slog.LevelDebug) {
			args := []any{"feature", i, "id", buildings[i].id}
			if r, ok := p.validator.(reasoner); ok {
				args = append(args, "reason", r.Reason(orig))
			}
			log.Debug("Repaired invalid geometry", args...)
		}
		if logging.EnableTrace {
			logging.Trace(log, "Repair detail", "feature", i, "before", wkt.MarshalString(orig), "after", marshalWKT(g))
		}

		if g == nil {
			p.stats.Collapsed++
			p.stats.NullGeometries++
		}
		buildings[i].geom = g
	}
	return nil
}

func project(buildings []building) []model.Record {
	records := make([]model.Record, len(buildings))
	for i := range buildings {
		b := &buildings[i]
		records[i] = model.NewRecord(b.geom, b.year.Int(), b.bucket.String(), b.id)
	}
	return records
}

func marshalWKT(g orb.Geometry) string {
	if g == nil {
		return "EMPTY"
	}
	return wkt.MarshalString(g)
}
