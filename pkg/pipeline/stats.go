package pipeline

import (
	"log/slog"
	"time"

	"footprints/pkg/year"
)

// Stats counts what happened during a run. They are logged, never written
// to the output.
type Stats struct {
	Records           int
	UnknownYears      int
	Buckets           map[year.Bucket]int
	NullGeometries    int // Absent in the input or repaired to nothing
	Simplified        int
	SimplifyFallbacks int // Features kept unsimplified after a simplifier failure
	VerticesIn        int
	VerticesOut       int
	Repaired          int
	Collapsed         int // Repaired geometries with no area left
	Duration          time.Duration
}

func newStats() Stats {
	return Stats{Buckets: make(map[year.Bucket]int)}
}

// Log writes the run summary and the bucket histogram.
func (s *Stats) Log(log *slog.Logger) {
	log.Info("Conversion complete",
		"records", s.Records,
		"unknown_years", s.UnknownYears,
		"null_geometries", s.NullGeometries,
		"simplified", s.Simplified,
		"simplify_fallbacks", s.SimplifyFallbacks,
		"vertices_in", s.VerticesIn,
		"vertices_out", s.VerticesOut,
		"repaired", s.Repaired,
		"collapsed", s.Collapsed,
		"duration", s.Duration)

	attrs := make([]any, 0, 2*len(year.Buckets()))
	for _, b := range year.Buckets() {
		attrs = append(attrs, b.String(), s.Buckets[b])
	}
	log.Info("Age buckets", attrs...)
}
