package model

import (
	"github.com/paulmach/orb"
)

// Feature is one input record: a footprint geometry in the dataset's
// source frame plus its raw attributes.
type Feature struct {
	Geometry   orb.Geometry   // Polygon or MultiPolygon; nil when the source row has no shape
	Properties map[string]any // Field name -> scalar (string, float64, int64, bool or nil)
}

// Attr returns the raw value of the named attribute, nil when absent.
func (f *Feature) Attr(name string) any {
	if f.Properties == nil {
		return nil
	}
	return f.Properties[name]
}

// Record is one output building. It is built once per input feature and
// never modified afterwards.
type Record struct {
	Geometry  orb.Geometry // Valid polygonal geometry in the target frame, or nil
	YearBuilt int          // Normalized year, -1 when unknown
	AgeBucket string       // One of the nine era labels
	BldgID    any          // Identifier copied verbatim from the input
}

// NewRecord creates an output record.
func NewRecord(geom orb.Geometry, yearBuilt int, ageBucket string, bldgID any) Record {
	return Record{
		Geometry:  geom,
		YearBuilt: yearBuilt,
		AgeBucket: ageBucket,
		BldgID:    bldgID,
	}
}
