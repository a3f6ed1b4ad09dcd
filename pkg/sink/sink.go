// Package sink writes output records as newline delimited GeoJSON features.
package sink

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"

	"footprints/pkg/model"
)

// ErrWrite indicates the output could not be created or written.
var ErrWrite = errors.New("cannot write output")

// properties holds exactly the published attributes, in a fixed order.
type properties struct {
	YearBuilt int    `json:"year_built"`
	AgeBucket string `json:"age_bucket"`
	BldgID    any    `json:"bldg_id"`
}

type feature struct {
	Type       string            `json:"type"`
	Properties properties        `json:"properties"`
	Geometry   *geojson.Geometry `json:"geometry"`
}

// WriteNDJSON writes one GeoJSON Feature per line to path, creating parent
// directories and replacing any existing file. The file is closed on every
// return path. It returns the number of records written.
func WriteNDJSON(path string, records []model.Record) (n int, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("%w: failed to create output directory: %v", ErrWrite, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %v", ErrWrite, cerr)
		}
	}()

	return Encode(file, records)
}

// Encode streams records to w as GeoJSON text lines.
func Encode(w io.Writer, records []model.Record) (int, error) {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	for i := range records {
		if err := enc.Encode(toFeature(&records[i])); err != nil {
			return i, fmt.Errorf("%w: record %d: %v", ErrWrite, i, err)
		}
	}
	if err := buf.Flush(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return len(records), nil
}

func toFeature(r *model.Record) feature {
	f := feature{
		Type: "Feature",
		Properties: properties{
			YearBuilt: r.YearBuilt,
			AgeBucket: r.AgeBucket,
			BldgID:    r.BldgID,
		},
	}
	if r.Geometry != nil {
		f.Geometry = geojson.NewGeometry(r.Geometry)
	}
	return f
}
