// Package source loads whole vector datasets of building footprints into
// memory together with their schema and declared reference frame.
package source

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"footprints/pkg/model"
	"footprints/pkg/reproject"
)

// Driver names.
const (
	DriverShapefile  = "ESRI Shapefile"
	DriverGeoJSON    = "GeoJSON"
	DriverGeoJSONSeq = "GeoJSONSeq"
	DriverGeoPackage = "GPKG"
)

// Dataset is a fully loaded input.
type Dataset struct {
	Path     string
	Driver   string
	CRS      reproject.CRS // Zero when the input declares no frame
	Fields   []string      // Attribute names in schema order
	Features []model.Feature
}

// Options tune dataset loading.
type Options struct {
	Layer  string // GeoPackage table; empty selects the first feature table
	Logger *slog.Logger
}

// Open reads the dataset at path, picking a driver from the file extension.
func Open(path string, opts Options) (*Dataset, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}

	var (
		ds  *Dataset
		err error
	)
	switch driverFor(path) {
	case DriverShapefile:
		ds, err = readShapefile(path)
	case DriverGeoJSON:
		ds, err = readGeoJSON(path)
	case DriverGeoJSONSeq:
		ds, err = readGeoJSONSeq(path)
	case DriverGeoPackage:
		ds, err = readGeoPackage(path, opts.Layer)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	opts.Logger.Info("Loaded dataset",
		"path", path,
		"driver", ds.Driver,
		"features", len(ds.Features),
		"fields", len(ds.Fields),
		"crs", ds.CRS.String())
	return ds, nil
}

func driverFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return DriverShapefile
	case ".geojson", ".json":
		return DriverGeoJSON
	case ".geojsonl", ".geojsons", ".geojsonseq", ".ndjson":
		return DriverGeoJSONSeq
	case ".gpkg":
		return DriverGeoPackage
	}
	return ""
}

// HasField reports whether the schema declares name.
func (d *Dataset) HasField(name string) bool {
	for _, f := range d.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// RequireFields fails with ErrMissingField naming every absent field.
func (d *Dataset) RequireFields(names ...string) error {
	var missing []string
	for _, n := range names {
		if !d.HasField(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s (schema has %s)", ErrMissingField,
			strings.Join(missing, ", "), strings.Join(d.Fields, ", "))
	}
	return nil
}
