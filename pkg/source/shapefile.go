package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"footprints/pkg/model"
	"footprints/pkg/reproject"
)

func readShapefile(path string) (*Dataset, error) {
	shape, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open shapefile: %v", ErrRead, err)
	}
	defer shape.Close()

	fields := shape.Fields()
	fieldNames := make([]string, len(fields))
	for i, f := range fields {
		fieldNames[i] = f.String()
	}

	ds := &Dataset{
		Path:   path,
		Driver: DriverShapefile,
		CRS:    readPRJ(path),
		Fields: fieldNames,
	}

	for shape.Next() {
		n, p := shape.Shape()

		var geometry orb.Geometry
		switch s := p.(type) {
		case *shp.Null, nil:
			// Row without a shape: kept, geometry stays nil.
		case *shp.Polygon:
			geometry = assemblePolygons(splitRings(s.NumParts, s.NumPoints, s.Parts, s.Points))
		case *shp.PolygonZ:
			geometry = assemblePolygons(splitRings(s.NumParts, s.NumPoints, s.Parts, s.Points))
		case *shp.PolygonM:
			geometry = assemblePolygons(splitRings(s.NumParts, s.NumPoints, s.Parts, s.Points))
		default:
			return nil, fmt.Errorf("%w: unsupported shape type %T in %s", ErrRead, p, path)
		}

		props := make(map[string]any, len(fields))
		for i, f := range fields {
			props[fieldNames[i]] = parseDBFValue(f, shape.ReadAttribute(n, i))
		}

		ds.Features = append(ds.Features, model.Feature{Geometry: geometry, Properties: props})
	}

	if err := shape.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating shapes: %v", ErrRead, err)
	}
	return ds, nil
}

// readPRJ loads the .prj sidecar. A missing sidecar leaves the CRS undeclared.
func readPRJ(path string) reproject.CRS {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range []string{".prj", ".PRJ"} {
		data, err := os.ReadFile(base + ext)
		if err == nil {
			return reproject.FromDefinition(string(data))
		}
	}
	return reproject.CRS{}
}

func splitRings(numParts, numPoints int32, parts []int32, points []shp.Point) []orb.Ring {
	rings := make([]orb.Ring, 0, numParts)
	for i := 0; i < int(numParts); i++ {
		start := parts[i]
		end := numPoints
		if i < int(numParts)-1 {
			end = parts[i+1]
		}

		ring := make(orb.Ring, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, orb.Point{points[j].X, points[j].Y})
		}
		rings = append(rings, ring)
	}
	return rings
}

// parseDBFValue converts a raw dBASE cell into a typed scalar. Blank or
// overflowed ("****") numeric cells become nil.
func parseDBFValue(f shp.Field, raw string) any {
	s := strings.TrimSpace(strings.Trim(raw, "\x00"))

	switch f.Fieldtype {
	case 'N', 'F':
		if s == "" || strings.Trim(s, "*") == "" {
			return nil
		}
		if f.Precision == 0 {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i
			}
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return v
	case 'L':
		switch strings.ToUpper(s) {
		case "T", "Y":
			return true
		case "F", "N":
			return false
		}
		return nil
	case 'D':
		if s == "" {
			return nil
		}
		return s
	default:
		return s
	}
}
