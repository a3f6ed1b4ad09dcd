package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"footprints/pkg/model"
	"footprints/pkg/reproject"
)

// maxSeqLine bounds a single GeoJSON text sequence record.
const maxSeqLine = 64 << 20

// legacyCRS is the pre-RFC 7946 "crs" member.
type legacyCRS struct {
	CRS *struct {
		Type       string `json:"type"`
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
}

func readGeoJSON(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read geojson %s: %v", ErrRead, path, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse geojson %s: %v", ErrRead, path, err)
	}

	var legacy legacyCRS
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("%w: failed to parse geojson %s: %v", ErrRead, path, err)
	}

	ds := &Dataset{Path: path, Driver: DriverGeoJSON, CRS: reproject.WGS84}
	if legacy.CRS != nil {
		// Only named CRS objects can be resolved; anything else stays undeclared.
		ds.CRS = reproject.Parse(legacy.CRS.Properties.Name)
	}

	b := newSchemaBuilder()
	for i, f := range fc.Features {
		feat, err := convertFeature(f, i)
		if err != nil {
			return nil, err
		}
		b.add(feat.Properties)
		ds.Features = append(ds.Features, feat)
	}
	ds.Fields = b.fields
	return ds, nil
}

// readGeoJSONSeq reads newline delimited features (RFC 8142 record
// separators are tolerated). Sequences are always WGS84.
func readGeoJSONSeq(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrRead, path, err)
	}
	defer file.Close()

	ds := &Dataset{Path: path, Driver: DriverGeoJSONSeq, CRS: reproject.WGS84}
	b := newSchemaBuilder()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSeqLine)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(bytes.TrimLeft(scanner.Bytes(), "\x1e"))
		if len(raw) == 0 {
			continue
		}

		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrRead, path, line, err)
		}
		feat, err := convertFeature(f, len(ds.Features))
		if err != nil {
			return nil, err
		}
		b.add(feat.Properties)
		ds.Features = append(ds.Features, feat)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to scan %s: %v", ErrRead, path, err)
	}

	ds.Fields = b.fields
	return ds, nil
}

func convertFeature(f *geojson.Feature, idx int) (model.Feature, error) {
	switch f.Geometry.(type) {
	case nil, orb.Polygon, orb.MultiPolygon:
	default:
		return model.Feature{}, fmt.Errorf("%w: feature %d has non-polygonal geometry %s", ErrRead, idx, f.Geometry.GeoJSONType())
	}

	props := make(map[string]any, len(f.Properties))
	for k, v := range f.Properties {
		props[k] = v
	}
	return model.Feature{Geometry: f.Geometry, Properties: props}, nil
}

// schemaBuilder collects attribute names across features in first-seen order.
type schemaBuilder struct {
	seen   map[string]bool
	fields []string
}

func newSchemaBuilder() *schemaBuilder {
	return &schemaBuilder{seen: make(map[string]bool)}
}

func (b *schemaBuilder) add(props map[string]any) {
	keys := make([]string, 0, len(props))
	for k := range props {
		if !b.seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.seen[k] = true
		b.fields = append(b.fields, k)
	}
}
