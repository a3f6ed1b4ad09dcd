package pipeline

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
	orbproject "github.com/paulmach/orb/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"footprints/pkg/geo"
	"footprints/pkg/reproject"
	"footprints/pkg/source"
	"footprints/pkg/year"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultOptions(in, out string) Options {
	return Options{
		InputPath:   in,
		OutputPath:  out,
		CurrentYear: 2026,
		Tolerance:   0.00001,
		YearField:   "YEAR_BUILT",
		IDField:     "BLDG_ID",
	}
}

type fixture struct {
	geom  orb.Geometry
	props map[string]any
}

func footprint(g orb.Geometry, id any, yearBuilt any) fixture {
	return fixture{geom: g, props: map[string]any{"BLDG_ID": id, "YEAR_BUILT": yearBuilt}}
}

// writeGeoJSON writes a FeatureCollection. A non-empty crsName adds the
// legacy "crs" member.
func writeGeoJSON(t *testing.T, path, crsName string, fixtures ...fixture) {
	t.Helper()
	features := make([]map[string]any, 0, len(fixtures))
	for _, fx := range fixtures {
		f := map[string]any{"type": "Feature", "properties": fx.props, "geometry": nil}
		if fx.geom != nil {
			f["geometry"] = geojson.NewGeometry(fx.geom)
		}
		features = append(features, f)
	}

	doc := map[string]any{"type": "FeatureCollection", "features": features}
	if crsName != "" {
		doc["crs"] = map[string]any{
			"type":       "name",
			"properties": map[string]any{"name": crsName},
		}
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func mustWKT(t *testing.T, s string) orb.Geometry {
	t.Helper()
	g, err := wkt.Unmarshal(s)
	require.NoError(t, err)
	return g
}

func toMercator(g orb.Geometry) orb.Geometry {
	return orbproject.Geometry(orb.Clone(g), orbproject.WGS84.ToMercator)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func newGEOSPipeline(t *testing.T) (*Pipeline, *geo.GEOSKernel) {
	t.Helper()
	kernel := geo.NewGEOSKernel()
	svc := reproject.NewService(quietLogger())
	t.Cleanup(svc.Close)
	return New(quietLogger(), kernel, kernel, svc), kernel
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "buildings.geojson")
	out := filepath.Join(dir, "out", "buildings.geojsonl")

	squareLL := mustWKT(t, "POLYGON((-122.60 45.50,-122.59 45.50,-122.59 45.51,-122.60 45.51,-122.60 45.50))")
	square2LL := mustWKT(t, "POLYGON((-122.50 45.50,-122.49 45.50,-122.49 45.51,-122.50 45.51,-122.50 45.50))")
	square3LL := mustWKT(t, "POLYGON((-122.40 45.50,-122.39 45.50,-122.39 45.51,-122.40 45.51,-122.40 45.50))")
	bowtieLL := mustWKT(t, "POLYGON((-122.30 45.50,-122.29 45.51,-122.29 45.50,-122.30 45.51,-122.30 45.50))")

	squareMerc := toMercator(squareLL)
	writeGeoJSON(t, in, "urn:ogc:def:crs:EPSG::3857",
		footprint(squareMerc, "A1", 1935),
		footprint(toMercator(square2LL), "A2", nil),
		footprint(toMercator(square3LL), "A3", 3000),
		footprint(toMercator(bowtieLL), "A4", 1990),
		footprint(nil, "A5", "1899"),
	)

	p, kernel := newGEOSPipeline(t)
	n, err := p.Run(defaultOptions(in, out))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	lines := readLines(t, out)
	require.Len(t, lines, 5)

	byID := make(map[string]string, len(lines))
	for _, line := range lines {
		byID[gjson.Get(line, "properties.bldg_id").String()] = line
	}

	t.Run("KnownYearAndReprojection", func(t *testing.T) {
		line := byID["A1"]
		assert.Equal(t, int64(1935), gjson.Get(line, "properties.year_built").Int())
		assert.Equal(t, "1920-1944", gjson.Get(line, "properties.age_bucket").String())

		f, err := geojson.UnmarshalFeature([]byte(line))
		require.NoError(t, err)
		got, ok := f.Geometry.(orb.Polygon)
		require.True(t, ok, "expected Polygon, got %T", f.Geometry)

		want := orbproject.Geometry(orb.Clone(squareMerc), orbproject.Mercator.ToWGS84).(orb.Polygon)
		require.Len(t, got, 1)
		require.Len(t, got[0], len(want[0]))
		for i := range want[0] {
			assert.InDelta(t, want[0][i].Lon(), got[0][i].Lon(), 1e-9)
			assert.InDelta(t, want[0][i].Lat(), got[0][i].Lat(), 1e-9)
		}
	})

	t.Run("NullYear", func(t *testing.T) {
		line := byID["A2"]
		assert.Equal(t, int64(-1), gjson.Get(line, "properties.year_built").Int())
		assert.Equal(t, "unknown", gjson.Get(line, "properties.age_bucket").String())
	})

	t.Run("FutureYear", func(t *testing.T) {
		line := byID["A3"]
		assert.Equal(t, int64(-1), gjson.Get(line, "properties.year_built").Int())
		assert.Equal(t, "unknown", gjson.Get(line, "properties.age_bucket").String())
	})

	t.Run("InvalidGeometryRepaired", func(t *testing.T) {
		line := byID["A4"]
		assert.Equal(t, int64(1990), gjson.Get(line, "properties.year_built").Int())

		f, err := geojson.UnmarshalFeature([]byte(line))
		require.NoError(t, err)
		require.NotNil(t, f.Geometry)

		valid, err := kernel.IsValid(f.Geometry)
		require.NoError(t, err)
		assert.True(t, valid, "repaired geometry is not valid: %s", wkt.MarshalString(f.Geometry))
	})

	t.Run("NullGeometryKept", func(t *testing.T) {
		line := byID["A5"]
		assert.Equal(t, gjson.Null, gjson.Get(line, "geometry").Type)
		assert.Equal(t, int64(1899), gjson.Get(line, "properties.year_built").Int())
		assert.Equal(t, "pre-1900", gjson.Get(line, "properties.age_bucket").String())
	})

	t.Run("ExactlyFourFields", func(t *testing.T) {
		for _, line := range lines {
			var top, props []string
			gjson.Parse(line).ForEach(func(k, _ gjson.Result) bool {
				top = append(top, k.String())
				return true
			})
			gjson.Get(line, "properties").ForEach(func(k, _ gjson.Result) bool {
				props = append(props, k.String())
				return true
			})
			assert.ElementsMatch(t, []string{"type", "properties", "geometry"}, top)
			assert.Equal(t, []string{"year_built", "age_bucket", "bldg_id"}, props)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		s := p.Stats()
		assert.Equal(t, 5, s.Records)
		assert.Equal(t, 2, s.UnknownYears)
		assert.Equal(t, 1, s.NullGeometries)
		assert.GreaterOrEqual(t, s.Repaired, 1)
		assert.Equal(t, 2, s.Buckets[year.BucketUnknown])
		assert.Equal(t, 1, s.Buckets[year.Bucket1920to1944])
		assert.Equal(t, 1, s.Buckets[year.Bucket1980to1999])
		assert.Equal(t, 1, s.Buckets[year.BucketPre1900])
	})
}

func TestRun_MissingField(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "buildings.geojson")
	out := filepath.Join(dir, "buildings.geojsonl")

	writeGeoJSON(t, in, "", fixture{
		geom:  mustWKT(t, "POLYGON((0 0,1 0,1 1,0 1,0 0))"),
		props: map[string]any{"BLDG_ID": "A1"},
	})

	p, _ := newGEOSPipeline(t)
	_, err := p.Run(defaultOptions(in, out))
	require.Error(t, err)
	assert.ErrorIs(t, err, source.ErrMissingField)
	assert.Contains(t, err.Error(), "YEAR_BUILT")

	_, statErr := os.Stat(out)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "output must not be created")
}

func TestRun_UndeclaredCRS(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "noprj.shp")
	out := filepath.Join(dir, "buildings.geojsonl")

	w, err := shp.Create(in, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("BLDG_ID", 16),
		shp.NumberField("YEAR_BUILT", 10),
	}))
	square := shp.Polygon(*shp.NewPolyLine([][]shp.Point{
		{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}},
	}))
	row := w.Write(&square)
	require.NoError(t, w.WriteAttribute(int(row), 0, "A1"))
	require.NoError(t, w.WriteAttribute(int(row), 1, 1950))
	w.Close()

	p, _ := newGEOSPipeline(t)
	_, err = p.Run(defaultOptions(in, out))
	require.Error(t, err)

	var projErr *reproject.ProjectionError
	require.ErrorAs(t, err, &projErr)
	assert.ErrorIs(t, err, reproject.ErrUndeclaredCRS)

	_, statErr := os.Stat(out)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "output must not be created")
}

func TestRun_NullGeometryOnly(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "nogeom.geojson")
	out := filepath.Join(dir, "nogeom.geojsonl")
	require.NoError(t, os.WriteFile(in,
		[]byte(`{"type":"FeatureCollection","features":[{"type":"Feature","geometry":null,"properties":{"BLDG_ID":1,"YEAR_BUILT":1901}}]}`), 0o644))

	p, _ := newGEOSPipeline(t)
	n, err := p.Run(defaultOptions(in, out))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	lines := readLines(t, out)
	require.Len(t, lines, 1)
	assert.Equal(t, "1900-1919", gjson.Get(lines[0], "properties.age_bucket").String())
	assert.Equal(t, int64(1), gjson.Get(lines[0], "properties.bldg_id").Int())
}
