package source

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	_ "modernc.org/sqlite" // Register driver

	"footprints/pkg/model"
	"footprints/pkg/reproject"
)

// layerInfo describes one row of gpkg_geometry_columns.
type layerInfo struct {
	table  string
	column string
	srsID  int64
}

func readGeoPackage(path, layer string) (*Dataset, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open geopackage: %v", ErrRead, err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%w: failed to open geopackage: %v", ErrRead, err)
	}

	info, err := findLayer(db, layer)
	if err != nil {
		return nil, err
	}

	crs, err := layerCRS(db, info.srsID)
	if err != nil {
		return nil, err
	}

	fields, err := layerFields(db, info)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		Path:   path,
		Driver: DriverGeoPackage,
		CRS:    crs,
		Fields: fields,
	}
	if err := readLayerRows(db, info, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func findLayer(db *sql.DB, layer string) (layerInfo, error) {
	var (
		info layerInfo
		row  *sql.Row
	)
	if layer != "" {
		row = db.QueryRow(`SELECT table_name, column_name, srs_id FROM gpkg_geometry_columns WHERE table_name = ?`, layer)
	} else {
		row = db.QueryRow(`SELECT table_name, column_name, srs_id FROM gpkg_geometry_columns ORDER BY table_name LIMIT 1`)
	}

	err := row.Scan(&info.table, &info.column, &info.srsID)
	if errors.Is(err, sql.ErrNoRows) {
		if layer != "" {
			return info, fmt.Errorf("%w: layer %q not found", ErrNoLayer, layer)
		}
		return info, ErrNoLayer
	}
	if err != nil {
		return info, fmt.Errorf("%w: failed to read gpkg_geometry_columns: %v", ErrRead, err)
	}
	return info, nil
}

// layerCRS resolves an srs_id. The GeoPackage reserved ids -1 and 0 mean
// "undefined" and leave the CRS undeclared.
func layerCRS(db *sql.DB, srsID int64) (reproject.CRS, error) {
	if srsID == -1 || srsID == 0 {
		return reproject.CRS{}, nil
	}

	var (
		org        string
		orgID      int64
		definition string
	)
	err := db.QueryRow(`SELECT organization, organization_coordsys_id, definition FROM gpkg_spatial_ref_sys WHERE srs_id = ?`, srsID).
		Scan(&org, &orgID, &definition)
	if errors.Is(err, sql.ErrNoRows) {
		return reproject.CRS{}, nil
	}
	if err != nil {
		return reproject.CRS{}, fmt.Errorf("%w: failed to read gpkg_spatial_ref_sys: %v", ErrRead, err)
	}

	if strings.EqualFold(org, "EPSG") && orgID > 0 {
		return reproject.EPSG(int(orgID)), nil
	}
	if strings.EqualFold(strings.TrimSpace(definition), "undefined") {
		return reproject.CRS{}, nil
	}
	return reproject.FromDefinition(definition), nil
}

// layerFields lists attribute columns, skipping the geometry column and the
// integer primary key (the feature id).
func layerFields(db *sql.DB, info layerInfo) ([]string, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdent(info.table)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read schema of %s: %v", ErrRead, info.table, err)
	}
	defer rows.Close()

	var fields []string
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("%w: failed to read schema of %s: %v", ErrRead, info.table, err)
		}
		if strings.EqualFold(name, info.column) {
			continue
		}
		if pk > 0 && strings.EqualFold(ctype, "INTEGER") {
			continue
		}
		fields = append(fields, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read schema of %s: %v", ErrRead, info.table, err)
	}
	return fields, nil
}

func readLayerRows(db *sql.DB, info layerInfo, ds *Dataset) error {
	cols := make([]string, 0, len(ds.Fields)+1)
	cols = append(cols, quoteIdent(info.column))
	for _, f := range ds.Fields {
		cols = append(cols, quoteIdent(f))
	}

	query := fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(cols, ", "), quoteIdent(info.table))
	rows, err := db.Query(query)
	if err != nil {
		return fmt.Errorf("%w: failed to query %s: %v", ErrRead, info.table, err)
	}
	defer rows.Close()

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("%w: failed to scan %s: %v", ErrRead, info.table, err)
		}

		var geometry orb.Geometry
		if blob, ok := values[0].([]byte); ok && blob != nil {
			geometry, err = decodeGeoPackageGeometry(blob)
			if err != nil {
				return fmt.Errorf("%w: feature %d: %v", ErrRead, len(ds.Features), err)
			}
		}
		switch geometry.(type) {
		case nil, orb.Polygon, orb.MultiPolygon:
		default:
			return fmt.Errorf("%w: feature %d has non-polygonal geometry %s", ErrRead, len(ds.Features), geometry.GeoJSONType())
		}

		props := make(map[string]any, len(ds.Fields))
		for i, f := range ds.Fields {
			v := values[i+1]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			props[f] = v
		}
		ds.Features = append(ds.Features, model.Feature{Geometry: geometry, Properties: props})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: failed to iterate %s: %v", ErrRead, info.table, err)
	}
	return nil
}

// decodeGeoPackageGeometry strips the GeoPackage binary header and decodes
// the WKB body. Empty geometries decode to nil.
func decodeGeoPackageGeometry(b []byte) (orb.Geometry, error) {
	if len(b) < 8 || b[0] != 'G' || b[1] != 'P' {
		return nil, errors.New("not a geopackage geometry blob")
	}

	flags := b[3]
	if flags&0x20 != 0 {
		return nil, errors.New("extended geopackage geometry not supported")
	}

	var envelope int
	switch (flags >> 1) & 0x07 {
	case 0:
		envelope = 0
	case 1:
		envelope = 32
	case 2, 3:
		envelope = 48
	case 4:
		envelope = 64
	default:
		return nil, fmt.Errorf("invalid envelope indicator in flags %#x", flags)
	}

	if flags&0x10 != 0 {
		return nil, nil
	}

	offset := 8 + envelope
	if len(b) < offset {
		return nil, errors.New("truncated geopackage geometry header")
	}
	return wkb.Unmarshal(b[offset:])
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
