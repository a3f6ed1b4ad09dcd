// Package reproject resolves coordinate reference systems declared by input
// datasets and transforms geometries into the fixed WGS84 lon/lat frame.
package reproject

import (
	"fmt"
	"strconv"
	"strings"
)

// CRS identifies a coordinate reference system, either by authority code or
// by a raw WKT / PROJ definition when no code is known.
type CRS struct {
	Authority  string // e.g. "EPSG", "OGC"
	Code       string // e.g. "2913", "CRS84"
	Definition string // WKT or PROJ string, used when Authority is empty
}

// WGS84 is the target frame of every output record (EPSG:4326, lon/lat order).
var WGS84 = CRS{Authority: "EPSG", Code: "4326"}

// EPSG returns the CRS for an EPSG code.
func EPSG(code int) CRS {
	return CRS{Authority: "EPSG", Code: strconv.Itoa(code)}
}

// FromDefinition wraps a WKT or PROJ definition. Blank input yields the zero CRS.
func FromDefinition(def string) CRS {
	def = strings.TrimSpace(def)
	if def == "" {
		return CRS{}
	}
	return CRS{Definition: def}
}

// Parse resolves a CRS name as found in GeoJSON "crs" members and CLI input:
// "EPSG:2913", "urn:ogc:def:crs:EPSG::2913", "http://www.opengis.net/def/crs/EPSG/0/2913",
// "urn:ogc:def:crs:OGC:1.3:CRS84". Anything else is kept as a raw definition.
func Parse(name string) CRS {
	name = strings.TrimSpace(name)
	if name == "" {
		return CRS{}
	}

	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "urn:ogc:def:crs:"):
		// urn:ogc:def:crs:{authority}:{version}:{code}
		parts := strings.Split(name[len("urn:ogc:def:crs:"):], ":")
		if len(parts) >= 2 {
			return authorityCRS(parts[0], parts[len(parts)-1])
		}
	case strings.HasPrefix(lower, "http://www.opengis.net/def/crs/"),
		strings.HasPrefix(lower, "https://www.opengis.net/def/crs/"):
		// .../def/crs/{authority}/{version}/{code}
		idx := strings.Index(lower, "/def/crs/")
		parts := strings.Split(strings.Trim(name[idx+len("/def/crs/"):], "/"), "/")
		if len(parts) >= 2 {
			return authorityCRS(parts[0], parts[len(parts)-1])
		}
	}

	if auth, code, ok := strings.Cut(name, ":"); ok && !strings.ContainsAny(name, "[ +") {
		return authorityCRS(auth, code)
	}
	return FromDefinition(name)
}

func authorityCRS(auth, code string) CRS {
	return CRS{Authority: strings.ToUpper(strings.TrimSpace(auth)), Code: strings.TrimSpace(code)}
}

// IsZero reports whether no CRS was declared.
func (c CRS) IsZero() bool {
	return c.Authority == "" && c.Code == "" && c.Definition == ""
}

// String returns a form accepted by PROJ: "AUTH:CODE" or the raw definition.
func (c CRS) String() string {
	if c.Authority != "" {
		return fmt.Sprintf("%s:%s", c.Authority, c.Code)
	}
	return c.Definition
}

// IsLonLatWGS84 reports whether c is WGS84 geographic in any common spelling.
func (c CRS) IsLonLatWGS84() bool {
	switch c.Authority {
	case "EPSG":
		return c.Code == "4326"
	case "OGC":
		return strings.EqualFold(c.Code, "CRS84")
	}
	return false
}

// webMercatorCodes lists spellings of the spherical Web Mercator projection.
var webMercatorCodes = map[string]bool{
	"EPSG:3857":   true,
	"EPSG:900913": true,
	"EPSG:3785":   true,
	"ESRI:102100": true,
	"ESRI:102113": true,
	"EPSG:102100": true,
	"EPSG:102113": true,
}

// IsWebMercator reports whether c is spherical Web Mercator.
func (c CRS) IsWebMercator() bool {
	if c.Authority == "" {
		return false
	}
	return webMercatorCodes[c.String()]
}

// Equal reports whether c and o name the same frame.
func (c CRS) Equal(o CRS) bool {
	if c.IsLonLatWGS84() && o.IsLonLatWGS84() {
		return true
	}
	return c == o
}
