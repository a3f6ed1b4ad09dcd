package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// minRingPositions is the smallest closed ring: a triangle plus closing point.
const minRingPositions = 4

// wellFormed reports whether every ring in g is closed and long enough to be parsed.
func wellFormed(g orb.Geometry) bool {
	switch v := g.(type) {
	case orb.Polygon:
		for _, r := range v {
			if len(r) < minRingPositions || !r.Closed() {
				return false
			}
		}
	case orb.MultiPolygon:
		for _, p := range v {
			if !wellFormed(p) {
				return false
			}
		}
	case orb.Collection:
		for _, c := range v {
			if !wellFormed(c) {
				return false
			}
		}
	}
	return true
}

// dropShortRings closes open rings and removes rings that cannot enclose
// area. A polygon whose shell collapses is removed entirely.
func dropShortRings(g orb.Geometry) orb.Geometry {
	switch v := g.(type) {
	case orb.Polygon:
		p := cleanPolygon(v)
		if p == nil {
			return nil
		}
		return p
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, 0, len(v))
		for _, p := range v {
			if c := cleanPolygon(p); c != nil {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return g
}

func cleanPolygon(p orb.Polygon) orb.Polygon {
	var out orb.Polygon
	for i, r := range p {
		if len(r) > 0 && !r.Closed() {
			r = append(r.Clone(), r[0])
		}
		if len(r) < minRingPositions {
			if i == 0 {
				return nil
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// Polygonal keeps only the areal parts of g: polygons with non-zero area,
// collected from polygons, multipolygons and nested collections. It returns
// nil when nothing is left, a Polygon for one part, else a MultiPolygon.
func Polygonal(g orb.Geometry) orb.Geometry {
	var polys []orb.Polygon
	collectPolygons(g, &polys)

	switch len(polys) {
	case 0:
		return nil
	case 1:
		return polys[0]
	default:
		return orb.MultiPolygon(polys)
	}
}

func collectPolygons(g orb.Geometry, out *[]orb.Polygon) {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) > 0 && math.Abs(planar.Area(v[0])) > 0 {
			*out = append(*out, v)
		}
	case orb.MultiPolygon:
		for _, p := range v {
			collectPolygons(p, out)
		}
	case orb.Collection:
		for _, c := range v {
			collectPolygons(c, out)
		}
	}
}

// VertexCount returns the number of positions in g.
func VertexCount(g orb.Geometry) int {
	switch v := g.(type) {
	case nil:
		return 0
	case orb.Point:
		return 1
	case orb.MultiPoint:
		return len(v)
	case orb.LineString:
		return len(v)
	case orb.Ring:
		return len(v)
	case orb.MultiLineString:
		n := 0
		for _, ls := range v {
			n += len(ls)
		}
		return n
	case orb.Polygon:
		n := 0
		for _, r := range v {
			n += len(r)
		}
		return n
	case orb.MultiPolygon:
		n := 0
		for _, p := range v {
			n += VertexCount(p)
		}
		return n
	case orb.Collection:
		n := 0
		for _, c := range v {
			n += VertexCount(c)
		}
		return n
	}
	return 0
}
