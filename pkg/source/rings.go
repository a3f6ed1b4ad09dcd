package source

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// assemblePolygons groups shapefile rings into polygons. Shapefiles store
// shells clockwise and holes counter-clockwise; each hole is attached to the
// first shell containing it, and a hole with no shell becomes a shell itself.
func assemblePolygons(rings []orb.Ring) orb.Geometry {
	var (
		polys []orb.Polygon
		holes []orb.Ring
	)
	for _, r := range rings {
		if len(r) == 0 {
			continue
		}
		if r.Orientation() == orb.CW {
			polys = append(polys, orb.Polygon{r})
		} else {
			holes = append(holes, r)
		}
	}

	for _, h := range holes {
		placed := false
		for i := range polys {
			if planar.RingContains(polys[i][0], h[0]) {
				polys[i] = append(polys[i], h)
				placed = true
				break
			}
		}
		if !placed {
			polys = append(polys, orb.Polygon{h})
		}
	}

	switch len(polys) {
	case 0:
		return nil
	case 1:
		return polys[0]
	default:
		return orb.MultiPolygon(polys)
	}
}
