package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/twpayne/go-geos"
)

// GEOSKernel implements Kernel on top of libgeos. Geometries cross the
// boundary as WKB.
type GEOSKernel struct{}

// NewGEOSKernel returns a GEOS backed kernel.
func NewGEOSKernel() *GEOSKernel {
	return &GEOSKernel{}
}

// IsValid reports OGC validity. Rings too short to form a ring are invalid
// without consulting GEOS, which refuses to parse them.
func (k *GEOSKernel) IsValid(g orb.Geometry) (valid bool, err error) {
	if g == nil {
		return true, nil
	}
	if !wellFormed(g) {
		return false, nil
	}
	defer recoverKernel(&err)

	gg, err := toGEOS(g)
	if err != nil {
		return false, err
	}
	defer gg.Destroy()
	return gg.IsValid(), nil
}

// Reason returns the GEOS explanation for an invalid geometry, for logging.
func (k *GEOSKernel) Reason(g orb.Geometry) (reason string) {
	if g == nil {
		return ""
	}
	if !wellFormed(g) {
		return "ring with fewer than 4 positions"
	}
	defer func() {
		if r := recover(); r != nil {
			reason = fmt.Sprint(r)
		}
	}()
	gg, err := toGEOS(g)
	if err != nil {
		return err.Error()
	}
	defer gg.Destroy()
	return gg.IsValidReason()
}

// MakeValid rebuilds g from its linework, splitting self-intersecting rings
// and discarding collapsed components.
func (k *GEOSKernel) MakeValid(g orb.Geometry) (out orb.Geometry, err error) {
	if g == nil {
		return nil, nil
	}
	g = dropShortRings(g)
	if g == nil {
		return nil, nil
	}
	defer recoverKernel(&err)

	gg, err := toGEOS(g)
	if err != nil {
		return nil, err
	}
	defer gg.Destroy()

	fixed := gg.MakeValidWithParams(geos.MakeValidLinework, geos.MakeValidDiscardCollapsed)
	defer fixed.Destroy()
	return fromGEOS(fixed)
}

// Simplify applies topology preserving Douglas-Peucker simplification.
func (k *GEOSKernel) Simplify(g orb.Geometry, tolerance float64) (out orb.Geometry, err error) {
	if g == nil || tolerance <= 0 {
		return g, nil
	}
	if !wellFormed(g) {
		return g, nil
	}
	defer recoverKernel(&err)

	gg, err := toGEOS(g)
	if err != nil {
		return nil, err
	}
	defer gg.Destroy()

	simple := gg.TopologyPreserveSimplify(tolerance)
	defer simple.Destroy()
	return fromGEOS(simple)
}

func toGEOS(g orb.Geometry) (*geos.Geom, error) {
	data, err := wkb.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("%w: encode wkb: %v", ErrKernel, err)
	}
	gg, err := geos.NewGeomFromWKB(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse wkb: %v", ErrKernel, err)
	}
	return gg, nil
}

func fromGEOS(gg *geos.Geom) (orb.Geometry, error) {
	if gg.IsEmpty() {
		return nil, nil
	}
	g, err := wkb.Unmarshal(gg.ToWKB())
	if err != nil {
		return nil, fmt.Errorf("%w: decode wkb: %v", ErrKernel, err)
	}
	return g, nil
}

// recoverKernel turns a GEOS exception raised as a panic into ErrKernel.
func recoverKernel(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrKernel, r)
	}
}
