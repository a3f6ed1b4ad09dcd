package geo

import (
	"github.com/paulmach/orb"
)

// Repair returns a topologically valid version of g.
//   - nil passes through.
//   - a valid geometry is returned as is.
//   - an invalid one is rebuilt by the validator and reduced to its areal
//     parts; it may become nil when it had no area at all.
//
// The boolean reports whether a rewrite happened.
func Repair(v Validator, g orb.Geometry) (orb.Geometry, bool, error) {
	if g == nil {
		return nil, false, nil
	}

	ok, err := v.IsValid(g)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return g, false, nil
	}

	fixed, err := v.MakeValid(g)
	if err != nil {
		return nil, false, err
	}
	return Polygonal(fixed), true, nil
}
