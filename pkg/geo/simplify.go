package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Simplify reduces g with s. A tolerance of zero or below disables
// simplification and returns g untouched, as does a nil geometry.
func Simplify(s Simplifier, g orb.Geometry, tolerance float64) (orb.Geometry, error) {
	if g == nil || tolerance <= 0 {
		return g, nil
	}
	return s.Simplify(g, tolerance)
}

// NewSimplifier resolves an algorithm name. "topology" uses the kernel's own
// topology preserving simplifier.
func NewSimplifier(algorithm string, k Kernel) (Simplifier, error) {
	switch algorithm {
	case "", AlgorithmTopology:
		return k, nil
	case AlgorithmDouglasPeucker:
		return OrbSimplifier{build: func(tol float64) orb.Simplifier {
			return simplify.DouglasPeucker(tol)
		}}, nil
	case AlgorithmVisvalingam:
		// Visvalingam works on triangle area, so the linear tolerance is squared.
		return OrbSimplifier{build: func(tol float64) orb.Simplifier {
			return simplify.VisvalingamThreshold(tol * tol)
		}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
}

// OrbSimplifier runs one of orb's pure Go simplifiers. These do not preserve
// topology; the repair step cleans up after them.
type OrbSimplifier struct {
	build func(tolerance float64) orb.Simplifier
}

// Simplify implements Simplifier.
func (s OrbSimplifier) Simplify(g orb.Geometry, tolerance float64) (orb.Geometry, error) {
	if g == nil || tolerance <= 0 {
		return g, nil
	}
	// orb simplifies in place.
	return s.build(tolerance).Simplify(orb.Clone(g)), nil
}
