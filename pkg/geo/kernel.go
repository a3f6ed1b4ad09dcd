// Package geo repairs and simplifies footprint geometries. The geometry
// engine sits behind the Validator and Simplifier interfaces so callers can
// be tested without it.
package geo

import (
	"errors"

	"github.com/paulmach/orb"
)

var (
	// ErrKernel indicates the geometry engine failed on a geometry.
	ErrKernel = errors.New("geometry kernel failure")
	// ErrUnknownAlgorithm indicates an unsupported simplification algorithm name.
	ErrUnknownAlgorithm = errors.New("unknown simplification algorithm")
)

// Validator tests and restores topological validity.
type Validator interface {
	IsValid(g orb.Geometry) (bool, error)
	MakeValid(g orb.Geometry) (orb.Geometry, error)
}

// Simplifier reduces vertex count within a tolerance.
type Simplifier interface {
	Simplify(g orb.Geometry, tolerance float64) (orb.Geometry, error)
}

// Kernel is a full geometry engine.
type Kernel interface {
	Validator
	Simplifier
}

// Simplification algorithm names accepted by NewSimplifier.
const (
	AlgorithmTopology       = "topology"
	AlgorithmDouglasPeucker = "douglas-peucker"
	AlgorithmVisvalingam    = "visvalingam"
)
