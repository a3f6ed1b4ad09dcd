package reproject

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	proj "github.com/twpayne/go-proj/v10"
)

// pointFunc transforms a single coordinate.
type pointFunc func(orb.Point) (orb.Point, error)

// Service transforms geometries between frames. Transformers are built once
// per frame pair and reused for the rest of the run. A Service is not safe
// for concurrent use.
type Service struct {
	logger *slog.Logger
	cache  map[string]pointFunc
	pjs    []*proj.PJ
}

// NewService creates a reprojection service.
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger: logger,
		cache:  make(map[string]pointFunc),
	}
}

// Reproject returns a copy of g transformed from one frame to another.
// nil geometries pass through. Any failure is a *ProjectionError.
func (s *Service) Reproject(g orb.Geometry, from, to CRS) (orb.Geometry, error) {
	fn, err := s.transformer(from, to)
	if err != nil {
		return nil, err
	}
	if g == nil || fn == nil {
		return g, nil
	}

	var firstErr error
	out := project.Geometry(orb.Clone(g), func(p orb.Point) orb.Point {
		if firstErr != nil {
			return p
		}
		q, err := fn(p)
		if err != nil {
			firstErr = err
			return p
		}
		return q
	})
	if firstErr != nil {
		return nil, &ProjectionError{From: from, To: to, Err: firstErr}
	}
	return out, nil
}

// Check verifies that a transformer from -> to can be built, without
// touching any geometry.
func (s *Service) Check(from, to CRS) error {
	_, err := s.transformer(from, to)
	return err
}

// Close releases the PROJ objects held by the service.
func (s *Service) Close() {
	for _, pj := range s.pjs {
		pj.Destroy()
	}
	s.pjs = nil
	s.cache = make(map[string]pointFunc)
}

// transformer returns nil (and no error) for the identity transform.
func (s *Service) transformer(from, to CRS) (pointFunc, error) {
	if from.IsZero() {
		return nil, &ProjectionError{From: from, To: to, Err: ErrUndeclaredCRS}
	}
	if to.IsZero() {
		return nil, &ProjectionError{From: from, To: to, Err: ErrUndeclaredCRS}
	}
	if from.Equal(to) {
		return nil, nil
	}

	key := from.String() + "|" + to.String()
	if fn, ok := s.cache[key]; ok {
		return fn, nil
	}

	fn, err := s.build(from, to)
	if err != nil {
		return nil, err
	}
	s.cache[key] = fn
	return fn, nil
}

func (s *Service) build(from, to CRS) (pointFunc, error) {
	// Spherical mercator <-> lon/lat needs no PROJ database.
	switch {
	case from.IsWebMercator() && to.IsLonLatWGS84():
		s.logger.Debug("Using built-in web mercator transform", "from", from.String())
		return lift(project.Mercator.ToWGS84), nil
	case from.IsLonLatWGS84() && to.IsWebMercator():
		return lift(project.WGS84.ToMercator), nil
	}

	pj, err := proj.NewCRSToCRS(from.String(), to.String(), nil)
	if err != nil {
		return nil, &ProjectionError{From: from, To: to, Err: fmt.Errorf("%w: %v", ErrUnrecognizedCRS, err)}
	}
	// Force lon/lat (x/y) axis order on both sides.
	norm, err := pj.NormalizeForVisualization()
	pj.Destroy()
	if err != nil {
		return nil, &ProjectionError{From: from, To: to, Err: fmt.Errorf("%w: %v", ErrUnrecognizedCRS, err)}
	}
	s.pjs = append(s.pjs, norm)
	s.logger.Debug("Created PROJ transformer", "from", from.String(), "to", to.String())

	return func(p orb.Point) (orb.Point, error) {
		c, err := norm.Forward(proj.NewCoord(p[0], p[1], 0, 0))
		if err != nil {
			return p, fmt.Errorf("%w: (%g, %g): %v", ErrTransform, p[0], p[1], err)
		}
		x, y := c.X(), c.Y()
		if !finite(x) || !finite(y) {
			return p, fmt.Errorf("%w: (%g, %g) has no image", ErrTransform, p[0], p[1])
		}
		return orb.Point{x, y}, nil
	}, nil
}

func lift(p orb.Projection) pointFunc {
	return func(pt orb.Point) (orb.Point, error) {
		return p(pt), nil
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
