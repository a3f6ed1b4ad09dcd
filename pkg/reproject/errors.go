package reproject

import (
	"errors"
	"fmt"
)

var (
	// ErrUndeclaredCRS indicates the dataset carries no source frame.
	ErrUndeclaredCRS = errors.New("source crs not declared")
	// ErrUnrecognizedCRS indicates the projection engine cannot resolve the frame.
	ErrUnrecognizedCRS = errors.New("source crs not recognized")
	// ErrTransform indicates a coordinate could not be transformed.
	ErrTransform = errors.New("coordinate transform failed")
)

// ProjectionError is fatal for a whole run: every output record must share
// one frame, so nothing is written once it occurs.
type ProjectionError struct {
	From CRS
	To   CRS
	Err  error
}

func (e *ProjectionError) Error() string {
	from := e.From.String()
	if from == "" {
		from = "<undeclared>"
	}
	return fmt.Sprintf("projection %s -> %s: %v", from, e.To.String(), e.Err)
}

func (e *ProjectionError) Unwrap() error {
	return e.Err
}
