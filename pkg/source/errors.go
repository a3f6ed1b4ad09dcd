package source

import "errors"

var (
	// ErrRead indicates the input could not be opened or decoded.
	ErrRead = errors.New("cannot read input dataset")
	// ErrUnsupportedFormat indicates no driver handles the input's extension.
	ErrUnsupportedFormat = errors.New("unsupported input format")
	// ErrMissingField indicates a required attribute is absent from the schema.
	ErrMissingField = errors.New("required field missing from schema")
	// ErrNoLayer indicates a GeoPackage has no usable feature table.
	ErrNoLayer = errors.New("no feature layer")
)
