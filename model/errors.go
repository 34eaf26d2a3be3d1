package model

import "github.com/pkg/errors"

var (
	// ErrOutOfBounds is returned when a row/col pair addresses a cell outside the grid
	ErrOutOfBounds = errors.New("cell out of bounds")
	// ErrInvalidDimensions is returned when a grid is constructed with rows or cols < 1
	ErrInvalidDimensions = errors.New("invalid grid dimensions")
	// ErrUnknownPattern is returned by PlacePattern for a name not in Patterns
	ErrUnknownPattern = errors.New("unknown pattern")
)
