package raster

import (
	"errors"
	"fmt"
	"image"
)

// Pipeline error classes. Callers match them with errors.Is.
var (
	// ErrDimensionMismatch means inputs that must share a size do not.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrMissingTile means a tile group lacks one of its four corners.
	ErrMissingTile = errors.New("missing tile")

	// ErrInvalidArgument signals a caller programming error, such as an
	// unsupported channel assignment.
	ErrInvalidArgument = errors.New("invalid argument")
)

// DimensionError describes which input disagreed and how.
type DimensionError struct {
	What string
	Want image.Point
	Got  image.Point
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: %s is %dx%d, expected %dx%d",
		ErrDimensionMismatch, e.What, e.Got.X, e.Got.Y, e.Want.X, e.Want.Y)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// IOError wraps a failure reading or writing a raster file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
