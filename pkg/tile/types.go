// Package tile groups four-quadrant microscope captures and reassembles
// them into a single frame.
package tile

import (
	"fmt"
	"strings"

	"github.com/kiesman99/quadfuse/pkg/raster"
)

// Corner designates the quadrant a tile belongs to. The values are the
// positional filename suffixes used by the capture software.
type Corner string

const (
	TopLeft     Corner = "LU"
	TopRight    Corner = "RU"
	BottomLeft  Corner = "LD"
	BottomRight Corner = "RD"
)

// Corners lists every designation in placement order.
var Corners = []Corner{TopLeft, TopRight, BottomLeft, BottomRight}

// String returns the filename suffix token.
func (c Corner) String() string { return string(c) }

// IsValid reports whether c is one of the four designations.
func (c Corner) IsValid() bool {
	switch c {
	case TopLeft, TopRight, BottomLeft, BottomRight:
		return true
	default:
		return false
	}
}

// ParseCorner converts a suffix token, in any case, to a Corner.
func ParseCorner(s string) (Corner, error) {
	c := Corner(strings.ToUpper(s))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: unknown corner %q (valid: LU, RU, LD, RD)", raster.ErrInvalidArgument, s)
	}
	return c, nil
}

// Group is the set of tiles sharing one prefix.
type Group struct {
	Prefix string
	Tiles  map[Corner]*raster.Raster
}

// NewGroup returns an empty group for prefix.
func NewGroup(prefix string) *Group {
	return &Group{Prefix: prefix, Tiles: make(map[Corner]*raster.Raster, 4)}
}

// Set stores the tile for corner c.
func (g *Group) Set(c Corner, r *raster.Raster) { g.Tiles[c] = r }

// Missing returns the corners that have no tile, in placement order.
func (g *Group) Missing() []Corner {
	var missing []Corner
	for _, c := range Corners {
		if g.Tiles[c] == nil {
			missing = append(missing, c)
		}
	}
	return missing
}

// MissingTileError reports the corners absent from a group.
type MissingTileError struct {
	Prefix  string
	Missing []Corner
}

func (e *MissingTileError) Error() string {
	names := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		names[i] = string(c)
	}
	return fmt.Sprintf("%s: group %q lacks %s", raster.ErrMissingTile, e.Prefix, strings.Join(names, ", "))
}

func (e *MissingTileError) Unwrap() error { return raster.ErrMissingTile }
