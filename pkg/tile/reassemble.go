package tile

import (
	"github.com/kiesman99/quadfuse/pkg/raster"
)

// Reassemble places the four tiles of g on a uniform 2x2 grid: top-left at
// (0,0), top-right at (w,0), bottom-left at (0,h) and bottom-right at (w,h).
// All tiles must share one size. The output keeps the tiles' channel layout
// when they agree and falls back to RGB when they do not.
func Reassemble(g *Group) (*raster.Raster, error) {
	if missing := g.Missing(); len(missing) > 0 {
		return nil, &MissingTileError{Prefix: g.Prefix, Missing: missing}
	}

	ref := g.Tiles[TopLeft]
	for _, c := range Corners[1:] {
		if t := g.Tiles[c]; !t.SameSize(ref) {
			return nil, &raster.DimensionError{
				What: g.Prefix + "_" + c.String(),
				Want: ref.Size(),
				Got:  t.Size(),
			}
		}
	}

	layout := ref.Layout
	for _, c := range Corners[1:] {
		if g.Tiles[c].Layout != layout {
			layout = raster.RGB
			break
		}
	}

	w, h := ref.Width, ref.Height
	out := raster.New(2*w, 2*h, layout)
	offsets := map[Corner][2]int{
		TopLeft:     {0, 0},
		TopRight:    {w, 0},
		BottomLeft:  {0, h},
		BottomRight: {w, h},
	}
	for _, c := range Corners {
		t := g.Tiles[c]
		if t.Layout != layout {
			t = t.ToRGB()
		}
		off := offsets[c]
		copyTile(t, out, off[0], off[1])
	}
	return out, nil
}

// copyTile copies src into dst with its top-left corner at (xoff, yoff).
// Both rasters share a layout and src fits inside dst.
func copyTile(src, dst *raster.Raster, xoff, yoff int) {
	n := src.Layout.Channels()
	for y := 0; y < src.Height; y++ {
		row := dst.Row(y + yoff)
		copy(row[xoff*n:(xoff+src.Width)*n], src.Row(y))
	}
}
