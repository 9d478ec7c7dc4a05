// Package raster holds the in-memory frame representation shared by every
// stage of the pipeline, plus the decode/encode plumbing around it.
//
// A Raster is a flat, row-major []uint8 buffer with an explicit channel
// layout. Stages never mutate their inputs; each one allocates the Raster it
// returns.
package raster

import (
	"fmt"
	"image"
)

// Layout describes how many 8-bit channels each pixel carries.
type Layout int

const (
	Gray Layout = 1 // single intensity
	RGB  Layout = 3 // red, green, blue
	RGBA Layout = 4 // red, green, blue, non-premultiplied alpha
)

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case Gray:
		return "gray"
	case RGB:
		return "rgb"
	case RGBA:
		return "rgba"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

// Channels returns the number of bytes per pixel.
func (l Layout) Channels() int { return int(l) }

// Raster is a decoded frame.
type Raster struct {
	Pix    []uint8
	Width  int
	Height int
	Layout Layout
}

// New allocates a zeroed raster. Zero-area rasters are allowed.
func New(width, height int, layout Layout) *Raster {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("raster: negative size %dx%d", width, height))
	}
	return &Raster{
		Pix:    make([]uint8, width*height*layout.Channels()),
		Width:  width,
		Height: height,
		Layout: layout,
	}
}

// Size returns the raster dimensions as a point.
func (r *Raster) Size() image.Point { return image.Pt(r.Width, r.Height) }

// Empty reports whether the raster has no pixels.
func (r *Raster) Empty() bool { return r.Width == 0 || r.Height == 0 }

// Stride is the number of bytes between vertically adjacent pixels.
func (r *Raster) Stride() int { return r.Width * r.Layout.Channels() }

// Offset returns the index of the first byte of pixel (x, y).
func (r *Raster) Offset(x, y int) int {
	return (y*r.Width + x) * r.Layout.Channels()
}

// Row returns the bytes of row y. The slice aliases r.Pix.
func (r *Raster) Row(y int) []uint8 {
	s := r.Stride()
	return r.Pix[y*s : (y+1)*s : (y+1)*s]
}

// At returns the channel bytes of pixel (x, y). The slice aliases r.Pix.
func (r *Raster) At(x, y int) []uint8 {
	i := r.Offset(x, y)
	return r.Pix[i : i+r.Layout.Channels() : i+r.Layout.Channels()]
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	out := &Raster{
		Pix:    make([]uint8, len(r.Pix)),
		Width:  r.Width,
		Height: r.Height,
		Layout: r.Layout,
	}
	copy(out.Pix, r.Pix)
	return out
}

// SameSize reports whether both rasters have identical width and height.
func (r *Raster) SameSize(o *Raster) bool {
	return r.Width == o.Width && r.Height == o.Height
}

// Luma computes the 8-bit luminance of an RGB triple using the ITU-R 601-2
// weights in 16.16 fixed point (0.299, 0.587, 0.114).
func Luma(red, green, blue uint8) uint8 {
	return uint8((uint32(red)*19595 + uint32(green)*38470 + uint32(blue)*7471 + 0x8000) >> 16)
}

// Luminance collapses the raster to a single intensity channel. Gray rasters
// are copied through unchanged; alpha is ignored.
func (r *Raster) Luminance() *Raster {
	if r.Layout == Gray {
		return r.Clone()
	}
	out := New(r.Width, r.Height, Gray)
	n := r.Layout.Channels()
	ParallelRows(r.Height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			src := r.Row(y)
			dst := out.Row(y)
			for x := range dst {
				i := x * n
				dst[x] = Luma(src[i], src[i+1], src[i+2])
			}
		}
	})
	return out
}

// ToRGB converts the raster to the RGB layout, replicating gray and dropping
// alpha. An RGB raster is copied.
func (r *Raster) ToRGB() *Raster {
	if r.Layout == RGB {
		return r.Clone()
	}
	out := New(r.Width, r.Height, RGB)
	n := r.Layout.Channels()
	for i, j := 0, 0; i < len(r.Pix); i, j = i+n, j+3 {
		if r.Layout == Gray {
			out.Pix[j], out.Pix[j+1], out.Pix[j+2] = r.Pix[i], r.Pix[i], r.Pix[i]
			continue
		}
		out.Pix[j], out.Pix[j+1], out.Pix[j+2] = r.Pix[i], r.Pix[i+1], r.Pix[i+2]
	}
	return out
}

// SplitAlpha separates an RGBA raster into its RGB planes and its alpha
// plane. Rasters without alpha yield a fully opaque plane.
func (r *Raster) SplitAlpha() (rgb *Raster, alpha []uint8) {
	alpha = make([]uint8, r.Width*r.Height)
	if r.Layout != RGBA {
		for i := range alpha {
			alpha[i] = 255
		}
		return r.ToRGB(), alpha
	}
	rgb = New(r.Width, r.Height, RGB)
	for p, i, j := 0, 0, 0; p < len(alpha); p, i, j = p+1, i+4, j+3 {
		rgb.Pix[j], rgb.Pix[j+1], rgb.Pix[j+2] = r.Pix[i], r.Pix[i+1], r.Pix[i+2]
		alpha[p] = r.Pix[i+3]
	}
	return rgb, alpha
}

// MergeAlpha recombines RGB planes with an alpha plane into a new RGBA raster.
func MergeAlpha(rgb *Raster, alpha []uint8) (*Raster, error) {
	if rgb.Layout != RGB {
		return nil, fmt.Errorf("%w: merge alpha needs an rgb raster, got %s", ErrInvalidArgument, rgb.Layout)
	}
	if len(alpha) != rgb.Width*rgb.Height {
		return nil, &DimensionError{
			What: "alpha plane",
			Want: rgb.Size(),
			Got:  image.Pt(len(alpha), 1),
		}
	}
	out := New(rgb.Width, rgb.Height, RGBA)
	for p, i, j := 0, 0, 0; p < len(alpha); p, i, j = p+1, i+3, j+4 {
		out.Pix[j], out.Pix[j+1], out.Pix[j+2] = rgb.Pix[i], rgb.Pix[i+1], rgb.Pix[i+2]
		out.Pix[j+3] = alpha[p]
	}
	return out, nil
}
