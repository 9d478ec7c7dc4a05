package overlay

import (
	"math"

	"github.com/kiesman99/quadfuse/pkg/raster"
)

// Enhance applies brightness, then contrast, then saturation to an RGB
// raster and returns a new one. Each factor blends the image with a neutral
// reference: black for brightness, the mean gray for contrast and the
// per-pixel gray for saturation. A factor of 1 is the identity.
func Enhance(src *raster.Raster, brightness, contrast, saturation float64) *raster.Raster {
	out := src.ToRGB()
	if out.Empty() {
		return out
	}

	if brightness != 1 {
		applyTable(out, blendTable(0, brightness))
	}
	if contrast != 1 {
		applyTable(out, blendTable(meanGray(out), contrast))
	}
	if saturation != 1 {
		saturate(out, saturation)
	}
	return out
}

// blend moves from ref towards v by factor f, extrapolating past v when f > 1.
func blend(ref, v uint8, f float64) uint8 {
	x := math.Round(float64(ref) + f*(float64(v)-float64(ref)))
	if x <= 0 {
		return 0
	}
	if x >= 255 {
		return 255
	}
	return uint8(x)
}

func blendTable(ref uint8, f float64) *[256]uint8 {
	var lut [256]uint8
	for v := range lut {
		lut[v] = blend(ref, uint8(v), f)
	}
	return &lut
}

func applyTable(r *raster.Raster, lut *[256]uint8) {
	raster.ParallelRows(r.Height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := r.Row(y)
			for i, v := range row {
				row[i] = lut[v]
			}
		}
	})
}

// meanGray is the rounded mean luminance of an RGB raster.
func meanGray(r *raster.Raster) uint8 {
	var sum uint64
	for i := 0; i < len(r.Pix); i += 3 {
		sum += uint64(raster.Luma(r.Pix[i], r.Pix[i+1], r.Pix[i+2]))
	}
	n := uint64(r.Width * r.Height)
	return uint8((sum + n/2) / n)
}

func saturate(r *raster.Raster, f float64) {
	raster.ParallelRows(r.Height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := r.Row(y)
			for i := 0; i < len(row); i += 3 {
				g := raster.Luma(row[i], row[i+1], row[i+2])
				row[i] = blend(g, row[i], f)
				row[i+1] = blend(g, row[i+1], f)
				row[i+2] = blend(g, row[i+2], f)
			}
		}
	})
}
