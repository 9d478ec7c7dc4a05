package overlay

import (
	"math"
	"path/filepath"
	"strings"

	"github.com/kiesman99/quadfuse/internal/pseudo"
	"github.com/kiesman99/quadfuse/pkg/raster"
)

// Source channels read from each input.
const (
	PrimaryChannel   = pseudo.Red
	SecondaryChannel = pseudo.Green
)

// Result is a composite together with the parameters that produced it.
type Result struct {
	Raster *raster.Raster
	Params Params
}

// Composite blends primary and secondary into an RGBA raster:
//
//  1. read the red channel of primary and the green channel of secondary
//  2. invert both and scale by alpha*2.5, clamped to [0,255]
//  3. pixels below the threshold in both channels become transparent,
//     all others are opaque (r, g, 0)
//  4. brightness, contrast and saturation are applied to the RGB planes
//     only; the alpha plane from step 3 is kept as-is
//
// Inputs must share a size and are not modified.
func Composite(primary, secondary *raster.Raster, p Params) (*raster.Raster, error) {
	rgb, alpha, err := Mask(primary, secondary, p)
	if err != nil {
		return nil, err
	}
	enhanced := Enhance(rgb, p.Brightness, p.Contrast, p.Saturation)
	return raster.MergeAlpha(enhanced, alpha)
}

// Render runs Composite and keeps the parameters alongside the output.
func Render(primary, secondary *raster.Raster, p Params) (*Result, error) {
	out, err := Composite(primary, secondary, p)
	if err != nil {
		return nil, err
	}
	return &Result{Raster: out, Params: p}, nil
}

// Mask performs the per-pixel inversion, scaling and thresholding and
// returns the unenhanced RGB planes with the alpha plane.
func Mask(primary, secondary *raster.Raster, p Params) (*raster.Raster, []uint8, error) {
	if !primary.SameSize(secondary) {
		return nil, nil, &raster.DimensionError{
			What: "secondary",
			Want: primary.Size(),
			Got:  secondary.Size(),
		}
	}

	scale := scaleTable(p.Alpha)
	threshold := p.Threshold
	rgb := raster.New(primary.Width, primary.Height, raster.RGB)
	alpha := make([]uint8, primary.Width*primary.Height)

	pn, pi := primary.Layout.Channels(), channelIndex(primary, PrimaryChannel)
	sn, si := secondary.Layout.Channels(), channelIndex(secondary, SecondaryChannel)
	w := primary.Width

	raster.ParallelRows(primary.Height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			prow, srow, dst := primary.Row(y), secondary.Row(y), rgb.Row(y)
			arow := alpha[y*w : (y+1)*w]
			for x := 0; x < w; x++ {
				r := scale[prow[x*pn+pi]]
				g := scale[srow[x*sn+si]]
				if int(r) < threshold && int(g) < threshold {
					continue
				}
				dst[x*3], dst[x*3+1] = r, g
				arow[x] = 255
			}
		}
	})
	return rgb, alpha, nil
}

// scaleTable maps a source value v to round((255-v)*alpha*2.5), clamped.
func scaleTable(alpha float64) *[256]uint8 {
	var lut [256]uint8
	for v := range lut {
		x := math.Round(float64(255-v) * alpha * blendBoost)
		switch {
		case math.IsNaN(x) || x <= 0:
			lut[v] = 0
		case x >= 255:
			lut[v] = 255
		default:
			lut[v] = uint8(x)
		}
	}
	return &lut
}

// channelIndex picks the byte to read; single-channel inputs use their only one.
func channelIndex(r *raster.Raster, c pseudo.Channel) int {
	if r.Layout == raster.Gray {
		return 0
	}
	return c.Index()
}

// OutputName returns "<name1>_<name2>_overlay<ext>" for two source paths,
// using the extension ext.
func OutputName(path1, path2, ext string) string {
	return stem(path1) + "_" + stem(path2) + "_overlay" + ext
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
