package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"
)

// DefaultBackground is the flatten color for alpha-less containers.
var DefaultBackground = color.NRGBA{A: 255}

// FromImage packs a decoded image into a Raster. Grayscale images keep a
// single channel, opaque images become RGB and everything else becomes
// non-premultiplied RGBA.
func FromImage(img image.Image) *Raster {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if g, ok := img.(*image.Gray); ok {
		out := New(w, h, Gray)
		for y := 0; y < h; y++ {
			start := g.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Row(y), g.Pix[start:start+w])
		}
		return out
	}

	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = image.NewNRGBA(image.Rect(0, 0, w, h))
		xdraw.Draw(nrgba, nrgba.Bounds(), img, b.Min, xdraw.Src)
		b = nrgba.Bounds()
	}

	layout := RGBA
	if nrgba.Opaque() {
		layout = RGB
	}
	out := New(w, h, layout)
	n := layout.Channels()
	for y := 0; y < h; y++ {
		start := nrgba.PixOffset(b.Min.X, b.Min.Y+y)
		src := nrgba.Pix[start : start+w*4]
		dst := out.Row(y)
		for x := 0; x < w; x++ {
			copy(dst[x*n:x*n+n], src[x*4:x*4+n])
		}
	}
	return out
}

// Image exposes the raster as a standard library image. The returned image
// does not alias r.
func (r *Raster) Image() image.Image {
	rect := image.Rect(0, 0, r.Width, r.Height)
	switch r.Layout {
	case Gray:
		g := image.NewGray(rect)
		copy(g.Pix, r.Pix)
		return g
	case RGBA:
		img := image.NewNRGBA(rect)
		copy(img.Pix, r.Pix)
		return img
	default:
		img := image.NewNRGBA(rect)
		for i, j := 0, 0; i < len(r.Pix); i, j = i+3, j+4 {
			img.Pix[j], img.Pix[j+1], img.Pix[j+2] = r.Pix[i], r.Pix[i+1], r.Pix[i+2]
			img.Pix[j+3] = 255
		}
		return img
	}
}

// Flatten composites the raster over an opaque background and returns an
// RGB raster. Rasters without alpha are converted as-is.
func (r *Raster) Flatten(bg color.NRGBA) *Raster {
	if r.Layout != RGBA {
		return r.ToRGB()
	}
	out := New(r.Width, r.Height, RGB)
	for i, j := 0, 0; i < len(r.Pix); i, j = i+4, j+3 {
		a := uint32(r.Pix[i+3])
		out.Pix[j] = blendOver(r.Pix[i], bg.R, a)
		out.Pix[j+1] = blendOver(r.Pix[i+1], bg.G, a)
		out.Pix[j+2] = blendOver(r.Pix[i+2], bg.B, a)
	}
	return out
}

func blendOver(fg, bg uint8, a uint32) uint8 {
	return uint8((uint32(fg)*a + uint32(bg)*(255-a) + 127) / 255)
}

// ParseBackground parses a hex color such as "#000000" for Flatten.
func ParseBackground(hex string) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: background %q: %v", ErrInvalidArgument, hex, err)
	}
	red, green, blue := c.RGB255()
	return color.NRGBA{R: red, G: green, B: blue, A: 255}, nil
}

// SupportsAlpha reports whether the container keeps a transparency channel.
// BMP and JPEG outputs are flattened before encoding.
func SupportsAlpha(f imaging.Format) bool {
	switch f {
	case imaging.PNG, imaging.TIFF, imaging.GIF:
		return true
	default:
		return false
	}
}

// Decode reads an image in any format imaging understands.
func Decode(rd io.Reader) (*Raster, error) {
	img, err := imaging.Decode(rd)
	if err != nil {
		return nil, err
	}
	return FromImage(img), nil
}

// Load reads a raster file from disk.
func Load(path string) (*Raster, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	return FromImage(img), nil
}

// Save writes the raster, choosing the container from the file extension.
// Transparent rasters are flattened onto bg for alpha-less containers.
func Save(r *Raster, path string, bg color.NRGBA) error {
	f, err := imaging.FormatFromFilename(path)
	if err != nil {
		return &IOError{Op: "save", Path: path, Err: err}
	}
	out := r
	if r.Layout == RGBA && !SupportsAlpha(f) {
		out = r.Flatten(bg)
	}
	if err := imaging.Save(out.Image(), path); err != nil {
		return &IOError{Op: "save", Path: path, Err: err}
	}
	return nil
}

// EncodePNG encodes the raster as PNG, keeping alpha.
func EncodePNG(r *Raster) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, r.Image(), imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Thumbnail scales the raster down to fit within maxW x maxH using a
// Lanczos filter, preserving the aspect ratio. Smaller rasters are copied.
func Thumbnail(r *Raster, maxW, maxH int) *Raster {
	if r.Empty() || (r.Width <= maxW && r.Height <= maxH) {
		return r.Clone()
	}
	return FromImage(imaging.Fit(r.Image(), maxW, maxH, imaging.Lanczos))
}
