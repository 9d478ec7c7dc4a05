// Package pseudo renders a single-intensity frame into one color channel.
package pseudo

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kiesman99/quadfuse/pkg/raster"
)

// Channel selects which RGB channel receives the intensity.
type Channel string

const (
	// Red is the primary assignment.
	Red Channel = "red"
	// Green is the secondary assignment.
	Green Channel = "green"
)

// String returns the channel name used in file and folder names.
func (c Channel) String() string { return string(c) }

// IsValid reports whether c is one of the two supported assignments.
func (c Channel) IsValid() bool {
	return c == Red || c == Green
}

// Index returns the byte offset of the channel inside an RGB pixel.
func (c Channel) Index() int {
	if c == Green {
		return 1
	}
	return 0
}

// ParseChannel converts a name, in any case, to a Channel.
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToLower(s))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: channel %q (valid: red, green)", raster.ErrInvalidArgument, s)
	}
	return c, nil
}

// Map collapses src to luminance and writes each intensity into channel c of
// a new RGB raster, leaving the other two channels at zero.
func Map(src *raster.Raster, c Channel) (*raster.Raster, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("%w: channel %q", raster.ErrInvalidArgument, c)
	}
	out := raster.New(src.Width, src.Height, raster.RGB)
	if src.Empty() {
		return out, nil
	}

	gray := src
	if src.Layout != raster.Gray {
		gray = src.Luminance()
	}
	idx := c.Index()
	raster.ParallelRows(src.Height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			in := gray.Row(y)
			dst := out.Row(y)
			for x, v := range in {
				dst[x*3+idx] = v
			}
		}
	})
	return out, nil
}

// OutputName returns "<name>_<channel><ext>" for a source file name.
func OutputName(filename string, c Channel) string {
	ext := filepath.Ext(filename)
	return strings.TrimSuffix(filename, ext) + "_" + c.String() + ext
}

// FolderName is the conventional output folder for a channel, e.g. "red_pseudo".
func FolderName(c Channel) string {
	return c.String() + "_pseudo"
}

// BaseName strips a trailing "_red" or "_green" from a file stem. The second
// result reports which channel was found.
func BaseName(stem string) (string, Channel, bool) {
	for _, c := range []Channel{Red, Green} {
		if s, ok := strings.CutSuffix(stem, "_"+c.String()); ok {
			return s, c, true
		}
	}
	return stem, "", false
}
