// Package batch runs the pipeline over folders of capture files. A bad tile
// group or image pair is recorded in the Report and skipped; it never aborts
// the rest of the batch.
package batch

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"log"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kiesman99/quadfuse/internal/overlay"
	"github.com/kiesman99/quadfuse/pkg/raster"
)

// Folder names written next to the inputs.
const (
	CombinedDir = "combined"
	OverlayDir  = "overlay"
)

// Options configures a Processor.
type Options struct {
	// TileExt selects the tile files to combine, e.g. ".bmp".
	TileExt string
	// OutputExt overrides the extension of written files. Empty keeps the
	// extension of the input.
	OutputExt string
	// Background is used when a transparent composite is written to a
	// container without alpha.
	Background color.NRGBA
	// Params drives every composite of the batch.
	Params overlay.Params
	// Workers bounds how many items are processed at once.
	Workers int
	// Logger receives per-item progress and skip lines.
	Logger  *log.Logger
	Verbose bool
}

// DefaultOptions returns options matching the capture software's defaults.
func DefaultOptions() Options {
	return Options{
		TileExt:    ".bmp",
		Background: raster.DefaultBackground,
		Params:     overlay.DefaultParams(),
		Workers:    runtime.GOMAXPROCS(0),
	}
}

// Failure is one skipped group, file or pair.
type Failure struct {
	Name string
	Err  error
}

// Report summarises one batch stage.
type Report struct {
	Stage     string
	OutputDir string
	Total     int
	Succeeded int
	Outputs   []string
	Failures  []Failure
	// Ignored lists inputs that could not take part at all, such as files
	// without a positional suffix.
	Ignored []string

	mu sync.Mutex
}

func (r *Report) success(out string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Succeeded++
	r.Outputs = append(r.Outputs, out)
}

func (r *Report) fail(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures = append(r.Failures, Failure{Name: name, Err: err})
}

func (r *Report) sort() {
	sort.Strings(r.Outputs)
	sort.Slice(r.Failures, func(i, j int) bool { return r.Failures[i].Name < r.Failures[j].Name })
}

// Err returns a *StageError when the stage had inputs but produced nothing.
func (r *Report) Err() error {
	if r.Total > 0 && r.Succeeded == 0 {
		return &StageError{Report: r}
	}
	return nil
}

// StageError means every item of a stage failed.
type StageError struct {
	Report *Report
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: none of %d items could be processed", e.Report.Stage, e.Report.Total)
}

// Processor runs batch stages.
type Processor struct {
	opts   Options
	logger *log.Logger
}

// New creates a processor. Zero-valued options fall back to DefaultOptions.
func New(opts Options) *Processor {
	def := DefaultOptions()
	if opts.TileExt == "" {
		opts.TileExt = def.TileExt
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.Params == (overlay.Params{}) {
		opts.Params = def.Params
	}
	if opts.Background.A == 0 {
		opts.Background.A = 255
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Processor{opts: opts, logger: logger}
}

// each runs fn for every item with bounded concurrency. Item failures go to
// the report; only context cancellation is returned.
func (p *Processor) each(ctx context.Context, rep *Report, items []string, fn func(item string) (string, error)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := fn(item)
			if err != nil {
				rep.fail(item, err)
				p.logger.Printf("%s: skipping %s: %v", rep.Stage, item, err)
				return nil
			}
			rep.success(out)
			if p.opts.Verbose {
				p.logger.Printf("%s: wrote %s", rep.Stage, out)
			}
			return nil
		})
	}
	err := g.Wait()
	rep.sort()
	if err != nil {
		return err
	}
	return ctx.Err()
}

// outputExt picks the extension of a written file.
func (p *Processor) outputExt(input string) string {
	if p.opts.OutputExt != "" {
		return normalizeExt(p.opts.OutputExt)
	}
	return filepath.Ext(input)
}

func normalizeExt(ext string) string {
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}
