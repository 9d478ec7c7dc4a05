package batch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/kiesman99/quadfuse/internal/overlay"
	"github.com/kiesman99/quadfuse/internal/pseudo"
	"github.com/kiesman99/quadfuse/pkg/raster"
)

// Overlay composites every red/green pair found in redDir and greenDir and
// writes <name1>_<name2>_overlay<ext> into outDir, which defaults to an
// "overlay" folder next to redDir.
func (p *Processor) Overlay(ctx context.Context, redDir, greenDir, outDir string) (*Report, error) {
	reds, err := listFiles(redDir, isImage)
	if err != nil {
		return nil, err
	}
	greens, err := listFiles(greenDir, isImage)
	if err != nil {
		return nil, err
	}
	if outDir == "" {
		outDir = filepath.Join(filepath.Dir(filepath.Clean(redDir)), OverlayDir)
	}

	pairs := PairFiles(reds, greens)
	byBase := make(map[string]Pair, len(pairs))
	bases := make([]string, len(pairs))
	for i, pr := range pairs {
		byBase[pr.Base] = pr
		bases[i] = pr.Base
	}
	rep := &Report{Stage: "overlay", OutputDir: outDir, Total: len(pairs)}
	if len(pairs) == 0 {
		return rep, nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, &raster.IOError{Op: "mkdir", Path: outDir, Err: err}
	}

	p.logger.Printf("overlay: %s", p.opts.Params)
	err = p.each(ctx, rep, bases, func(base string) (string, error) {
		return p.overlayPair(byBase[base], outDir)
	})
	return rep, err
}

func (p *Processor) overlayPair(pr Pair, outDir string) (string, error) {
	red, err := raster.Load(pr.Red)
	if err != nil {
		return "", err
	}
	green, err := raster.Load(pr.Green)
	if err != nil {
		return "", err
	}
	res, err := overlay.Render(red, green, p.opts.Params)
	if err != nil {
		return "", err
	}
	out := filepath.Join(outDir, overlay.OutputName(pr.Red, pr.Green, p.outputExt(pr.Red)))
	if err := raster.Save(res.Raster, out, p.opts.Background); err != nil {
		return "", err
	}
	return out, nil
}

// Run executes the whole pipeline on a folder of tiles: combine, map every
// combined frame to red and green, then overlay each frame's two mappings.
func (p *Processor) Run(ctx context.Context, dir string) ([]*Report, error) {
	var reports []*Report

	combined, err := p.Combine(ctx, dir)
	if err != nil {
		return reports, err
	}
	reports = append(reports, combined)
	if err := combined.Err(); err != nil {
		return reports, err
	}

	var mapped [2]*Report
	for i, c := range []pseudo.Channel{pseudo.Red, pseudo.Green} {
		rep, err := p.Pseudo(ctx, combined.OutputDir, c, "")
		if err != nil {
			return reports, err
		}
		reports = append(reports, rep)
		mapped[i] = rep
	}

	rep, err := p.Overlay(ctx, mapped[0].OutputDir, mapped[1].OutputDir, "")
	if err != nil {
		return reports, err
	}
	reports = append(reports, rep)
	return reports, rep.Err()
}
