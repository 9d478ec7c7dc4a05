package batch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/kiesman99/quadfuse/internal/pseudo"
	"github.com/kiesman99/quadfuse/pkg/raster"
)

// Pseudo maps every image in dir onto channel c and writes
// <name>_<channel><ext> into outDir, which defaults to dir/<channel>_pseudo.
func (p *Processor) Pseudo(ctx context.Context, dir string, c pseudo.Channel, outDir string) (*Report, error) {
	if !c.IsValid() {
		_, err := pseudo.ParseChannel(string(c))
		return nil, err
	}
	paths, err := listFiles(dir, isImage)
	if err != nil {
		return nil, err
	}
	if outDir == "" {
		outDir = filepath.Join(dir, pseudo.FolderName(c))
	}
	rep := &Report{Stage: "pseudo-" + c.String(), OutputDir: outDir, Total: len(paths)}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, &raster.IOError{Op: "mkdir", Path: outDir, Err: err}
	}

	err = p.each(ctx, rep, paths, func(path string) (string, error) {
		src, err := raster.Load(path)
		if err != nil {
			return "", err
		}
		mapped, err := pseudo.Map(src, c)
		if err != nil {
			return "", err
		}
		name := pseudo.OutputName(filepath.Base(path), c)
		if ext := p.outputExt(path); ext != filepath.Ext(path) {
			name = name[:len(name)-len(filepath.Ext(name))] + ext
		}
		out := filepath.Join(outDir, name)
		if err := raster.Save(mapped, out, p.opts.Background); err != nil {
			return "", err
		}
		return out, nil
	})
	return rep, err
}
