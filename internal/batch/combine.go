package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiesman99/quadfuse/pkg/raster"
	"github.com/kiesman99/quadfuse/pkg/tile"
)

// imageExts are the extensions picked up by the pseudo-color and overlay stages.
var imageExts = map[string]bool{
	".bmp": true, ".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true,
}

// listFiles returns the regular files in dir accepted by keep, sorted by name.
func listFiles(dir string, keep func(name string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &raster.IOError{Op: "read dir", Path: dir, Err: err}
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !keep(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

func hasExt(exts ...string) func(string) bool {
	return func(name string) bool {
		ext := strings.ToLower(filepath.Ext(name))
		for _, e := range exts {
			if ext == strings.ToLower(e) {
				return true
			}
		}
		return false
	}
}

func isImage(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

// Combine reassembles every complete tile group found in dir and writes
// <prefix>_combined<ext> into dir/combined.
func (p *Processor) Combine(ctx context.Context, dir string) (*Report, error) {
	paths, err := listFiles(dir, hasExt(normalizeExt(p.opts.TileExt)))
	if err != nil {
		return nil, err
	}
	groups, ignored := tile.GroupPaths(paths)
	outDir := filepath.Join(dir, CombinedDir)
	rep := &Report{
		Stage:     "combine",
		OutputDir: outDir,
		Total:     len(groups),
		Ignored:   ignored,
	}
	if len(groups) == 0 {
		return rep, nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, &raster.IOError{Op: "mkdir", Path: outDir, Err: err}
	}

	err = p.each(ctx, rep, groups.Prefixes(), func(prefix string) (string, error) {
		return p.combineGroup(prefix, groups[prefix], outDir)
	})
	return rep, err
}

func (p *Processor) combineGroup(prefix string, entries []tile.Entry, outDir string) (string, error) {
	g := tile.NewGroup(prefix)
	paths := make(map[tile.Corner]string, len(entries))
	for _, e := range entries {
		paths[e.Corner] = e.Path
	}
	if missing := missingCorners(paths); len(missing) > 0 {
		return "", &tile.MissingTileError{Prefix: prefix, Missing: missing}
	}
	for c, path := range paths {
		r, err := raster.Load(path)
		if err != nil {
			return "", err
		}
		g.Set(c, r)
	}

	frame, err := tile.Reassemble(g)
	if err != nil {
		return "", err
	}
	out := filepath.Join(outDir, CombinedName(prefix, p.outputExt(paths[tile.TopLeft])))
	if err := raster.Save(frame, out, p.opts.Background); err != nil {
		return "", err
	}
	return out, nil
}

func missingCorners(paths map[tile.Corner]string) []tile.Corner {
	var missing []tile.Corner
	for _, c := range tile.Corners {
		if _, ok := paths[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// CombinedName returns "<prefix>_combined<ext>".
func CombinedName(prefix, ext string) string {
	return fmt.Sprintf("%s_combined%s", prefix, ext)
}
