package batch

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/kiesman99/quadfuse/internal/pseudo"
)

// Pair is a red and a green file sharing one base name.
type Pair struct {
	Base  string
	Red   string
	Green string
}

// PairFiles matches red and green files by stripping the _red / _green
// suffix from each file stem and intersecting the resulting base names.
// Files without a partner are skipped. Pairs are sorted by base name.
func PairFiles(redFiles, greenFiles []string) []Pair {
	reds := indexByBase(redFiles, pseudo.Red)
	greens := indexByBase(greenFiles, pseudo.Green)

	var pairs []Pair
	for base, red := range reds {
		green, ok := greens[base]
		if !ok {
			continue
		}
		pairs = append(pairs, Pair{Base: base, Red: red, Green: green})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Base < pairs[j].Base })
	return pairs
}

// indexByBase keys files by stem with only the suffix of channel c removed,
// so a stray _green file in the red folder keeps its full stem.
func indexByBase(files []string, c pseudo.Channel) map[string]string {
	idx := make(map[string]string, len(files))
	for _, f := range files {
		name := filepath.Base(f)
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		base, got, ok := pseudo.BaseName(stem)
		if !ok || got != c {
			base = stem
		}
		idx[base] = f
	}
	return idx
}
