package tile

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var suffixPattern = regexp.MustCompile(`(?i)_(LD|LU|RD|RU)\.[a-z0-9]+$`)

// Prefix strips the positional suffix (_LD, _LU, _RD, _RU, any case) that
// immediately precedes the extension and returns the remaining stem.
// Names without a suffix are returned unchanged.
func Prefix(filename string) string {
	p, _, _ := Split(filename)
	return p
}

// Split returns the prefix, the corner and whether filename carried a
// positional suffix at all.
func Split(filename string) (prefix string, corner Corner, ok bool) {
	m := suffixPattern.FindStringSubmatchIndex(filename)
	if m == nil {
		return filename, "", false
	}
	return filename[:m[0]], Corner(strings.ToUpper(filename[m[2]:m[3]])), true
}

// Entry is one tile file found for a prefix.
type Entry struct {
	Corner Corner
	Path   string
}

// Listing maps each prefix to the tile files found for it.
type Listing map[string][]Entry

// GroupPaths buckets file paths by prefix, using exact string equality of
// the stripped base name. Paths without a positional suffix are returned
// separately.
func GroupPaths(paths []string) (groups Listing, ignored []string) {
	groups = make(Listing)
	for _, p := range paths {
		prefix, corner, ok := Split(filepath.Base(p))
		if !ok {
			ignored = append(ignored, p)
			continue
		}
		groups[prefix] = append(groups[prefix], Entry{Corner: corner, Path: p})
	}
	return groups, ignored
}

// Prefixes returns the listing keys in sorted order.
func (l Listing) Prefixes() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
