package probe

import "path/filepath"

// SearchPaths is the ordered, immutable list of directories a probe may
// import from. It is built once per run and passed by value to every probe.
type SearchPaths struct {
	paths []string
}

// NewSearchPaths copies paths into a SearchPaths, cleaning each entry and
// dropping duplicates while keeping the first occurrence's position.
func NewSearchPaths(paths ...string) SearchPaths {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		p = filepath.Clean(p)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return SearchPaths{paths: out}
}

// List returns a copy of the paths.
func (s SearchPaths) List() []string {
	return append([]string(nil), s.paths...)
}

// Len returns the number of paths.
func (s SearchPaths) Len() int { return len(s.paths) }
