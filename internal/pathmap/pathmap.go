// Package pathmap translates staging (build-time) paths into the paths the
// same files will have once the layer is mounted in the runtime environment.
//
// A mapping is a pure prefix substitution. A Table groups the mappings that
// apply to one bundle and rejects overlapping prefixes up front, which keeps
// translation injective: two distinct build paths never share a runtime path.
package pathmap

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrPathOutOfScope is returned when a path lies outside every registered
// build prefix. It signals drift between the staging layout and the mapping
// table and is always fatal.
var ErrPathOutOfScope = errors.New("path out of scope")

// ErrInvalidTable is returned by NewTable for a malformed mapping table.
var ErrInvalidTable = errors.New("invalid mapping table")

// Mapping pairs a build-time prefix with its runtime counterpart.
type Mapping struct {
	BuildPrefix   string `json:"buildPrefix"`
	RuntimePrefix string `json:"runtimePrefix"`
}

// IsNoop reports whether the mapping leaves paths unchanged.
func (m Mapping) IsNoop() bool {
	return clean(m.BuildPrefix) == clean(m.RuntimePrefix)
}

// Translate substitutes m.BuildPrefix with m.RuntimePrefix in buildPath.
func Translate(buildPath string, m Mapping) (string, error) {
	p, build := clean(buildPath), clean(m.BuildPrefix)
	rest, ok := cutPrefix(p, build)
	if !ok {
		return "", fmt.Errorf("%w: %q is not under %q", ErrPathOutOfScope, buildPath, m.BuildPrefix)
	}
	runtime := clean(m.RuntimePrefix)
	if runtime == "/" && rest != "" {
		return rest, nil
	}
	return runtime + rest, nil
}

// Table is the validated set of mappings for one bundle.
type Table struct {
	mappings []Mapping
}

// NewTable validates mappings and returns a Table.
func NewTable(mappings ...Mapping) (*Table, error) {
	if len(mappings) == 0 {
		return nil, fmt.Errorf("%w: no mappings registered", ErrInvalidTable)
	}
	cleaned := make([]Mapping, 0, len(mappings))
	for _, m := range mappings {
		if !path.IsAbs(m.BuildPrefix) || !path.IsAbs(m.RuntimePrefix) {
			return nil, fmt.Errorf("%w: prefixes must be absolute, got %q -> %q", ErrInvalidTable, m.BuildPrefix, m.RuntimePrefix)
		}
		c := Mapping{BuildPrefix: clean(m.BuildPrefix), RuntimePrefix: clean(m.RuntimePrefix)}
		for _, prev := range cleaned {
			if overlaps(prev.BuildPrefix, c.BuildPrefix) {
				return nil, fmt.Errorf("%w: build prefixes %q and %q overlap", ErrInvalidTable, prev.BuildPrefix, c.BuildPrefix)
			}
			// A no-op mapping re-registers an existing runtime prefix so that
			// already translated paths pass through unchanged.
			if !prev.IsNoop() && !c.IsNoop() && overlaps(prev.RuntimePrefix, c.RuntimePrefix) {
				return nil, fmt.Errorf("%w: runtime prefixes %q and %q overlap", ErrInvalidTable, prev.RuntimePrefix, c.RuntimePrefix)
			}
		}
		cleaned = append(cleaned, c)
	}
	return &Table{mappings: cleaned}, nil
}

// Mappings returns a copy of the registered mappings.
func (t *Table) Mappings() []Mapping {
	return append([]Mapping(nil), t.mappings...)
}

// Lookup returns the mapping whose build prefix contains p.
func (t *Table) Lookup(p string) (Mapping, bool) {
	c := clean(p)
	for _, m := range t.mappings {
		if _, ok := cutPrefix(c, m.BuildPrefix); ok {
			return m, true
		}
	}
	return Mapping{}, false
}

// Contains reports whether p is inside a registered build prefix.
func (t *Table) Contains(p string) bool {
	_, ok := t.Lookup(p)
	return ok
}

// Translate maps a build path to its runtime path. A path that only matches
// a runtime prefix is out of scope; already translated paths are never
// translated again unless a no-op mapping covers them.
func (t *Table) Translate(buildPath string) (string, error) {
	m, ok := t.Lookup(buildPath)
	if !ok {
		return "", fmt.Errorf("%w: %q matches no registered build prefix", ErrPathOutOfScope, buildPath)
	}
	return Translate(buildPath, m)
}

func clean(p string) string {
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}

// cutPrefix is a segment-aware prefix check: "/a/b" contains "/a/b/c" but
// not "/a/bc".
func cutPrefix(p, prefix string) (string, bool) {
	if p == prefix {
		return "", true
	}
	if prefix == "/" {
		return p, strings.HasPrefix(p, "/")
	}
	if strings.HasPrefix(p, prefix+"/") {
		return p[len(prefix):], true
	}
	return "", false
}

func overlaps(a, b string) bool {
	_, ab := cutPrefix(a, b)
	_, ba := cutPrefix(b, a)
	return ab || ba
}
