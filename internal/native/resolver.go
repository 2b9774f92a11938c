package native

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/specialistvlad/layerstage/internal/model"
)

// DefaultPatterns select candidate extension files when none are configured.
var DefaultPatterns = []string{"**/*.so", "**/*.pyd"}

// Resolver classifies the native artifacts of installed dependencies.
type Resolver struct {
	patterns []glob.Glob
}

// NewResolver compiles the candidate file patterns. An empty list selects
// DefaultPatterns.
func NewResolver(patterns ...string) (*Resolver, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	r := &Resolver{}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("compile native pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, g)
	}
	return r, nil
}

// Resolve returns one record per tagged extension module in installedFiles,
// sorted by file path. Pure dependencies yield an empty list.
func (r *Resolver) Resolve(dep model.DependencySpec, installedFiles []string, target model.PlatformDescriptor) []model.NativeArtifactRecord {
	records := []model.NativeArtifactRecord{}
	for _, file := range installedFiles {
		if !r.candidate(file) {
			continue
		}
		tag, ok := parseFilename(file)
		if !ok {
			continue
		}
		records = append(records, model.NativeArtifactRecord{
			Package:       dep.Name,
			FilePath:      file,
			ABITag:        tag.ABITag,
			PlatformTag:   tag.PlatformTag,
			MatchesTarget: Matches(tag, target),
		})
	}
	slices.SortFunc(records, func(a, b model.NativeArtifactRecord) int {
		return strings.Compare(a.FilePath, b.FilePath)
	})
	return records
}

// candidate matches file against the patterns. Top-level files are also
// tried with a leading separator so "**/*.so" covers them.
func (r *Resolver) candidate(file string) bool {
	slashed := "/" + strings.TrimPrefix(file, "/")
	for _, g := range r.patterns {
		if g.Match(file) || g.Match(slashed) {
			return true
		}
	}
	return false
}
