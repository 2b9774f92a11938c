package inmemorystore

import (
	"sync"

	"github.com/specialistvlad/layerstage/internal/model"
)

// Store collects the results that concurrent per-dependency tasks produce.
//
// Each result kind lives in its own sync.Map keyed by dependency name:
//   - probes: model.ProbeResult
//   - staged: []model.ManifestEntry appended by this run
//   - assetErrors: []model.AssetFetchError
//   - natives: []model.NativeArtifactRecord
//
// The probe and the stager of one dependency write to different maps, so
// they never contend with each other.
type Store struct {
	probes      sync.Map
	staged      sync.Map
	assetErrors sync.Map
	natives     sync.Map
}

// New creates a new, empty result store.
func New() *Store {
	return &Store{}
}

// SetProbe records the probe outcome of a dependency. A later call for the
// same dependency replaces the earlier one.
func (s *Store) SetProbe(r model.ProbeResult) {
	s.probes.Store(r.Dependency, r)
}

// Probe returns the recorded probe outcome of a dependency.
func (s *Store) Probe(dependency string) (model.ProbeResult, bool) {
	v, ok := s.probes.Load(dependency)
	if !ok {
		return model.ProbeResult{}, false
	}
	return v.(model.ProbeResult), true
}

// SetStaged records what the stager did for a dependency.
func (s *Store) SetStaged(dependency string, entries []model.ManifestEntry, errs []model.AssetFetchError) {
	s.staged.Store(dependency, entries)
	s.assetErrors.Store(dependency, errs)
}

// SetNatives records the native artifacts of a dependency.
func (s *Store) SetNatives(dependency string, records []model.NativeArtifactRecord) {
	s.natives.Store(dependency, records)
}

// Probes returns every recorded probe outcome, in no particular order.
func (s *Store) Probes() []model.ProbeResult {
	out := []model.ProbeResult{}
	s.probes.Range(func(_, v any) bool {
		out = append(out, v.(model.ProbeResult))
		return true
	})
	return out
}

// Staged returns every manifest entry appended during the run.
func (s *Store) Staged() []model.ManifestEntry {
	return flatten[model.ManifestEntry](&s.staged)
}

// AssetErrors returns every recorded asset failure.
func (s *Store) AssetErrors() []model.AssetFetchError {
	return flatten[model.AssetFetchError](&s.assetErrors)
}

// Natives returns every recorded native artifact.
func (s *Store) Natives() []model.NativeArtifactRecord {
	return flatten[model.NativeArtifactRecord](&s.natives)
}

func flatten[T any](m *sync.Map) []T {
	out := []T{}
	m.Range(func(_, v any) bool {
		out = append(out, v.([]T)...)
		return true
	})
	return out
}
