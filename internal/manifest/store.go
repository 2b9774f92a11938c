// Package manifest persists the staging manifest: the append-only record of
// data assets already fetched into a staging root. It is reloaded at the
// start of every run so that re-staging is incremental.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/specialistvlad/layerstage/internal/model"
)

// FileName is the manifest file kept at the root of the staging directory.
const FileName = ".layerstage-manifest.json"

// Store is the single serializing writer for one staging manifest. All
// methods are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	path    string
	data    model.StagingManifest
	byAsset map[model.AssetID]int
}

// Load opens the manifest under stagingRoot. A missing file yields an empty
// manifest; an unreadable or corrupt one is an error.
func Load(stagingRoot string) (*Store, error) {
	s := &Store{
		path:    filepath.Join(stagingRoot, FileName),
		data:    model.StagingManifest{BundleRoot: stagingRoot, Entries: []model.ManifestEntry{}},
		byAsset: make(map[model.AssetID]int),
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read staging manifest: %w", err)
	}

	var persisted model.StagingManifest
	if err := json.Unmarshal(raw, &persisted); err != nil {
		return nil, fmt.Errorf("decode staging manifest %s: %w", s.path, err)
	}
	for _, e := range persisted.Entries {
		if _, dup := s.byAsset[e.AssetID]; dup {
			continue
		}
		s.byAsset[e.AssetID] = len(s.data.Entries)
		s.data.Entries = append(s.data.Entries, e)
	}
	return s, nil
}

// Path returns the location of the manifest file.
func (s *Store) Path() string { return s.path }

// Lookup returns the entry recorded for id, if any.
func (s *Store) Lookup(id model.AssetID) (model.ManifestEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byAsset[id]
	if !ok {
		return model.ManifestEntry{}, false
	}
	return s.data.Entries[i], true
}

// Append records e and rewrites the manifest file. It reports false without
// touching the file when an entry for the same asset already exists. When
// the rewrite fails the entry is dropped again and the error returned.
func (s *Store) Append(e model.ManifestEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byAsset[e.AssetID]; dup {
		return false, nil
	}
	s.byAsset[e.AssetID] = len(s.data.Entries)
	s.data.Entries = append(s.data.Entries, e)
	if err := s.flushLocked(); err != nil {
		// Memory must not hold what the file does not.
		delete(s.byAsset, e.AssetID)
		s.data.Entries = s.data.Entries[:len(s.data.Entries)-1]
		return false, err
	}
	return true, nil
}

// Snapshot returns a copy of the manifest in insertion order.
func (s *Store) Snapshot() model.StagingManifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.StagingManifest{
		BundleRoot: s.data.BundleRoot,
		Entries:    append([]model.ManifestEntry{}, s.data.Entries...),
	}
}

// Flush writes the manifest to disk.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// flushLocked writes to a temporary file and renames it over the manifest
// so readers never observe a half-written file.
func (s *Store) flushLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode staging manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create staging root: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("write staging manifest: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write staging manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write staging manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace staging manifest: %w", err)
	}
	return nil
}
