package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/layerstage/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id, dep string) model.ManifestEntry {
	return model.ManifestEntry{
		AssetID:     model.AssetID(id),
		Dependency:  dep,
		BuildPath:   "/stage/" + dep + "/" + id,
		RuntimePath: "/opt/python/" + dep + "/" + id,
		SizeBytes:   42,
	}
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	root := t.TempDir()
	s, err := Load(root)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, root, snap.BundleRoot)
	assert.Empty(t, snap.Entries)
	assert.Equal(t, filepath.Join(root, FileName), s.Path())
}

func TestLoad_CorruptFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("{not json"), 0o600))

	_, err := Load(root)
	assert.ErrorContains(t, err, "decode staging manifest")
}

func TestAppendPersistsAndReloads(t *testing.T) {
	root := t.TempDir()
	s, err := Load(root)
	require.NoError(t, err)

	added, err := s.Append(entry("punkt", "nltk"))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Append(entry("punkt", "other"))
	require.NoError(t, err)
	assert.False(t, added, "an asset id is recorded once")

	_, err = s.Append(entry("stopwords", "nltk"))
	require.NoError(t, err)

	reloaded, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, s.Snapshot(), reloaded.Snapshot())

	got, ok := reloaded.Lookup("punkt")
	require.True(t, ok)
	assert.Equal(t, "nltk", got.Dependency)

	_, ok = reloaded.Lookup("wordnet")
	assert.False(t, ok)
}

func TestAppendIsSerialized(t *testing.T) {
	root := t.TempDir()
	s, err := Load(root)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Append(entry(fmt.Sprintf("asset-%d", i), "dep"))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	reloaded, err := Load(root)
	require.NoError(t, err)
	assert.Len(t, reloaded.Snapshot().Entries, 32)

	leftovers, err := filepath.Glob(filepath.Join(root, FileName+".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestAppend_FailedWriteLeavesNoEntry(t *testing.T) {
	root := t.TempDir()
	s, err := Load(root)
	require.NoError(t, err)

	// A directory at the manifest path makes the rename fail.
	blocker := filepath.Join(root, FileName)
	require.NoError(t, os.Mkdir(blocker, 0o755))

	added, err := s.Append(entry("punkt", "nltk"))
	require.Error(t, err)
	assert.False(t, added)
	_, found := s.Lookup("punkt")
	assert.False(t, found)
	assert.Empty(t, s.Snapshot().Entries)

	require.NoError(t, os.Remove(blocker))
	added, err = s.Append(entry("punkt", "nltk"))
	require.NoError(t, err)
	assert.True(t, added)
	assert.Len(t, s.Snapshot().Entries, 1)
}
