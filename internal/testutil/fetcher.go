package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/specialistvlad/layerstage/internal/asset"
	"github.com/specialistvlad/layerstage/internal/model"
)

// MemoryFetcher serves asset payloads from memory as plain files named
// "<id>.dat" and counts the opens per asset.
type MemoryFetcher struct {
	mu       sync.Mutex
	payloads map[model.AssetID][]byte
	opens    map[model.AssetID]int
}

// NewMemoryFetcher creates a fetcher serving payloads.
func NewMemoryFetcher(payloads map[model.AssetID]string) *MemoryFetcher {
	f := &MemoryFetcher{payloads: map[model.AssetID][]byte{}, opens: map[model.AssetID]int{}}
	for id, body := range payloads {
		f.payloads[id] = []byte(body)
	}
	return f
}

// Open implements asset.Fetcher. Unknown assets fail permanently.
func (f *MemoryFetcher) Open(_ context.Context, id model.AssetID) (io.ReadCloser, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens[id]++
	body, ok := f.payloads[id]
	if !ok {
		return nil, "", asset.Permanent(fmt.Errorf("asset %s: 404 Not Found", id))
	}
	return io.NopCloser(bytes.NewReader(body)), string(id) + ".dat", nil
}

// Opens returns the number of Open calls for id.
func (f *MemoryFetcher) Opens(id model.AssetID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens[id]
}

// TotalOpens returns the number of Open calls across all assets.
func (f *MemoryFetcher) TotalOpens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.opens {
		n += c
	}
	return n
}
