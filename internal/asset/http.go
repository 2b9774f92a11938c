package asset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/specialistvlad/layerstage/internal/model"
)

// HTTPFetcher downloads assets with plain GET requests relative to a base
// URL, e.g. the NLTK data index.
type HTTPFetcher struct {
	client *http.Client
	cfg    SourceConfig
}

// NewHTTPFetcher returns an HTTPFetcher. A nil client means http.DefaultClient.
func NewHTTPFetcher(cfg SourceConfig, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client, cfg: cfg}
}

// Open implements Fetcher.
func (f *HTTPFetcher) Open(ctx context.Context, id model.AssetID) (io.ReadCloser, string, error) {
	objectPath := f.cfg.ObjectPath(id)
	url := strings.TrimRight(f.cfg.BaseURL, "/") + "/" + objectPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", Permanent(fmt.Errorf("build request for %s: %w", url, err))
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("GET %s: %w", url, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, objectPath, nil
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		resp.Body.Close()
		return nil, "", fmt.Errorf("GET %s: %s", url, resp.Status)
	default:
		resp.Body.Close()
		return nil, "", Permanent(fmt.Errorf("GET %s: %s", url, resp.Status))
	}
}
