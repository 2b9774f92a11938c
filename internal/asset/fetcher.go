package asset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/specialistvlad/layerstage/internal/model"
)

// Source types understood by NewFetcher.
const (
	SourceHTTP = "http"
	SourceS3   = "s3"
)

// Fetcher opens the payload of one asset. The returned name is the object
// name the payload was served under; a ".zip" suffix makes the stager
// extract it. Errors are transient unless marked with Permanent.
type Fetcher interface {
	Open(ctx context.Context, id model.AssetID) (io.ReadCloser, string, error)
}

// SourceConfig describes where a family of assets is served from.
type SourceConfig struct {
	Name string
	Type string

	// Paths overrides the object path per asset id. Assets without an entry
	// are served as "<id>.zip".
	Paths map[string]string

	// http
	BaseURL string

	// s3
	Endpoint  string
	Bucket    string
	Prefix    string
	Region    string
	UseSSL    bool
	AccessKey string
	SecretKey string
}

// ObjectPath returns the object path serving id.
func (c SourceConfig) ObjectPath(id model.AssetID) string {
	if p, ok := c.Paths[string(id)]; ok && p != "" {
		return strings.TrimLeft(p, "/")
	}
	return string(id) + ".zip"
}

// NewFetcher builds the Fetcher for cfg. client is used by HTTP sources and
// may be nil.
func NewFetcher(cfg SourceConfig, client *http.Client) (Fetcher, error) {
	switch cfg.Type {
	case SourceHTTP, "":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("asset source %q: base_url is required", cfg.Name)
		}
		return NewHTTPFetcher(cfg, client), nil
	case SourceS3:
		return NewS3Fetcher(cfg)
	default:
		return nil, fmt.Errorf("asset source %q: unknown type %q", cfg.Name, cfg.Type)
	}
}
