package asset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/specialistvlad/layerstage/internal/model"
)

// S3Fetcher reads assets from an S3 compatible bucket, typically a mirror
// used by builds without internet access.
type S3Fetcher struct {
	client *minio.Client
	cfg    SourceConfig
}

// NewS3Fetcher connects an S3Fetcher to cfg.Endpoint.
func NewS3Fetcher(cfg SourceConfig) (*S3Fetcher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("asset source %q: s3 endpoint is required", cfg.Name)
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("asset source %q: s3 bucket is required", cfg.Name)
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	opts := &minio.Options{Secure: cfg.UseSSL, Region: region}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		opts.Creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}
	client, err := minio.New(endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("asset source %q: init s3 client: %w", cfg.Name, err)
	}
	return &S3Fetcher{client: client, cfg: cfg}, nil
}

// Open implements Fetcher.
func (f *S3Fetcher) Open(ctx context.Context, id model.AssetID) (io.ReadCloser, string, error) {
	key := path.Join(f.cfg.Prefix, f.cfg.ObjectPath(id))

	obj, err := f.client.GetObject(ctx, f.cfg.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("get s3://%s/%s: %w", f.cfg.Bucket, key, err)
	}
	// GetObject is lazy; Stat surfaces missing keys and auth errors.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		resp := minio.ToErrorResponse(err)
		wrapped := fmt.Errorf("get s3://%s/%s: %w", f.cfg.Bucket, key, err)
		switch {
		case resp.Code == "NoSuchKey", resp.Code == "NoSuchBucket", resp.Code == "AccessDenied",
			resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusForbidden:
			return nil, "", Permanent(wrapped)
		default:
			return nil, "", wrapped
		}
	}
	return obj, key, nil
}
