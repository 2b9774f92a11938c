package asset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/specialistvlad/layerstage/internal/ctxlog"
	"github.com/specialistvlad/layerstage/internal/manifest"
	"github.com/specialistvlad/layerstage/internal/model"
	"github.com/specialistvlad/layerstage/internal/pathmap"
)

// Defaults applied when a Stager field is left zero.
const (
	DefaultRetries      = 3
	DefaultBackoff      = 500 * time.Millisecond
	DefaultFetchTimeout = 2 * time.Minute
)

// Observer receives one call per fetched or failed asset.
type Observer interface {
	ObserveFetch(dependency string, ok bool, attempts int, elapsed time.Duration)
}

// Stager fetches the data assets of dependencies into a staging root.
type Stager struct {
	Manifest *manifest.Store
	// Fetchers maps an asset source name to the fetcher serving it.
	Fetchers map[string]Fetcher
	// Retries is the number of retries after the first attempt. Zero selects
	// DefaultRetries, a negative value disables retrying.
	Retries int
	// Backoff is the delay before the first retry; it doubles each time.
	Backoff  time.Duration
	Timeout  time.Duration
	Observer Observer
}

// Stage fetches every asset of dep, in declared order, into
// stagingRoot/<dep.Name>/<asset>. It returns the manifest entries appended
// by this call and one AssetFetchError per asset that could not be staged.
// The returned error is reserved for fatal configuration defects
// (pathmap.ErrPathOutOfScope).
func (s *Stager) Stage(ctx context.Context, dep model.DependencySpec, stagingRoot string, mapping pathmap.Mapping) ([]model.ManifestEntry, []model.AssetFetchError, error) {
	ctx = ctxlog.With(ctx, "dependency", dep.Name)
	logger := ctxlog.FromContext(ctx)

	delta := []model.ManifestEntry{}
	var failures []model.AssetFetchError
	fail := func(id model.AssetID, reason string) {
		logger.Warn("Asset could not be staged.", "asset", id, "reason", reason)
		failures = append(failures, model.AssetFetchError{Dependency: dep.Name, Asset: id, Reason: reason})
	}

	for _, id := range dep.RequiredDataAssets {
		if ctx.Err() != nil {
			fail(id, model.ReasonCancelled)
			continue
		}
		if err := validateID(id); err != nil {
			fail(id, err.Error())
			continue
		}

		buildPath := filepath.Join(stagingRoot, dep.Name, string(id))
		runtimePath, err := pathmap.Translate(filepath.ToSlash(buildPath), mapping)
		if err != nil {
			return delta, failures, fmt.Errorf("stage %s/%s: %w", dep.Name, id, err)
		}

		if existing, ok := s.Manifest.Lookup(id); ok {
			logger.Debug("Asset already staged, skipping fetch.", "asset", id, "build_path", existing.BuildPath)
			continue
		}

		fetcher, ok := s.Fetchers[dep.AssetSource]
		if !ok {
			fail(id, fmt.Sprintf("no asset source %q configured", dep.AssetSource))
			continue
		}

		size, err := s.fetchWithRetry(ctx, dep.Name, fetcher, id, buildPath)
		if err != nil {
			fail(id, err.Error())
			continue
		}

		entry := model.ManifestEntry{
			AssetID:     id,
			Dependency:  dep.Name,
			BuildPath:   buildPath,
			RuntimePath: runtimePath,
			SizeBytes:   size,
		}
		added, err := s.Manifest.Append(entry)
		if err != nil {
			fail(id, fmt.Sprintf("record in staging manifest: %v", err))
			continue
		}
		if added {
			delta = append(delta, entry)
		}
		logger.Info("📦 Asset staged.", "asset", id, "runtime_path", runtimePath, "bytes", size)
	}
	return delta, failures, nil
}

// fetchWithRetry makes up to Retries+1 attempts with exponential backoff.
// Each attempt is bounded by Timeout; an attempt that times out counts as
// transient.
func (s *Stager) fetchWithRetry(ctx context.Context, dependency string, f Fetcher, id model.AssetID, target string) (int64, error) {
	logger := ctxlog.FromContext(ctx).With("asset", id)
	backoff := wait.Backoff{
		Duration: s.backoff(),
		Factor:   2.0,
		Jitter:   0.1,
		Steps:    s.retries() + 1,
	}

	var (
		size     int64
		lastErr  error
		attempts int
		started  = time.Now()
	)
	err := wait.ExponentialBackoffWithContext(ctx, backoff, func(ctx context.Context) (bool, error) {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout())
		defer cancel()

		n, err := fetchOnce(attemptCtx, f, id, target)
		if err == nil {
			size = n
			return true, nil
		}
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			return false, ctx.Err()
		}
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("fetch timed out after %s: %w", s.timeout(), err)
		}
		lastErr = err
		if IsPermanent(err) {
			return false, err
		}
		logger.Debug("Fetch attempt failed, will retry.", "attempt", attempts, "error", err)
		return false, nil
	})

	ok := err == nil
	if s.Observer != nil {
		s.Observer.ObserveFetch(dependency, ok, attempts, time.Since(started))
	}
	if ok {
		return size, nil
	}
	if lastErr == nil {
		lastErr = err
	}
	if IsPermanent(lastErr) {
		return 0, lastErr
	}
	if errors.Is(lastErr, context.Canceled) {
		return 0, errors.New(model.ReasonCancelled)
	}
	return 0, fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}

// fetchOnce downloads into a hidden sibling directory and renames it into
// place, so a failed attempt never leaves a partial asset at target.
func fetchOnce(ctx context.Context, f Fetcher, id model.AssetID, target string) (int64, error) {
	body, name, err := f.Open(ctx, id)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	parent := filepath.Dir(target)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return 0, Permanent(fmt.Errorf("create %s: %w", parent, err))
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(target)+".partial-*")
	if err != nil {
		return 0, Permanent(fmt.Errorf("create staging directory: %w", err))
	}
	size, err := materialize(body, name, tmp)
	if err != nil {
		os.RemoveAll(tmp)
		return 0, err
	}
	if err := os.RemoveAll(target); err != nil {
		os.RemoveAll(tmp)
		return 0, Permanent(fmt.Errorf("clear %s: %w", target, err))
	}
	if err := os.Rename(tmp, target); err != nil {
		os.RemoveAll(tmp)
		return 0, Permanent(fmt.Errorf("move asset into place: %w", err))
	}
	return size, nil
}

func validateID(id model.AssetID) error {
	s := string(id)
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("invalid asset id %q", s)
	}
	return nil
}

func (s *Stager) retries() int {
	if s.Retries < 0 {
		return 0
	}
	if s.Retries == 0 {
		return DefaultRetries
	}
	return s.Retries
}

func (s *Stager) backoff() time.Duration {
	if s.Backoff < 0 {
		return 0
	}
	if s.Backoff == 0 {
		return DefaultBackoff
	}
	return s.Backoff
}

func (s *Stager) timeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultFetchTimeout
	}
	return s.Timeout
}
