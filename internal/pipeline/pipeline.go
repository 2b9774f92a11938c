package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/layerstage/internal/ctxlog"
	"github.com/specialistvlad/layerstage/internal/fsutil"
	"github.com/specialistvlad/layerstage/internal/inmemorystore"
	"github.com/specialistvlad/layerstage/internal/manifest"
	"github.com/specialistvlad/layerstage/internal/model"
	"github.com/specialistvlad/layerstage/internal/pathmap"
	"github.com/specialistvlad/layerstage/internal/probe"
)

// DefaultConcurrency is the worker count used when none is configured.
const DefaultConcurrency = 4

// Prober imports one dependency. Implementations never fail; every problem
// is a ProbeResult.
type Prober interface {
	Probe(ctx context.Context, dep model.DependencySpec, paths probe.SearchPaths) model.ProbeResult
}

// Stager fetches the data assets of one dependency.
type Stager interface {
	Stage(ctx context.Context, dep model.DependencySpec, stagingRoot string, mapping pathmap.Mapping) ([]model.ManifestEntry, []model.AssetFetchError, error)
}

// Resolver classifies the native artifacts among installed files.
type Resolver interface {
	Resolve(dep model.DependencySpec, installedFiles []string, target model.PlatformDescriptor) []model.NativeArtifactRecord
}

// Observer is notified of per-dependency outcomes, e.g. for metrics.
type Observer interface {
	ObserveProbe(r model.ProbeResult, elapsed time.Duration)
	ObserveNatives(dependency string, records []model.NativeArtifactRecord)
}

// Pipeline holds everything that stays fixed for one run.
type Pipeline struct {
	Prober   Prober
	Stager   Stager
	Resolver Resolver
	// Manifest, when set, supplies the full staging manifest for the report.
	// Otherwise the report holds only the entries appended by this run.
	Manifest *manifest.Store

	StagingRoot string
	Mapping     pathmap.Mapping
	SearchPaths probe.SearchPaths
	Target      model.PlatformDescriptor
	Policy      model.Policy
	Concurrency int
	Observer    Observer

	// ListFiles lists installed files relative to a probe location. It
	// defaults to fsutil.ListFiles.
	ListFiles func(root string) ([]string, error)
}

// Run processes deps and returns the report. The report is complete even
// when err is non-nil: cancelled dependencies carry the "cancelled" reason.
// err is non-nil when the run was cancelled or a staged path fell outside
// the mapping (wrapping pathmap.ErrPathOutOfScope).
func (p *Pipeline) Run(ctx context.Context, deps []model.DependencySpec) (model.PipelineReport, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("🚀 Verifying dependencies...", "count", len(deps), "concurrency", p.concurrency(), "target", p.Target.String())
	started := time.Now()

	store := inmemorystore.New()
	owners := assetOwners(deps)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency())

	for _, dep := range deps {
		if gctx.Err() != nil {
			logger.Debug("Dependency not dispatched, run is stopping.", "dependency", dep.Name)
			store.SetProbe(model.Failed(dep.Name, model.ReasonCancelled))
			continue
		}
		g.Go(func() error {
			return p.runDependency(gctx, dep, owners, store)
		})
	}
	runErr := g.Wait()

	report := p.assemble(store)
	logger.Info("🏁 Verification finished.", "ok", report.OK, "failures", len(report.Failures()), "elapsed", time.Since(started).Round(time.Millisecond))

	switch {
	case runErr != nil:
		return report, runErr
	case ctx.Err() != nil:
		return report, fmt.Errorf("pipeline cancelled: %w", ctx.Err())
	}
	return report, nil
}

func (p *Pipeline) runDependency(ctx context.Context, dep model.DependencySpec, owners map[model.AssetID]string, store *inmemorystore.Store) error {
	ctx = ctxlog.With(ctx, "dependency", dep.Name)
	logger := ctxlog.FromContext(ctx)

	if ctx.Err() != nil {
		store.SetProbe(model.Failed(dep.Name, model.ReasonCancelled))
		return nil
	}
	logger.Debug("Dependency task started.", "assets", len(dep.RequiredDataAssets), "native", dep.HasNativeComponents)

	var g errgroup.Group
	g.Go(func() error {
		started := time.Now()
		res := p.Prober.Probe(ctx, dep, p.SearchPaths)
		store.SetProbe(res)
		if p.Observer != nil {
			p.Observer.ObserveProbe(res, time.Since(started))
		}
		if !res.Loaded {
			logger.Warn("Import failed.", "reason", res.FailureReason)
			return nil
		}
		logger.Debug("Import succeeded.", "version", res.Version, "location", res.Location)

		if dep.HasNativeComponents && p.Resolver != nil {
			records := p.resolveNatives(ctx, dep, res)
			store.SetNatives(dep.Name, records)
			if p.Observer != nil {
				p.Observer.ObserveNatives(dep.Name, records)
			}
		}
		return nil
	})
	g.Go(func() error {
		owned := ownedAssets(dep, owners)
		if shared := len(dep.RequiredDataAssets) - len(owned.RequiredDataAssets); shared > 0 {
			logger.Debug("Shared assets are staged by their owning dependency.", "shared", shared)
		}
		if p.Stager == nil || len(owned.RequiredDataAssets) == 0 {
			return nil
		}
		entries, errs, err := p.Stager.Stage(ctx, owned, p.StagingRoot, p.Mapping)
		store.SetStaged(dep.Name, entries, errs)
		if err != nil {
			if errors.Is(err, pathmap.ErrPathOutOfScope) {
				logger.Error("Staged path is outside the runtime mapping.", "error", err)
			}
			return err
		}
		return nil
	})
	return g.Wait()
}

// assetOwners assigns every asset id to the lexicographically smallest
// dependency requiring it. Only the owner stages a shared id, so its
// directory and manifest entry do not depend on dispatch order.
func assetOwners(deps []model.DependencySpec) map[model.AssetID]string {
	owners := make(map[model.AssetID]string)
	for _, dep := range deps {
		for _, id := range dep.RequiredDataAssets {
			if owner, ok := owners[id]; !ok || dep.Name < owner {
				owners[id] = dep.Name
			}
		}
	}
	return owners
}

// ownedAssets returns dep restricted to the assets it owns, declared order
// kept.
func ownedAssets(dep model.DependencySpec, owners map[model.AssetID]string) model.DependencySpec {
	owned := make([]model.AssetID, 0, len(dep.RequiredDataAssets))
	for _, id := range dep.RequiredDataAssets {
		if owners[id] == dep.Name {
			owned = append(owned, id)
		}
	}
	dep.RequiredDataAssets = owned
	return dep
}

func (p *Pipeline) resolveNatives(ctx context.Context, dep model.DependencySpec, res model.ProbeResult) []model.NativeArtifactRecord {
	logger := ctxlog.FromContext(ctx)
	if res.Location == "" {
		logger.Warn("Native components declared but the package location is unknown.")
		return []model.NativeArtifactRecord{}
	}

	list := p.ListFiles
	if list == nil {
		list = fsutil.ListFiles
	}
	rel, err := list(res.Location)
	if err != nil {
		logger.Warn("Could not list installed files.", "location", res.Location, "error", err)
		return []model.NativeArtifactRecord{}
	}

	base := filepath.ToSlash(fsutil.BaseDir(res.Location))
	files := make([]string, 0, len(rel))
	for _, f := range rel {
		files = append(files, path.Join(base, f))
	}

	records := p.Resolver.Resolve(dep, files, p.Target)
	if len(records) == 0 {
		logger.Warn("Native components declared but no extension modules were found.", "location", res.Location)
	}
	for _, r := range records {
		if !r.MatchesTarget {
			logger.Warn("Native artifact does not match the target platform.",
				"file", r.FilePath, "built_for", model.PlatformDescriptor{ABITag: r.ABITag, PlatformTag: r.PlatformTag}.String(), "target", p.Target.String())
		}
	}
	return records
}

func (p *Pipeline) assemble(store *inmemorystore.Store) model.PipelineReport {
	report := model.PipelineReport{
		Probes:      store.Probes(),
		Natives:     store.Natives(),
		AssetErrors: store.AssetErrors(),
	}
	if p.Manifest != nil {
		report.Manifest = p.Manifest.Snapshot()
	} else {
		report.Manifest = model.StagingManifest{BundleRoot: p.StagingRoot, Entries: store.Staged()}
	}
	report.Normalize()
	report.Evaluate(p.Policy)
	return report
}

func (p *Pipeline) concurrency() int {
	if p.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return p.Concurrency
}
