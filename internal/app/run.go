package app

import (
	"context"
	"fmt"
	"os"

	"github.com/specialistvlad/layerstage/internal/asset"
	"github.com/specialistvlad/layerstage/internal/ctxlog"
	"github.com/specialistvlad/layerstage/internal/manifest"
	"github.com/specialistvlad/layerstage/internal/metrics"
	"github.com/specialistvlad/layerstage/internal/model"
	"github.com/specialistvlad/layerstage/internal/native"
	"github.com/specialistvlad/layerstage/internal/pipeline"
	"github.com/specialistvlad/layerstage/internal/probe"
	"github.com/specialistvlad/layerstage/internal/report"
)

// Run verifies and stages the layer, writes the report, and returns it.
//
// A non-nil error either wraps context cancellation, in which case the
// returned report is complete but carries "cancelled" entries, or signals a
// configuration problem detected before or during the run.
func (a *App) Run(ctx context.Context) (model.PipelineReport, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	p, recorder, err := a.buildPipeline(ctx)
	if err != nil {
		return model.PipelineReport{}, err
	}

	rep, runErr := p.Run(ctx, a.layer.Dependencies)
	recorder.RecordReport(rep)

	if err := report.Write(a.outW, rep, a.config.Output); err != nil {
		return rep, err
	}
	if a.config.ReportFile != "" {
		if err := report.WriteFile(a.config.ReportFile, rep); err != nil {
			return rep, err
		}
		a.logger.Debug("Report written.", "path", a.config.ReportFile)
	}
	if a.config.MetricsFile != "" {
		if err := recorder.WriteTextfile(a.config.MetricsFile); err != nil {
			return rep, err
		}
		a.logger.Debug("Metrics written.", "path", a.config.MetricsFile)
	}

	if runErr != nil {
		return rep, runErr
	}
	for _, f := range rep.Failures() {
		a.logger.Warn("Recorded failure.", "failure", f)
	}
	a.logger.Debug("App.Run method finished.")
	return rep, nil
}

// buildPipeline wires every component from the loaded manifest. Errors here
// are configuration errors; nothing has been probed or fetched yet.
func (a *App) buildPipeline(ctx context.Context) (*pipeline.Pipeline, *metrics.Recorder, error) {
	layer := a.layer
	settings := layer.Settings

	root := layer.Layer.StagingRoot
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("staging root: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("staging root %s is not a directory", root)
	}

	if _, err := layer.Table(); err != nil {
		return nil, nil, err
	}

	store, err := manifest.Load(root)
	if err != nil {
		return nil, nil, err
	}
	a.logger.Debug("Staging manifest loaded.", "path", store.Path(), "entries", len(store.Snapshot().Entries))

	interpreter := probe.New(layer.Layer.Interpreter, settings.ProbeTimeout)
	target, err := a.resolveTarget(ctx, interpreter)
	if err != nil {
		return nil, nil, err
	}

	recorder := metrics.NewRecorder()

	fetchers := make(map[string]asset.Fetcher, len(layer.Sources))
	for name, src := range layer.Sources {
		f, err := asset.NewFetcher(withCredentials(src, a.env), a.httpClient)
		if err != nil {
			return nil, nil, err
		}
		fetchers[name] = f
	}

	resolver, err := native.NewResolver(settings.NativePatterns...)
	if err != nil {
		return nil, nil, err
	}

	var prober pipeline.Prober = interpreter
	if a.prober != nil {
		prober = a.prober
	}

	concurrency := settings.Concurrency
	if a.config.Concurrency > 0 {
		concurrency = a.config.Concurrency
	}

	a.logger.Info("📋 Layer manifest loaded.",
		"dependencies", len(layer.Dependencies),
		"staging_root", root,
		"runtime_prefix", layer.Layer.RuntimePrefix,
		"target", target.String(),
	)

	return &pipeline.Pipeline{
		Prober: prober,
		Stager: &asset.Stager{
			Manifest: store,
			Fetchers: fetchers,
			Retries:  settings.FetchRetries,
			Backoff:  settings.Backoff,
			Timeout:  settings.FetchTimeout,
			Observer: recorder,
		},
		Resolver:    resolver,
		Manifest:    store,
		StagingRoot: root,
		Mapping:     layer.PrimaryMapping(),
		SearchPaths: probe.NewSearchPaths(layer.SearchPathList()...),
		Target:      target,
		Policy:      layer.Policy,
		Concurrency: concurrency,
		Observer:    recorder,
	}, recorder, nil
}
