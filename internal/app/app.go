package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/layerstage/internal/config"
	"github.com/specialistvlad/layerstage/internal/ctxlog"
	"github.com/specialistvlad/layerstage/internal/hcl_adapter"
	"github.com/specialistvlad/layerstage/internal/pipeline"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	layer      *config.Model
	env        map[string]string
	prober     pipeline.Prober
	httpClient *http.Client
}

// Option customizes an App; mostly useful for tests.
type Option func(*options)

type options struct {
	loader     config.Loader
	prober     pipeline.Prober
	httpClient *http.Client
}

// WithLoader replaces the HCL manifest loader.
func WithLoader(l config.Loader) Option { return func(o *options) { o.loader = l } }

// WithProber replaces the interpreter-backed import probe.
func WithProber(p pipeline.Prober) Option { return func(o *options) { o.prober = p } }

// WithHTTPClient sets the client used by HTTP asset sources.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.httpClient = c } }

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger. Reports are written
// to outW and logs to logW. Any error is a configuration error.
func NewApp(outW, logW io.Writer, appConfig *Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	env, err := loadEnv(appConfig.EnvFile)
	if err != nil {
		return nil, err
	}

	logger := newLogger(
		firstNonEmpty(appConfig.LogLevel, env[EnvLogLevel], "info"),
		firstNonEmpty(appConfig.LogFormat, env[EnvLogFormat], "text"),
		logW,
	)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if o.loader == nil {
		o.loader = hcl_adapter.NewLoader(env)
	}
	layer, err := o.loader.Load(ctx, appConfig.LayerPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded and translated into unified model.", "dependencies", len(layer.Dependencies))

	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}

	return &App{
		outW:       outW,
		logger:     logger,
		config:     appConfig,
		layer:      layer,
		env:        env,
		prober:     o.prober,
		httpClient: o.httpClient,
	}, nil
}

// Layer returns the loaded layer manifest. This is primarily for testing.
func (a *App) Layer() *config.Model {
	return a.layer
}
