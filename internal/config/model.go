package config

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/specialistvlad/layerstage/internal/asset"
	"github.com/specialistvlad/layerstage/internal/model"
	"github.com/specialistvlad/layerstage/internal/pathmap"
)

// DefaultRuntimePrefixRoot is joined with the runtime name when no runtime
// prefix is configured, giving e.g. "/opt/python".
const DefaultRuntimePrefixRoot = "/opt"

// Model is the unified representation of one layer manifest.
type Model struct {
	Layer        Layer
	Mappings     []pathmap.Mapping // in addition to the layer's own mapping
	Platform     Platform
	Policy       model.Policy
	Settings     Settings
	Sources      map[string]asset.SourceConfig
	Dependencies []model.DependencySpec
}

// Layer is the `layer` block.
type Layer struct {
	Runtime       string
	StagingRoot   string
	RuntimePrefix string
	Interpreter   string
	// SearchPaths are extra import roots; relative entries are resolved
	// against StagingRoot.
	SearchPaths []string
}

// Platform selects the target platform descriptor. At most one of Tag,
// ExtSuffix and Detect is set; none means no native checks are possible.
type Platform struct {
	Tag       string
	ExtSuffix string
	Detect    bool
}

// Settings holds tuning knobs. Zero values select package defaults.
type Settings struct {
	Concurrency  int
	ProbeTimeout time.Duration
	FetchTimeout time.Duration
	// FetchRetries follows asset.Stager.Retries: negative disables retries.
	FetchRetries   int
	Backoff        time.Duration
	NativePatterns []string
}

// NewModel returns a model with defaults applied.
func NewModel() *Model {
	return &Model{
		Policy:  model.Strict(),
		Sources: map[string]asset.SourceConfig{},
	}
}

// PrimaryMapping maps the staging root onto the runtime prefix.
func (m *Model) PrimaryMapping() pathmap.Mapping {
	return pathmap.Mapping{
		BuildPrefix:   filepath.ToSlash(m.Layer.StagingRoot),
		RuntimePrefix: m.Layer.RuntimePrefix,
	}
}

// Table builds the full mapping table, primary mapping first.
func (m *Model) Table() (*pathmap.Table, error) {
	all := append([]pathmap.Mapping{m.PrimaryMapping()}, m.Mappings...)
	return pathmap.NewTable(all...)
}

// SearchPathList returns the import roots in resolution order: the staging
// root, then the configured extra paths.
func (m *Model) SearchPathList() []string {
	out := []string{m.Layer.StagingRoot}
	for _, p := range m.Layer.SearchPaths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(m.Layer.StagingRoot, p)
		}
		out = append(out, p)
	}
	return out
}

// Validate checks cross-references and fills derived defaults. It returns
// every problem found, joined.
func (m *Model) Validate() error {
	var errs []error

	if m.Layer.Runtime == "" {
		m.Layer.Runtime = "python"
	}
	if m.Layer.StagingRoot == "" {
		errs = append(errs, errors.New("layer: staging_root is required"))
	} else if !filepath.IsAbs(m.Layer.StagingRoot) {
		errs = append(errs, fmt.Errorf("layer: staging_root %q must be absolute", m.Layer.StagingRoot))
	}
	if m.Layer.RuntimePrefix == "" {
		m.Layer.RuntimePrefix = path.Join(DefaultRuntimePrefixRoot, m.Layer.Runtime)
	}
	if m.Layer.Interpreter == "" {
		m.Layer.Interpreter = "python3"
	}

	set := 0
	for _, on := range []bool{m.Platform.Tag != "", m.Platform.ExtSuffix != "", m.Platform.Detect} {
		if on {
			set++
		}
	}
	if set > 1 {
		errs = append(errs, errors.New("platform: set only one of tag, ext_suffix and detect"))
	}

	if m.Settings.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("settings: concurrency must not be negative, got %d", m.Settings.Concurrency))
	}

	seen := map[string]bool{}
	for _, d := range m.Dependencies {
		if seen[d.Name] {
			errs = append(errs, fmt.Errorf("dependency %q is declared more than once", d.Name))
		}
		seen[d.Name] = true
		if len(d.RequiredDataAssets) == 0 {
			continue
		}
		if d.AssetSource == "" {
			errs = append(errs, fmt.Errorf("dependency %q: data_assets requires asset_source", d.Name))
		} else if _, ok := m.Sources[d.AssetSource]; !ok {
			errs = append(errs, fmt.Errorf("dependency %q: unknown asset_source %q", d.Name, d.AssetSource))
		}
	}

	if len(errs) == 0 {
		if _, err := m.Table(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
