// Package hcl_adapter loads layer manifests written in HCL into the
// format-agnostic config.Model.
package hcl_adapter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/layerstage/internal/config"
	"github.com/specialistvlad/layerstage/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	// Env backs the `env` variable. nil means the process environment.
	Env map[string]string
}

// NewLoader creates a new HCL configuration loader.
func NewLoader(env map[string]string) *Loader {
	return &Loader{Env: env}
}

// Load parses every .hcl file found under paths and merges their blocks into
// one model. Blocks that describe the layer as a whole (layer, platform,
// policy, settings) may appear only once across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(hclFiles) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	env := l.Env
	if env == nil {
		env = processEnv()
	}
	evalCtx := newEvalContext(env)
	parser := hclparse.NewParser()

	var merged fileRoot
	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		merged.Layers = append(merged.Layers, root.Layers...)
		merged.Mappings = append(merged.Mappings, root.Mappings...)
		merged.Platforms = append(merged.Platforms, root.Platforms...)
		merged.Policies = append(merged.Policies, root.Policies...)
		merged.Settings = append(merged.Settings, root.Settings...)
		merged.Sources = append(merged.Sources, root.Sources...)
		merged.Dependencies = append(merged.Dependencies, root.Dependencies...)
	}

	m, err := l.translate(ctx, &merged)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layer manifest: %w", err)
	}

	logger.Debug("HCL loading complete.", "dependencies", len(m.Dependencies), "asset_sources", len(m.Sources), "mappings", len(m.Mappings)+1)
	return m, nil
}

func (l *Loader) translate(ctx context.Context, root *fileRoot) (*config.Model, error) {
	m := config.NewModel()

	switch len(root.Layers) {
	case 0:
		return nil, errors.New("a layer block is required")
	case 1:
		m.Layer = translateLayer(root.Layers[0])
	default:
		return nil, fmt.Errorf("found %d layer blocks, expected exactly one", len(root.Layers))
	}
	if len(root.Platforms) > 1 || len(root.Policies) > 1 || len(root.Settings) > 1 {
		return nil, errors.New("platform, policy and settings blocks may each appear at most once")
	}

	for _, b := range root.Mappings {
		m.Mappings = append(m.Mappings, translateMapping(b))
	}
	if len(root.Platforms) == 1 {
		m.Platform = translatePlatform(root.Platforms[0])
	}
	if len(root.Policies) == 1 {
		m.Policy = translatePolicy(root.Policies[0])
	}
	if len(root.Settings) == 1 {
		s, err := translateSettings(root.Settings[0])
		if err != nil {
			return nil, err
		}
		m.Settings = s
	}
	for _, b := range root.Sources {
		if _, dup := m.Sources[b.Name]; dup {
			return nil, fmt.Errorf("asset_source %q is declared more than once", b.Name)
		}
		src, err := translateSource(b)
		if err != nil {
			return nil, err
		}
		m.Sources[b.Name] = src
	}
	for _, b := range root.Dependencies {
		m.Dependencies = append(m.Dependencies, translateDependency(ctx, b))
	}
	return m, nil
}

// findAllHCLFiles walks all given paths and returns a sorted list of all .hcl
// files found. Unlike directories, a missing path is an error.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && filepath.Ext(p) == ".hcl" {
					if _, wasSeen := seen[p]; !wasSeen {
						allFiles = append(allFiles, p)
						seen[p] = struct{}{}
					}
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if _, wasSeen := seen[path]; !wasSeen {
			allFiles = append(allFiles, path)
			seen[path] = struct{}{}
		}
	}
	sort.Strings(allFiles)
	return allFiles, nil
}
