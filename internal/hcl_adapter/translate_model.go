// This file contains the logic for translating HCL schema structs into the
// format-agnostic configuration model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/specialistvlad/layerstage/internal/asset"
	"github.com/specialistvlad/layerstage/internal/config"
	"github.com/specialistvlad/layerstage/internal/ctxlog"
	"github.com/specialistvlad/layerstage/internal/model"
	"github.com/specialistvlad/layerstage/internal/pathmap"
)

func translateLayer(b *LayerBlock) config.Layer {
	return config.Layer{
		Runtime:       b.Runtime,
		StagingRoot:   b.StagingRoot,
		RuntimePrefix: b.RuntimePrefix,
		Interpreter:   b.Interpreter,
		SearchPaths:   b.SearchPaths,
	}
}

func translateMapping(b *MappingBlock) pathmap.Mapping {
	return pathmap.Mapping{BuildPrefix: b.BuildPrefix, RuntimePrefix: b.RuntimePrefix}
}

func translatePlatform(b *PlatformBlock) config.Platform {
	return config.Platform{Tag: b.Tag, ExtSuffix: b.ExtSuffix, Detect: b.Detect}
}

func translatePolicy(b *PolicyBlock) model.Policy {
	strict := true
	if b.Strict != nil {
		strict = *b.Strict
	}
	pick := func(v *bool) bool {
		if v != nil {
			return *v
		}
		return strict
	}
	return model.Policy{
		FailOnImport:         pick(b.FailOnImport),
		FailOnAsset:          pick(b.FailOnAsset),
		FailOnNativeMismatch: pick(b.FailOnNativeMismatch),
	}
}

func translateSettings(b *SettingsBlock) (config.Settings, error) {
	var s config.Settings
	var err error
	if b.Concurrency != nil {
		s.Concurrency = *b.Concurrency
	}
	if b.FetchRetries != nil {
		s.FetchRetries = *b.FetchRetries
		if s.FetchRetries == 0 {
			s.FetchRetries = -1
		}
	}
	if s.ProbeTimeout, err = parseDuration("probe_timeout", b.ProbeTimeout); err != nil {
		return s, err
	}
	if s.FetchTimeout, err = parseDuration("fetch_timeout", b.FetchTimeout); err != nil {
		return s, err
	}
	if s.Backoff, err = parseDuration("backoff", b.Backoff); err != nil {
		return s, err
	}
	s.NativePatterns = b.NativePatterns
	return s, nil
}

func translateSource(b *AssetSourceBlock) (asset.SourceConfig, error) {
	cfg := asset.SourceConfig{
		Name:     b.Name,
		Type:     b.Type,
		Paths:    b.Paths,
		BaseURL:  b.BaseURL,
		Endpoint: b.Endpoint,
		Bucket:   b.Bucket,
		Prefix:   b.Prefix,
		Region:   b.Region,
		UseSSL:   true,
	}
	if cfg.Type == "" {
		cfg.Type = asset.SourceHTTP
	}
	if b.UseSSL != nil {
		cfg.UseSSL = *b.UseSSL
	}
	switch cfg.Type {
	case asset.SourceHTTP:
		if cfg.BaseURL == "" {
			return cfg, fmt.Errorf("asset_source %q: base_url is required", b.Name)
		}
	case asset.SourceS3:
		if cfg.Endpoint == "" || cfg.Bucket == "" {
			return cfg, fmt.Errorf("asset_source %q: endpoint and bucket are required", b.Name)
		}
	default:
		return cfg, fmt.Errorf("asset_source %q: unknown type %q", b.Name, cfg.Type)
	}
	return cfg, nil
}

func translateDependency(ctx context.Context, b *DependencyBlock) model.DependencySpec {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Translating HCL dependency to internal config model.", "dependency", b.Name)

	assets := make([]model.AssetID, 0, len(b.DataAssets))
	for _, a := range b.DataAssets {
		assets = append(assets, model.AssetID(a))
	}
	return model.DependencySpec{
		Name:                b.Name,
		Module:              b.Module,
		Imports:             b.Imports,
		RequiredDataAssets:  assets,
		HasNativeComponents: b.Native,
		AssetSource:         b.AssetSource,
	}
}
