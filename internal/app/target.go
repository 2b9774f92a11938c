package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/layerstage/internal/model"
	"github.com/specialistvlad/layerstage/internal/native"
	"github.com/specialistvlad/layerstage/internal/probe"
)

// resolveTarget turns the platform block into a descriptor. Without a
// platform block the interpreter is asked, but only when some dependency
// ships native code.
func (a *App) resolveTarget(ctx context.Context, prober *probe.Prober) (model.PlatformDescriptor, error) {
	p := a.layer.Platform
	switch {
	case p.Tag != "":
		d, err := native.ParseTag(p.Tag)
		if err != nil {
			return d, fmt.Errorf("platform tag: %w", err)
		}
		if native.MissingLibc(d) {
			a.logger.Warn("Platform tag names Linux without a libc suffix, CPython extension files end in -gnu or -musl.",
				"tag", p.Tag, "did_you_mean", p.Tag+"-gnu")
		}
		return d, nil
	case p.ExtSuffix != "":
		d, err := native.ParseExtSuffix(p.ExtSuffix)
		if err != nil {
			return d, fmt.Errorf("platform ext_suffix: %w", err)
		}
		return d, nil
	case p.Detect || a.needsTarget():
		suffix, err := prober.DetectExtSuffix(ctx)
		if err != nil {
			return model.PlatformDescriptor{}, fmt.Errorf("detect target platform: %w", err)
		}
		d, err := native.ParseExtSuffix(suffix)
		if err != nil {
			return d, fmt.Errorf("detect target platform: %w", err)
		}
		a.logger.Debug("Target platform detected from interpreter.", "ext_suffix", suffix, "target", d.String())
		return d, nil
	default:
		return model.PlatformDescriptor{}, nil
	}
}

func (a *App) needsTarget() bool {
	for _, d := range a.layer.Dependencies {
		if d.HasNativeComponents {
			return true
		}
	}
	return false
}
