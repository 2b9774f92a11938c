// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

import (
	"cmp"
	"slices"
)

// PipelineReport aggregates one pipeline run.
type PipelineReport struct {
	Probes      []ProbeResult          `json:"probes"`
	Manifest    StagingManifest        `json:"manifest"`
	Natives     []NativeArtifactRecord `json:"natives"`
	AssetErrors []AssetFetchError      `json:"assetErrors"`
	OK          bool                   `json:"ok"`
}

// Normalize sorts every collection into its canonical order. Reports that
// hold the same facts are equal after Normalize.
func (r *PipelineReport) Normalize() {
	slices.SortFunc(r.Probes, func(a, b ProbeResult) int {
		return cmp.Compare(a.Dependency, b.Dependency)
	})
	slices.SortFunc(r.Manifest.Entries, func(a, b ManifestEntry) int {
		return cmp.Or(cmp.Compare(a.Dependency, b.Dependency), cmp.Compare(a.BuildPath, b.BuildPath))
	})
	slices.SortFunc(r.Natives, func(a, b NativeArtifactRecord) int {
		return cmp.Or(cmp.Compare(a.Package, b.Package), cmp.Compare(a.FilePath, b.FilePath))
	})
	slices.SortFunc(r.AssetErrors, func(a, b AssetFetchError) int {
		return cmp.Or(cmp.Compare(a.Dependency, b.Dependency), cmp.Compare(a.Asset, b.Asset))
	})
}

// Evaluate computes OK under the given policy and stores it on the report.
func (r *PipelineReport) Evaluate(p Policy) bool {
	ok := true
	if p.FailOnImport {
		for _, pr := range r.Probes {
			if !pr.Loaded {
				ok = false
			}
		}
	}
	if p.FailOnAsset && len(r.AssetErrors) > 0 {
		ok = false
	}
	if p.FailOnNativeMismatch {
		for _, n := range r.Natives {
			if !n.MatchesTarget {
				ok = false
			}
		}
	}
	r.OK = ok
	return ok
}

// Failures lists every recorded failure as "dependency: reason" lines, in
// canonical order.
func (r *PipelineReport) Failures() []string {
	var out []string
	for _, pr := range r.Probes {
		if !pr.Loaded {
			out = append(out, pr.Dependency+": "+pr.FailureReason)
		}
	}
	for _, e := range r.AssetErrors {
		out = append(out, e.Dependency+": asset "+string(e.Asset)+": "+e.Reason)
	}
	for _, n := range r.Natives {
		if !n.MatchesTarget {
			out = append(out, n.Package+": native artifact "+n.FilePath+" built for "+
				PlatformDescriptor{ABITag: n.ABITag, PlatformTag: n.PlatformTag}.String())
		}
	}
	return out
}
