// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

// UnknownVersion is reported when a loaded module exposes no version.
const UnknownVersion = "unknown"

// Canonical failure reasons shared by the probe and the pipeline.
const (
	ReasonModuleNotFound = "module not found"
	ReasonCancelled      = "cancelled"
)

// ProbeResult is the outcome of importing one dependency. One per dependency,
// immutable once produced.
type ProbeResult struct {
	Dependency    string `json:"dependency"`
	Loaded        bool   `json:"loaded"`
	Version       string `json:"version,omitempty"`
	FailureReason string `json:"failureReason,omitempty"`
	// Location is the directory the module was loaded from. Only set when
	// Loaded is true.
	Location string `json:"location,omitempty"`
}

// Failed builds a ProbeResult for a dependency that could not be loaded.
func Failed(dependency, reason string) ProbeResult {
	return ProbeResult{Dependency: dependency, FailureReason: reason}
}
