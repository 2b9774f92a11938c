// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

import "strings"

// AssetID identifies an external data resource, e.g. a tokenizer model name.
// Identity is the string itself.
type AssetID string

// DependencySpec is a single dependency declared in the layer manifest.
type DependencySpec struct {
	// Name is the distribution name. It names the staging subdirectory and is
	// used for metadata version lookups.
	Name string `json:"name"`
	// Module is the import name. Empty means ImportName derives it from Name.
	Module string `json:"module,omitempty"`
	// Imports lists extra submodules that must import as well.
	Imports []string `json:"imports,omitempty"`
	// RequiredDataAssets are fetched in this order.
	RequiredDataAssets []AssetID `json:"requiredDataAssets,omitempty"`
	// HasNativeComponents enables ABI checks of compiled extensions.
	HasNativeComponents bool `json:"hasNativeComponents"`
	// AssetSource names the source serving RequiredDataAssets.
	AssetSource string `json:"assetSource,omitempty"`
}

// ImportName returns the module name used to import the dependency.
func (d DependencySpec) ImportName() string {
	if d.Module != "" {
		return d.Module
	}
	return strings.ReplaceAll(d.Name, "-", "_")
}
