// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

// ManifestEntry records one staged data asset.
type ManifestEntry struct {
	AssetID     AssetID `json:"assetId"`
	Dependency  string  `json:"dependency"`
	BuildPath   string  `json:"buildPath"`
	RuntimePath string  `json:"runtimePath"`
	SizeBytes   int64   `json:"sizeBytes"`
}

// StagingManifest is the persisted, append-only record of staged assets.
type StagingManifest struct {
	BundleRoot string          `json:"bundleRoot"`
	Entries    []ManifestEntry `json:"entries"`
}

// AssetFetchError records an asset that could not be staged.
type AssetFetchError struct {
	Dependency string  `json:"dependency"`
	Asset      AssetID `json:"asset"`
	Reason     string  `json:"reason"`
}
