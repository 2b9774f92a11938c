// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

import "fmt"

// StableABITag marks extensions built against the CPython limited API.
const StableABITag = "abi3"

// PlatformDescriptor names the interpreter ABI and platform that compiled
// extensions must be built for.
type PlatformDescriptor struct {
	ABITag      string `json:"abiTag"`
	PlatformTag string `json:"platformTag"`
}

// String renders the descriptor the same way extension filenames embed it.
func (p PlatformDescriptor) String() string {
	if p.PlatformTag == "" {
		return p.ABITag
	}
	return fmt.Sprintf("%s-%s", p.ABITag, p.PlatformTag)
}

// IsZero reports whether no target has been configured.
func (p PlatformDescriptor) IsZero() bool {
	return p.ABITag == "" && p.PlatformTag == ""
}

// NativeArtifactRecord describes one compiled file shipped inside a package.
type NativeArtifactRecord struct {
	Package       string `json:"package"`
	FilePath      string `json:"filePath"`
	ABITag        string `json:"abiTag"`
	PlatformTag   string `json:"platformTag"`
	MatchesTarget bool   `json:"matchesTarget"`
}
