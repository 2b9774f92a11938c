// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

// Policy decides which recorded failure classes make a report fail.
// Path scope violations are not listed: they are always fatal and never
// reach a report.
type Policy struct {
	FailOnImport         bool `json:"failOnImport"`
	FailOnAsset          bool `json:"failOnAsset"`
	FailOnNativeMismatch bool `json:"failOnNativeMismatch"`
}

// Strict treats every recorded failure as build-blocking. It is the default.
func Strict() Policy {
	return Policy{FailOnImport: true, FailOnAsset: true, FailOnNativeMismatch: true}
}
