// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model holds the plain data types shared by every stage of the
// layer verification pipeline. Nothing in this package performs I/O.
//
// # Core Concepts
//
//   - DependencySpec: one declared dependency of a bundle, as read from the
//     layer manifest. Immutable for the duration of a run.
//
//   - ProbeResult: the outcome of trying to import a dependency from the
//     staged bundle. Failures are values, never errors.
//
//   - ManifestEntry: one staged data asset, carrying both the build-time path
//     and the path the asset will have once the layer is mounted at runtime.
//
//   - NativeArtifactRecord: one compiled extension found inside an installed
//     package, with its parsed ABI/platform tag and whether it matches the
//     target platform.
//
//   - PipelineReport: the aggregate of all of the above plus the overall
//     pass/fail verdict under a Policy.
//
// Every slice in a PipelineReport is kept in a canonical order so that two
// runs over the same inputs compare equal no matter how the worker pool
// scheduled them.
package model
