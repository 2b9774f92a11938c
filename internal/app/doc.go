// Package app wires a loaded layer manifest to the verification pipeline:
// it resolves the target platform, builds fetchers and the probe, runs the
// pipeline and writes the report, report file and metrics file.
package app
