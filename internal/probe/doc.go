// Package probe verifies that declared dependencies import from the staged
// bundle.
//
// Every probe starts a fresh interpreter process in isolated mode, so the
// only third-party code it can see is what lives on the explicit search
// paths handed to it. A process per probe is also the isolation boundary: a
// module that fails halfway through its initialization cannot leave state
// behind that affects the next probe.
//
// Probe never returns an error. Every failure, including a crash of the
// interpreter or of the probe itself, is classified into a
// model.ProbeResult so that a run over dozens of dependencies always reports
// all of them.
package probe
