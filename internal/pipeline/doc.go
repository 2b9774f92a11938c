// Package pipeline verifies and stages a list of dependencies against one
// staging root and aggregates the outcome into a single report.
//
// Each dependency is one task on a bounded worker pool. Inside a task the
// import probe and the asset stager run side by side; the native resolver
// runs once the probe has located the installed package. A failing
// dependency never stops the others: every failure is a value in the report.
// The only error Run returns besides cancellation is a path that falls
// outside the configured mapping, which is a configuration defect.
package pipeline
