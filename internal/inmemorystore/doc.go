// Package inmemorystore provides a thread-safe, in-memory store for the
// per-dependency results of one pipeline run. It is ephemeral: a fresh Store
// is created for every run and discarded once the report is assembled.
package inmemorystore
