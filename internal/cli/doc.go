// Package cli turns the command line into an app.Config. It owns the
// `verify` command, its flags and the process exit codes.
package cli
