// Package config defines the format-agnostic description of a layer: where
// it is staged, how build paths map to runtime paths, which platform it
// targets, and which dependencies it must carry.
//
// The config.Model is the single source of truth for the app package.
// Concrete loaders, such as the HCL one, live in separate packages.
package config
