// Package asset stages external data assets (tokenizer models, corpora,
// lexicons) that dependencies expect to find on disk at runtime.
//
// Assets for a dependency are fetched one at a time in declared order into
// <stagingRoot>/<dependency>/<asset>, retried with exponential backoff on
// transient failures, and recorded in the staging manifest together with the
// path they will have once the layer is mounted. Assets already recorded in
// the manifest are never fetched again.
package asset
