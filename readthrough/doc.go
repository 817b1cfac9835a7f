// Package readthrough computes derived artifacts on cache misses and writes
// them back, collapsing concurrent misses for the same key within a process
// into a single computation.
//
// Read errors from the cache are treated as the cache being unavailable:
// the artifact is computed and returned anyway. Write-back failures are
// logged and otherwise ignored.
package readthrough
