// Package comphist computes per-compression-algorithm space statistics for
// datasets and pools.
//
// It resolves a target into the datasets it covers, walks each dataset's
// block tree through a traversal Service, and accumulates every visited
// block into a fixed-size Histogram indexed by CompressionID. Damaged trees
// can be scanned in best-effort mode, where recoverable traversal errors are
// skipped by advancing a Checkpoint past the failing position.
package comphist
