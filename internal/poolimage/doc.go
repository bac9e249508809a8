// Package poolimage implements a traversal service over an on-disk pool image.
//
// A pool image is a directory tree: the root holds one directory per pool,
// and every nested directory carrying a dataset manifest is a child dataset.
// A manifest lists the dataset's block pointers in pre-order, optionally per
// snapshot, and may mark damaged nodes with a fault so recovery paths can be
// exercised. Manifests may be stored plain or zstd, lz4 or snappy compressed.
package poolimage
