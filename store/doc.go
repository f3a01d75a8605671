// Package store persists named blocked tensors between pipeline stages.
//
// Tensors are serialized per layout: Full keeps the single slab verbatim,
// LowerTriangle packs the lower triangle of each square diagonal slab, and
// SubBlocks writes every slab back to back. A tensor saved under a layout
// must be loaded under the same layout; values round-trip bit exactly.
//
// Three drivers share the Store interface: an in-process map for tests, a
// directory of flat files, and a Badger key-value database for runs that
// outlive a single process.
package store
