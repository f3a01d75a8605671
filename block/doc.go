// Package block implements the symmetry-block bookkeeping shared by every
// tensor routine in this module: per-irrep dimensions, the XOR pair tables
// that lay out packed orbital-pair column spaces, and the Blocked matrix
// type that carries one dense slab per overall symmetry label.
//
// Orbitals partition into nirrep blocks. A two-index quantity of overall
// label h couples left block hL with right block hR exactly when
// hL^hR == h, and the packed column offset of each surviving (hL,hR) pair
// is fixed once, in ascending hL order, by a PairTable. Both freshly
// allocated tensors and sub-block lookups inside tensors produced elsewhere
// go through the same table, so two tensors built from equal dimensions
// always agree about layout.
package block
