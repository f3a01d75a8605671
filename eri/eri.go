// Package eri supplies shell-batched two- and three-center repulsion
// integrals. Production backends wrap an external integral engine; the
// fitted model in this package generates deterministic integrals whose
// density fitting is exact, which pins down every contraction downstream.
package eri

import "godct/basis"

// Computer evaluates integral batches over shells. A Computer is not safe
// for concurrent use; each worker obtains its own from a Factory.
type Computer interface {
	// TwoCenter fills (P|Q) for auxiliary shells P and Q. The buffer is
	// p-major: element [p*nq + q]. Valid until the next call.
	TwoCenter(P, Q int) []float64
	// ThreeCenter fills (P|mn) for auxiliary shell P and primary shells
	// M, N. The buffer runs p-major, then m, then n: [p*nm*nn + m*nn + n].
	// Valid until the next call.
	ThreeCenter(P, M, N int) []float64
}

// Factory mints Computers. Implementations must allow New from multiple
// goroutines; the returned Computers are then confined to one goroutine
// each.
type Factory interface {
	New() Computer
	Primary() *basis.Set
	Auxiliary() *basis.Set
}
