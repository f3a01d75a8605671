package block

import "errors"

var (
	// ErrIrrepMismatch reports operands that disagree about the number of
	// irreducible representations.
	ErrIrrepMismatch = errors.New("block: irrep counts differ")

	// ErrDimensionMismatch reports operands whose per-block extents or
	// packed totals disagree. Always fatal; never retried.
	ErrDimensionMismatch = errors.New("block: dimension mismatch")

	// ErrSymmetry reports an operand carrying a nontrivial overall
	// symmetry label where only totally-symmetric operands are supported.
	ErrSymmetry = errors.New("block: operand is not totally symmetric")
)
