package df

import "errors"

var (
	// ErrSymmetry reports an operand carrying a nontrivial overall
	// symmetry label where only totally symmetric ones are handled.
	ErrSymmetry = errors.New("df: operand is not totally symmetric")

	// ErrShape reports operands that disagree about a contraction
	// dimension.
	ErrShape = errors.New("df: operand shape mismatch")
)
