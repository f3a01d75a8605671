// Package basis describes shell-structured function sets. A set is an
// ordered list of shells; each shell contributes a contiguous run of
// functions, and the shell list fixes the batching granularity of the
// integral loops.
package basis

import "fmt"

// Shell is one contiguous run of basis functions.
type Shell struct {
	// Index is the offset of the shell's first function in the set.
	Index int
	// NFunc is the number of functions the shell carries.
	NFunc int
}

// Set is an ordered collection of shells.
type Set struct {
	shells []Shell
	nbf    int
}

// New builds a set from per-shell function counts, assigning running
// offsets in order.
func New(nfuncs ...int) (*Set, error) {
	s := &Set{shells: make([]Shell, len(nfuncs))}
	for i, n := range nfuncs {
		if n <= 0 {
			return nil, fmt.Errorf("basis: shell %d has %d functions", i, n)
		}
		s.shells[i] = Shell{Index: s.nbf, NFunc: n}
		s.nbf += n
	}
	return s, nil
}

// MustNew is New for shell counts already known to be positive.
func MustNew(nfuncs ...int) *Set {
	s, err := New(nfuncs...)
	if err != nil {
		panic(err)
	}
	return s
}

// NShell returns the number of shells.
func (s *Set) NShell() int { return len(s.shells) }

// NBF returns the total number of basis functions.
func (s *Set) NBF() int { return s.nbf }

// Shell returns shell i.
func (s *Set) Shell(i int) Shell { return s.shells[i] }

// MaxNFunc returns the largest shell size, the unit for scratch sizing.
func (s *Set) MaxNFunc() int {
	max := 0
	for _, sh := range s.shells {
		if sh.NFunc > max {
			max = sh.NFunc
		}
	}
	return max
}
