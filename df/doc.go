// Package df builds and consumes density-fitted three-index tensors.
//
// The pipeline runs in stages: form the inverse square root of the
// fitting metric, generate b(Q|mn) = sum_P (mn|P) [J^-1/2]_PQ over the
// atomic basis, transform it through the symmetry-adapted basis into
// molecular orbital subsets, contract pairs of b tensors into four-index
// quantities, and finally assemble the three-center densities the
// gradient code consumes. Two fitting bases flow through the same code:
// a correlation set for amplitude contractions and a reference set for
// the one-density terms.
//
// All tensors are carried per overall symmetry label with composite
// column spaces laid out by block.PairTable; intermediate results are
// persisted by name through a store.Store.
package df
