// Package engine simulates the external MPC engine the matching protocol is
// built on.
//
// The protocol consumes four operations from its engine: dealing
// correlated-randomness instances during preprocessing, deriving per-node
// mask shares, computing a local share of a slot-wise product from two
// masked vectors, and reconstructing a plaintext vector from all shares.
// This package provides a local, trusted-dealer implementation of that
// contract; a production deployment would replace it with a distributed
// preprocessing protocol producing the same material.
//
// # Correlated randomness
//
// One Instance covers one secure slot-wise multiplication over a price
// domain of N slots. Per slot it holds a Beaver triple (alpha, beta,
// gamma = alpha*beta) split into additive shares across the nodes. The
// ask client's indicator vector is masked with alpha, the bid client's
// with beta; each node then derives its share of the product locally from
// the two public masked vectors and its triple shares. Summing all node
// shares yields the slot-wise product of the two plaintext vectors.
//
// Instances are strictly single-use: reusing a triple leaks a linear
// relation between the two masked inputs.
package engine
