// Package crypto provides cryptographic primitives for the sealed-bid
// matching workflow.
//
// This package implements the low-level operations required by the
// order-matching protocol, including:
//
//   - Field arithmetic for finite field operations (indicator vectors,
//     mask shares, outcome shares)
//   - Deterministic mask-vector expansion from per-node seeds
//   - Digital signatures (Ed25519) for authenticating service messages
//
// The crypto package provides low-level primitives that are used by the
// engine and protocol packages.
// Note: field operations are not constant-time.
//
// # Field Operations
//
// All protocol values live in a single prime field:
//   - MatchFieldOrder: a 127-bit prime field for indicator-vector arithmetic
//
// # Masking
//
// Mask vectors are expanded deterministically from seeds (DeriveMaskVector),
// so a node's slice of a dealt instance can be reproduced from its seed
// without shipping every element.
package crypto
