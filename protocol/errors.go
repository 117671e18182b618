package protocol

import "errors"

// Protocol-contract violations. All are local and non-retryable: they
// indicate caller misuse or an implementation defect, never a transient
// failure, and abort the affected request without corrupting other
// in-flight instances. Callers match them with errors.Is.
var (
	// ErrDomainMismatch reports artifacts from different price domains or
	// preprocessing batches being used together.
	ErrDomainMismatch = errors.New("price domain or batch mismatch")

	// ErrTokenAlreadyConsumed reports a second mask request for the same
	// (token, node) pair. Serving it would reuse a one-time pad.
	ErrTokenAlreadyConsumed = errors.New("token already consumed by this node")

	// ErrUnknownToken reports a token whose batch this node has no
	// material for.
	ErrUnknownToken = errors.New("unknown token")

	// ErrExhaustedBatch reports a request against a batch with no unused
	// correlated-randomness instance left.
	ErrExhaustedBatch = errors.New("preprocessed batch exhausted")

	// ErrRoleMismatch reports orders passed in the wrong role positions.
	ErrRoleMismatch = errors.New("order role mismatch")

	// ErrUnpairedTokens reports an ask/bid order pair whose tokens were not
	// allocated as a matching pair.
	ErrUnpairedTokens = errors.New("tokens are not a matched pair")

	// ErrInstanceAlreadyUsed reports a second outcome computation for the
	// same correlated-randomness instance. The multiplication triple is a
	// one-time consumable.
	ErrInstanceAlreadyUsed = errors.New("correlated-randomness instance already used")

	// ErrInstanceFailed reports an operation against an instance a failed
	// outcome computation has retired. Failure is terminal: the instance
	// serves no further masks or outcomes.
	ErrInstanceFailed = errors.New("correlated-randomness instance failed")

	// ErrInconsistentMaskSets reports an order built from mask sets with
	// mismatched tokens, domains, or node ordering.
	ErrInconsistentMaskSets = errors.New("inconsistent mask sets")

	// ErrIncompleteShares reports a reveal attempted without a share from
	// every node.
	ErrIncompleteShares = errors.New("outcome shares incomplete")

	// ErrMalformedShares reports reconstructed values outside {0,1} or a
	// non-contiguous indicator range. Either is a correctness bug, not a
	// legitimate outcome.
	ErrMalformedShares = errors.New("malformed outcome shares")

	// ErrPriceOutOfRange reports a price outside [0, domain).
	ErrPriceOutOfRange = errors.New("price outside the domain")
)
