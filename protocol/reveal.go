package protocol

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/choosek/tinybook/engine"
)

// OutcomeShare is one node's share of the match indicator for one matched
// ask/bid pair. In isolation it is indistinguishable from uniform noise;
// only the full set of node shares reconstructs the outcome.
type OutcomeShare struct {
	NodeIndex int        `json:"node_index"`
	BatchID   uuid.UUID  `json:"batch_id"`
	Instance  int        `json:"instance"`
	Domain    int        `json:"domain"`
	NumNodes  int        `json:"num_nodes"`
	Shares    []*big.Int `json:"shares"`
}

// PriceRange is the public outcome of a successful match: the inclusive
// clearing range between the ask price and the bid price.
type PriceRange struct {
	Ask int `json:"ask"`
	Bid int `json:"bid"`
}

// Reveal reconstructs the public outcome from the outcome shares of every
// node. The result is nil when the bid price does not reach the ask price
// ("no match"), and the inclusive range [ask, bid] otherwise.
//
// Fails with ErrIncompleteShares unless exactly one share per node is
// present, with ErrDomainMismatch when shares from different batches or
// instances are mixed, and with ErrMalformedShares when the reconstructed
// vector is not a 0/1 vector with a single contiguous run of ones -
// the latter indicates a protocol or implementation defect, never a
// legitimate outcome.
func Reveal(shares []*OutcomeShare) (*PriceRange, error) {
	if len(shares) == 0 {
		return nil, fmt.Errorf("%w: no shares", ErrIncompleteShares)
	}

	first := shares[0]
	seen := make([]bool, first.NumNodes)
	vectors := make([][]*big.Int, 0, len(shares))

	for _, share := range shares {
		if share.BatchID != first.BatchID || share.Instance != first.Instance ||
			share.Domain != first.Domain || share.NumNodes != first.NumNodes {
			return nil, fmt.Errorf("%w: shares from different runs", ErrDomainMismatch)
		}
		if share.NodeIndex < 0 || share.NodeIndex >= first.NumNodes {
			return nil, fmt.Errorf("%w: unexpected node index %d", ErrIncompleteShares, share.NodeIndex)
		}
		if seen[share.NodeIndex] {
			return nil, fmt.Errorf("%w: duplicate share from node %d", ErrIncompleteShares, share.NodeIndex)
		}
		if len(share.Shares) != first.Domain {
			return nil, fmt.Errorf("%w: share from node %d has %d slots, domain is %d",
				ErrMalformedShares, share.NodeIndex, len(share.Shares), first.Domain)
		}
		seen[share.NodeIndex] = true
		vectors = append(vectors, share.Shares)
	}

	for node, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("%w: missing share from node %d", ErrIncompleteShares, node)
		}
	}

	plain, err := engine.Reconstruct(vectors)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedShares, err)
	}

	return rangeFromIndicator(plain)
}

// rangeFromIndicator validates the reconstructed indicator vector and
// extracts the matched range.
func rangeFromIndicator(plain []*big.Int) (*PriceRange, error) {
	one := big.NewInt(1)

	lo, hi := -1, -1
	for slot, value := range plain {
		switch {
		case value.Sign() == 0:
			if lo >= 0 && hi == -1 {
				hi = slot - 1
			}
		case value.Cmp(one) == 0:
			if lo == -1 {
				lo = slot
			} else if hi != -1 {
				// A second run of ones after the range already closed.
				return nil, fmt.Errorf("%w: non-contiguous indicator range", ErrMalformedShares)
			}
		default:
			return nil, fmt.Errorf("%w: slot %d reconstructed to %s", ErrMalformedShares, slot, value)
		}
	}

	if lo == -1 {
		return nil, nil // no match
	}
	if hi == -1 {
		hi = len(plain) - 1
	}

	return &PriceRange{Ask: lo, Bid: hi}, nil
}
