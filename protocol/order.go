package protocol

import (
	"fmt"
	"math/big"

	"github.com/choosek/tinybook/crypto"
)

// MaskedOrder is the broadcastable form of a sealed order: the price's
// indicator vector, element-wise combined with the mask shares of every
// node. Immutable once constructed. Any single node sees only its own mask
// share, so the vector reveals nothing about the price below full
// collusion.
type MaskedOrder struct {
	Role   Role         `json:"role"`
	Token  RequestToken `json:"token"`
	Vector []*big.Int   `json:"vector"`
}

// NewMaskedOrder builds a masked order from the mask sets gathered from
// every node for one token, in the agreed node ordering (mask set i must
// come from node i), and the client's private price.
//
// Fails with ErrInconsistentMaskSets when the mask sets disagree on token,
// domain, or ordering, and with ErrPriceOutOfRange for prices outside the
// domain.
func NewMaskedOrder(maskSets []*MaskSet, price int) (*MaskedOrder, error) {
	if len(maskSets) == 0 {
		return nil, fmt.Errorf("%w: no mask sets", ErrInconsistentMaskSets)
	}

	token := maskSets[0].Token
	if len(maskSets) != token.NumNodes {
		return nil, fmt.Errorf("%w: %d mask sets for %d nodes", ErrInconsistentMaskSets, len(maskSets), token.NumNodes)
	}

	for i, ms := range maskSets {
		if ms.Token != token {
			return nil, fmt.Errorf("%w: mask set %d drawn for a different token", ErrInconsistentMaskSets, i)
		}
		if ms.NodeIndex != i {
			return nil, fmt.Errorf("%w: mask set %d comes from node %d", ErrInconsistentMaskSets, i, ms.NodeIndex)
		}
		if len(ms.Masks) != token.Domain {
			return nil, fmt.Errorf("%w: mask set %d has %d slots, domain is %d", ErrInconsistentMaskSets, i, len(ms.Masks), token.Domain)
		}
	}

	vector, err := EncodePrice(token.Role, price, token.Domain)
	if err != nil {
		return nil, err
	}

	for _, ms := range maskSets {
		crypto.SumMaskVectorsInplace(vector, ms.Masks, crypto.MatchFieldOrder)
	}

	return &MaskedOrder{
		Role:   token.Role,
		Token:  token,
		Vector: vector,
	}, nil
}
