package protocol

import (
	"fmt"
	"math/big"
)

// Role distinguishes the two sides of a matching run.
type Role string

const (
	// RoleAsk marks the selling side. An ask at price p accepts any
	// clearing slot at or above p.
	RoleAsk Role = "ask"

	// RoleBid marks the buying side. A bid at price p accepts any clearing
	// slot at or below p.
	RoleBid Role = "bid"
)

// Valid returns true if the role is recognized.
func (r Role) Valid() bool {
	return r == RoleAsk || r == RoleBid
}

// EncodePrice maps a price to its monotone indicator vector over the price
// domain: one field element per slot, 1 on the slots the order accepts and
// 0 elsewhere. The slot-wise product of an ask vector and a bid vector is 1
// exactly on the inclusive range [askPrice, bidPrice].
//
// Pure and deterministic; fails with ErrPriceOutOfRange for prices outside
// [0, domain).
func EncodePrice(role Role, price, domain int) ([]*big.Int, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrRoleMismatch, role)
	}
	if price < 0 || price >= domain {
		return nil, fmt.Errorf("%w: price %d, domain [0, %d)", ErrPriceOutOfRange, price, domain)
	}

	vector := make([]*big.Int, domain)
	for slot := range vector {
		accepts := slot >= price
		if role == RoleBid {
			accepts = slot <= price
		}
		if accepts {
			vector[slot] = big.NewInt(1)
		} else {
			vector[slot] = big.NewInt(0)
		}
	}
	return vector, nil
}
