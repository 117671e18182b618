package engine

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/choosek/tinybook/crypto"
)

// InstanceMaterial is one node's slice of a dealt correlated-randomness
// instance: additive shares of the instance's per-slot Beaver triple.
// All three vectors have one element per price slot.
type InstanceMaterial struct {
	AlphaShare []*big.Int `json:"alpha_share"` // Share of the ask input mask
	BetaShare  []*big.Int `json:"beta_share"`  // Share of the bid input mask
	GammaShare []*big.Int `json:"gamma_share"` // Share of alpha*beta, slot-wise
}

// Instance is one unit of correlated randomness, enabling exactly one
// secure slot-wise multiplication over the price domain. Only the dealer
// ever holds a full Instance; nodes receive their InstanceMaterial slice.
type Instance struct {
	Index    int
	Domain   int
	NumNodes int

	material []*InstanceMaterial
}

// MaterialFor returns the given node's slice of this instance.
func (inst *Instance) MaterialFor(node int) (*InstanceMaterial, error) {
	if node < 0 || node >= inst.NumNodes {
		return nil, fmt.Errorf("no material for node %d of %d", node, inst.NumNodes)
	}
	return inst.material[node], nil
}

// Deal generates batchSize correlated-randomness instances for the given
// node count and price domain. Mask shares are expanded from fresh per-node
// seeds; the product shares are sampled so that they sum to the slot-wise
// product of the full masks.
func Deal(numNodes, domain, batchSize int) ([]*Instance, error) {
	if numNodes < 1 {
		return nil, errors.New("at least one node required")
	}
	if domain < 1 {
		return nil, errors.New("price domain must be positive")
	}
	if batchSize < 1 {
		return nil, errors.New("batch size must be positive")
	}

	instances := make([]*Instance, batchSize)
	for i := range instances {
		inst, err := dealInstance(i, numNodes, domain)
		if err != nil {
			return nil, fmt.Errorf("dealing instance %d: %w", i, err)
		}
		instances[i] = inst
	}
	return instances, nil
}

func dealInstance(index, numNodes, domain int) (*Instance, error) {
	inst := &Instance{
		Index:    index,
		Domain:   domain,
		NumNodes: numNodes,
		material: make([]*InstanceMaterial, numNodes),
	}

	alpha := zeroVector(domain)
	beta := zeroVector(domain)

	for node := 0; node < numNodes; node++ {
		alphaSeed, err := crypto.GenerateMaskSeed()
		if err != nil {
			return nil, err
		}
		betaSeed, err := crypto.GenerateMaskSeed()
		if err != nil {
			return nil, err
		}

		alphaShare, err := crypto.DeriveMaskVector(alphaSeed, uint32(index), int32(domain), crypto.MatchFieldOrder)
		if err != nil {
			return nil, err
		}
		betaShare, err := crypto.DeriveMaskVector(betaSeed, uint32(index), int32(domain), crypto.MatchFieldOrder)
		if err != nil {
			return nil, err
		}

		crypto.SumMaskVectorsInplace(alpha, alphaShare, crypto.MatchFieldOrder)
		crypto.SumMaskVectorsInplace(beta, betaShare, crypto.MatchFieldOrder)

		inst.material[node] = &InstanceMaterial{
			AlphaShare: alphaShare,
			BetaShare:  betaShare,
		}
	}

	// gamma = alpha * beta slot-wise, split additively: the first n-1 nodes
	// get uniform shares, the last node absorbs the remainder.
	for node := 0; node < numNodes-1; node++ {
		share := make([]*big.Int, domain)
		for s := range share {
			el, err := crypto.RandomFieldElement(crypto.MatchFieldOrder)
			if err != nil {
				return nil, err
			}
			share[s] = el
		}
		inst.material[node].GammaShare = share
	}

	last := make([]*big.Int, domain)
	for s := range last {
		gamma := new(big.Int).Set(alpha[s])
		crypto.FieldMulInplace(gamma, beta[s], crypto.MatchFieldOrder)
		for node := 0; node < numNodes-1; node++ {
			crypto.FieldSubInplace(gamma, inst.material[node].GammaShare[s], crypto.MatchFieldOrder)
		}
		last[s] = gamma
	}
	inst.material[numNodes-1].GammaShare = last

	return inst, nil
}

// LocalProductShare computes one node's share of the slot-wise product of
// the two plaintext vectors behind maskedAsk and maskedBid.
//
// With a' = a + alpha and b' = b + beta public, each node contributes
// gamma_j - a'*beta_j - b'*alpha_j; exactly one node (includeCross) also
// adds the public cross term a'*b'. The shares sum to a*b slot-wise.
func LocalProductShare(material *InstanceMaterial, includeCross bool, maskedAsk, maskedBid []*big.Int) ([]*big.Int, error) {
	if len(maskedAsk) != len(material.AlphaShare) || len(maskedBid) != len(material.AlphaShare) {
		return nil, errors.New("masked vector length does not match instance domain")
	}

	share := make([]*big.Int, len(maskedAsk))
	tmp := new(big.Int)
	for s := range share {
		el := new(big.Int).Set(material.GammaShare[s])

		tmp.Set(maskedAsk[s])
		crypto.FieldMulInplace(tmp, material.BetaShare[s], crypto.MatchFieldOrder)
		crypto.FieldSubInplace(el, tmp, crypto.MatchFieldOrder)

		tmp.Set(maskedBid[s])
		crypto.FieldMulInplace(tmp, material.AlphaShare[s], crypto.MatchFieldOrder)
		crypto.FieldSubInplace(el, tmp, crypto.MatchFieldOrder)

		if includeCross {
			tmp.Set(maskedAsk[s])
			crypto.FieldMulInplace(tmp, maskedBid[s], crypto.MatchFieldOrder)
			crypto.FieldAddInplace(el, tmp, crypto.MatchFieldOrder)
		}

		share[s] = el
	}
	return share, nil
}

// Reconstruct sums per-node share vectors slot-wise into the plaintext
// vector. All shares must have equal length.
func Reconstruct(shares [][]*big.Int) ([]*big.Int, error) {
	if len(shares) == 0 {
		return nil, errors.New("no shares to reconstruct from")
	}

	domain := len(shares[0])
	result := zeroVector(domain)
	for i, share := range shares {
		if len(share) != domain {
			return nil, fmt.Errorf("share %d has length %d, want %d", i, len(share), domain)
		}
		crypto.SumMaskVectorsInplace(result, share, crypto.MatchFieldOrder)
	}
	return result, nil
}

func zeroVector(n int) []*big.Int {
	v := make([]*big.Int, n)
	for i := range v {
		v[i] = big.NewInt(0)
	}
	return v
}
