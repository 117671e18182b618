package protocol

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"

	"github.com/choosek/tinybook/engine"
)

// instanceState tracks one correlated-randomness instance through its
// lifecycle on one node. Transitions only move forward; terminal states are
// instanceConsumed and instanceFailed.
type instanceState int

const (
	instanceFresh instanceState = iota
	instanceAskMasked
	instanceBidMasked
	instanceBothMasked
	instanceConsumed
	instanceFailed
)

func (s instanceState) masked(role Role) instanceState {
	switch s {
	case instanceFresh:
		if role == RoleAsk {
			return instanceAskMasked
		}
		return instanceBidMasked
	case instanceAskMasked, instanceBidMasked:
		return instanceBothMasked
	}
	return instanceFailed
}

type nodeInstance struct {
	state    instanceState
	material *engine.InstanceMaterial

	askServed bool
	bidServed bool
}

type nodeBatch struct {
	domain    int
	numNodes  int
	instances []*nodeInstance
}

// NodeBatch is the per-node result of preprocessing: this node's slice of
// every correlated-randomness instance in one batch, keyed by the batch id
// the allocation handle carries.
type NodeBatch struct {
	BatchID   uuid.UUID                  `json:"batch_id"`
	Domain    int                        `json:"domain"`
	NumNodes  int                        `json:"num_nodes"`
	NodeIndex int                        `json:"node_index"`
	Instances []*engine.InstanceMaterial `json:"instances"`
}

// Node holds one party's local state: its slices of the preprocessed
// correlated randomness, and the single-use bookkeeping for every instance.
// It is the only component that touches preprocessed material.
type Node struct {
	index int

	mu      sync.Mutex
	batches map[uuid.UUID]*nodeBatch
}

// NewNode creates a node with the given position in the agreed node
// ordering.
func NewNode(index int) *Node {
	return &Node{
		index:   index,
		batches: make(map[uuid.UUID]*nodeBatch),
	}
}

// Index returns this node's position in the agreed node ordering.
func (n *Node) Index() int {
	return n.index
}

// InstallBatch stores a freshly dealt batch. Repeated preprocessing appends
// batches under new ids; earlier batches stay valid.
func (n *Node) InstallBatch(batch *NodeBatch) error {
	if batch.NodeIndex != n.index {
		return fmt.Errorf("material for node %d installed on node %d", batch.NodeIndex, n.index)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.batches[batch.BatchID]; exists {
		return fmt.Errorf("batch %s already installed", batch.BatchID)
	}

	instances := make([]*nodeInstance, len(batch.Instances))
	for i, material := range batch.Instances {
		instances[i] = &nodeInstance{state: instanceFresh, material: material}
	}

	n.batches[batch.BatchID] = &nodeBatch{
		domain:    batch.Domain,
		numNodes:  batch.NumNodes,
		instances: instances,
	}
	return nil
}

// MaskSet is one node's length-N mask vector for one token. It is owned by
// the requesting client and must never be shared with other clients: the
// masks are the one-time pad hiding the client's price from the other
// nodes.
type MaskSet struct {
	NodeIndex int          `json:"node_index"`
	Token     RequestToken `json:"token"`
	Masks     []*big.Int   `json:"masks"`
}

// Masks derives this node's mask vector for a previously unissued token.
// The token transitions from unused to consumed for this node: a second
// call for the same (token, node) pair fails with ErrTokenAlreadyConsumed,
// since re-serving a mask would reuse a one-time pad.
func (n *Node) Masks(token RequestToken) (*MaskSet, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	inst, _, err := n.lookup(token)
	if err != nil {
		return nil, err
	}

	if inst.state == instanceFailed {
		return nil, fmt.Errorf("%w: instance %d", ErrInstanceFailed, token.Instance)
	}

	switch token.Role {
	case RoleAsk:
		if inst.askServed {
			return nil, fmt.Errorf("%w: ask masks for instance %d", ErrTokenAlreadyConsumed, token.Instance)
		}
		inst.askServed = true
	case RoleBid:
		if inst.bidServed {
			return nil, fmt.Errorf("%w: bid masks for instance %d", ErrTokenAlreadyConsumed, token.Instance)
		}
		inst.bidServed = true
	default:
		return nil, fmt.Errorf("%w: %q", ErrRoleMismatch, token.Role)
	}

	inst.state = inst.state.masked(token.Role)

	share := inst.material.AlphaShare
	if token.Role == RoleBid {
		share = inst.material.BetaShare
	}

	return &MaskSet{
		NodeIndex: n.index,
		Token:     token,
		Masks:     share,
	}, nil
}

// Outcome computes this node's share of the match indicator from a matched
// pair of masked orders. The underlying correlated-randomness instance is a
// one-time consumable: a second call for the same instance fails with
// ErrInstanceAlreadyUsed.
func (n *Node) Outcome(orderAsk, orderBid *MaskedOrder) (*OutcomeShare, error) {
	if orderAsk == nil || orderBid == nil {
		return nil, fmt.Errorf("%w: both orders required", ErrRoleMismatch)
	}
	if orderAsk.Role != RoleAsk || orderBid.Role != RoleBid {
		return nil, fmt.Errorf("%w: got %q/%q, want ask/bid", ErrRoleMismatch, orderAsk.Role, orderBid.Role)
	}
	if !orderAsk.Token.Matches(orderBid.Token) {
		return nil, fmt.Errorf("%w: orders from different batches", ErrDomainMismatch)
	}
	if orderAsk.Token.Instance != orderBid.Token.Instance {
		return nil, fmt.Errorf("%w: instances %d and %d", ErrUnpairedTokens,
			orderAsk.Token.Instance, orderBid.Token.Instance)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	inst, _, err := n.lookup(orderAsk.Token)
	if err != nil {
		return nil, err
	}

	switch inst.state {
	case instanceConsumed:
		return nil, fmt.Errorf("%w: instance %d", ErrInstanceAlreadyUsed, orderAsk.Token.Instance)
	case instanceFailed:
		return nil, fmt.Errorf("%w: instance %d", ErrInstanceFailed, orderAsk.Token.Instance)
	case instanceBothMasked:
		// The only state outcome computation is permitted in.
	default:
		// This node never served masks for one half of the pair; the orders
		// cannot have been built from this node's material.
		inst.state = instanceFailed
		return nil, fmt.Errorf("%w: masks were not drawn from this node", ErrUnpairedTokens)
	}

	shares, err := engine.LocalProductShare(inst.material, n.index == 0, orderAsk.Vector, orderBid.Vector)
	if err != nil {
		inst.state = instanceFailed
		return nil, err
	}

	inst.state = instanceConsumed

	return &OutcomeShare{
		NodeIndex: n.index,
		BatchID:   orderAsk.Token.BatchID,
		Instance:  orderAsk.Token.Instance,
		Domain:    orderAsk.Token.Domain,
		NumNodes:  orderAsk.Token.NumNodes,
		Shares:    shares,
	}, nil
}

// lookup resolves a token to its instance. Callers hold n.mu.
func (n *Node) lookup(token RequestToken) (*nodeInstance, *nodeBatch, error) {
	batch, ok := n.batches[token.BatchID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: batch %s", ErrUnknownToken, token.BatchID)
	}
	if batch.domain != token.Domain || batch.numNodes != token.NumNodes {
		return nil, nil, fmt.Errorf("%w: token domain %d/%d nodes, batch %d/%d",
			ErrDomainMismatch, token.Domain, token.NumNodes, batch.domain, batch.numNodes)
	}
	if token.Instance < 0 || token.Instance >= len(batch.instances) {
		return nil, nil, fmt.Errorf("%w: instance %d of %d", ErrUnknownToken, token.Instance, len(batch.instances))
	}
	return batch.instances[token.Instance], batch, nil
}
