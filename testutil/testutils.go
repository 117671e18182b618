package testutil

import (
	"crypto/rand"
	"fmt"

	"github.com/choosek/tinybook/crypto"
	"github.com/choosek/tinybook/protocol"
)

// TestBookConfigOption customizes a book configuration for tests.
type TestBookConfigOption func(*protocol.BookConfig)

// WithPriceDomain sets the number of price slots
func WithPriceDomain(domain int) TestBookConfigOption {
	return func(config *protocol.BookConfig) {
		config.PriceDomain = domain
	}
}

// WithNumNodes sets the number of matching nodes
func WithNumNodes(count int) TestBookConfigOption {
	return func(config *protocol.BookConfig) {
		config.NumNodes = count
	}
}

// WithBatchSize sets the number of preprocessed instances per batch
func WithBatchSize(size int) TestBookConfigOption {
	return func(config *protocol.BookConfig) {
		config.BatchSize = size
	}
}

// NewTestBookConfig creates a book configuration suitable for tests.
// Defaults are small so preprocessing stays fast; override with options.
func NewTestBookConfig(options ...TestBookConfigOption) *protocol.BookConfig {
	config := &protocol.BookConfig{
		PriceDomain: 16,
		NumNodes:    3,
		BatchSize:   4,
	}
	for _, option := range options {
		option(config)
	}
	return config
}

// GenerateRandomBytes creates cryptographically secure random bytes of the specified length
func GenerateRandomBytes(length int) ([]byte, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return bytes, nil
}

// GenerateTestKeyPair creates a key pair for testing
func GenerateTestKeyPair() (crypto.PublicKey, crypto.PrivateKey, error) {
	return crypto.GenerateKeyPair()
}

// GenerateTestPublicKeys creates multiple public keys for testing
func GenerateTestPublicKeys(count int) ([]crypto.PublicKey, error) {
	keys := make([]crypto.PublicKey, count)
	for i := 0; i < count; i++ {
		pubKey, _, err := crypto.GenerateKeyPair()
		if err != nil {
			return nil, fmt.Errorf("failed to generate key %d: %w", i, err)
		}
		keys[i] = pubKey
	}
	return keys, nil
}

// TestBook is an in-process matching deployment: a set of nodes holding
// shares of one preprocessed batch, ready to serve masks and outcomes.
type TestBook struct {
	Config *protocol.BookConfig
	Nodes  []*protocol.Node
	Batch  *protocol.Batch
}

// NewTestBook deals a batch across freshly created nodes and returns the
// assembled deployment. Use it when a test needs working protocol state
// rather than a live HTTP topology.
func NewTestBook(options ...TestBookConfigOption) (*TestBook, error) {
	config := NewTestBookConfig(options...)
	nodes := make([]*protocol.Node, config.NumNodes)
	for i := range nodes {
		nodes[i] = protocol.NewNode(i)
	}
	batch, err := protocol.Preprocess(nodes, config.PriceDomain, config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to preprocess test batch: %w", err)
	}
	return &TestBook{Config: config, Nodes: nodes, Batch: batch}, nil
}

// SubmitOrder requests a token for the role, collects masks from every
// node and returns the resulting masked order alongside its token.
func (b *TestBook) SubmitOrder(role protocol.Role, price int) (protocol.RequestToken, *protocol.MaskedOrder, error) {
	token, err := b.Batch.Request(role)
	if err != nil {
		return protocol.RequestToken{}, nil, err
	}
	maskSets := make([]*protocol.MaskSet, len(b.Nodes))
	for i, node := range b.Nodes {
		maskSets[i], err = node.Masks(token)
		if err != nil {
			return protocol.RequestToken{}, nil, fmt.Errorf("node %d masks: %w", i, err)
		}
	}
	order, err := protocol.NewMaskedOrder(maskSets, price)
	if err != nil {
		return protocol.RequestToken{}, nil, err
	}
	return token, order, nil
}

// Match runs a full ask/bid round against the book and reveals the outcome.
func (b *TestBook) Match(askPrice, bidPrice int) (*protocol.PriceRange, error) {
	_, ask, err := b.SubmitOrder(protocol.RoleAsk, askPrice)
	if err != nil {
		return nil, err
	}
	_, bid, err := b.SubmitOrder(protocol.RoleBid, bidPrice)
	if err != nil {
		return nil, err
	}
	shares := make([]*protocol.OutcomeShare, len(b.Nodes))
	for i, node := range b.Nodes {
		shares[i], err = node.Outcome(ask, bid)
		if err != nil {
			return nil, fmt.Errorf("node %d outcome: %w", i, err)
		}
	}
	return protocol.Reveal(shares)
}
