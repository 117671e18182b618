package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/choosek/tinybook/crypto"
	"github.com/choosek/tinybook/protocol"
)

// pairKey identifies one matching run on a node.
type pairKey struct {
	batch    uuid.UUID
	instance int
}

// pendingPair collects the two masked orders of one run as they arrive.
type pendingPair struct {
	ask *protocol.MaskedOrder
	bid *protocol.MaskedOrder
}

// HTTPNode wraps a protocol node with HTTP endpoints and registry
// integration. It serves preprocessed-mask requests, receives broadcast
// masked orders, and exposes its outcome shares once a pair completes.
type HTTPNode struct {
	*baseService
	node *protocol.Node

	pending map[pairKey]*pendingPair
	shares  map[pairKey]*protocol.OutcomeShare
}

// NewHTTPNode creates a node service that registers with a central registry.
func NewHTTPNode(config *ServiceConfig, log *slog.Logger, signingKey crypto.PrivateKey) (*HTTPNode, error) {
	config.ServiceType = NodeService
	base, err := newBaseService(config, log, signingKey)
	if err != nil {
		return nil, err
	}

	return &HTTPNode{
		baseService: base,
		node:        protocol.NewNode(config.NodeIndex),
		pending:     make(map[pairKey]*pendingPair),
		shares:      make(map[pairKey]*protocol.OutcomeShare),
	}, nil
}

// RegisterRoutes registers HTTP routes for the node.
func (n *HTTPNode) RegisterRoutes(r chi.Router) {
	r.Post("/node/batch", n.handleInstallBatch)
	r.Post("/node/masks", n.handleMasks)
	r.Post("/node/orders", n.handleOrder)
	r.Get("/node/shares/{batch_id}/{instance}", n.handleGetShare)
}

// Start registers with the central registry and begins service operations.
func (n *HTTPNode) Start(ctx context.Context) error {
	if err := n.registerWithRegistry(); err != nil {
		return fmt.Errorf("registry registration failed: %w", err)
	}

	go n.runDiscoveryLoop(ctx, n)
	return nil
}

func (n *HTTPNode) selfPublicKey() string {
	return n.publicKey().String()
}

func (n *HTTPNode) onNodeDiscovered(svc *RegisteredService) error {
	n.storeNode(svc)
	return nil
}

func (n *HTTPNode) onOperatorDiscovered(svc *RegisteredService) error {
	n.storeOperator(svc)
	return nil
}

func (n *HTTPNode) onClientDiscovered(svc *RegisteredService) error {
	n.storeClient(svc)
	return nil
}

// isKnownOperator reports whether the key belongs to a discovered
// operator. With no registry configured every signer is accepted; this is
// the standalone and testing mode.
func (n *HTTPNode) isKnownOperator(pubKey string) bool {
	if n.config.RegistryURL == "" {
		return true
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, known := n.registry.Operators[pubKey]
	return known
}

func (n *HTTPNode) handleInstallBatch(w http.ResponseWriter, r *http.Request) {
	var req InstallBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Batch == nil {
		http.Error(w, "missing batch", http.StatusBadRequest)
		return
	}

	batch, signer, err := req.Batch.Recover()
	if err != nil {
		http.Error(w, fmt.Errorf("invalid signature: %w", err).Error(), http.StatusForbidden)
		return
	}

	if !n.isKnownOperator(signer.String()) {
		// The dealer may have registered after our last discovery pass.
		n.discoverServices(n)
		if !n.isKnownOperator(signer.String()) {
			http.Error(w, "batch not signed by a known operator", http.StatusForbidden)
			return
		}
	}

	if err := n.node.InstallBatch(batch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.log.Info("installed preprocessing batch",
		"batch", batch.BatchID, "instances", len(batch.Instances), "domain", batch.Domain)
	w.WriteHeader(http.StatusOK)
}

func (n *HTTPNode) handleMasks(w http.ResponseWriter, r *http.Request) {
	var req MaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	maskSet, err := n.node.Masks(req.Token)
	if err != nil {
		writeProtocolError(w, err)
		return
	}

	json.NewEncoder(w).Encode(&MaskResponse{MaskSet: maskSet})
}

func (n *HTTPNode) handleOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Order == nil {
		http.Error(w, "missing order", http.StatusBadRequest)
		return
	}

	order, _, err := req.Order.Recover()
	if err != nil {
		http.Error(w, fmt.Errorf("invalid signature: %w", err).Error(), http.StatusForbidden)
		return
	}
	if !order.Role.Valid() {
		http.Error(w, "unknown order role", http.StatusBadRequest)
		return
	}

	key := pairKey{batch: order.Token.BatchID, instance: order.Token.Instance}

	n.mu.Lock()
	defer n.mu.Unlock()

	pair := n.pending[key]
	if pair == nil {
		pair = &pendingPair{}
		n.pending[key] = pair
	}

	switch order.Role {
	case protocol.RoleAsk:
		if pair.ask != nil {
			http.Error(w, "ask order already received for this instance", http.StatusConflict)
			return
		}
		pair.ask = order
	case protocol.RoleBid:
		if pair.bid != nil {
			http.Error(w, "bid order already received for this instance", http.StatusConflict)
			return
		}
		pair.bid = order
	}

	if pair.ask == nil || pair.bid == nil {
		json.NewEncoder(w).Encode(&OrderResponse{Accepted: true})
		return
	}

	share, err := n.node.Outcome(pair.ask, pair.bid)
	delete(n.pending, key)
	if err != nil {
		writeProtocolError(w, err)
		return
	}

	n.shares[key] = share
	n.log.Info("computed outcome share", "batch", key.batch, "instance", key.instance)

	json.NewEncoder(w).Encode(&OrderResponse{Accepted: true})
}

func (n *HTTPNode) handleGetShare(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(chi.URLParam(r, "batch_id"))
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}
	instance, err := strconv.Atoi(chi.URLParam(r, "instance"))
	if err != nil {
		http.Error(w, "invalid instance", http.StatusBadRequest)
		return
	}

	n.mu.RLock()
	share := n.shares[pairKey{batch: batchID, instance: instance}]
	n.mu.RUnlock()

	if share == nil {
		http.Error(w, "share not available", http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(&ShareResponse{Share: share})
}

// NodeIndex returns this node's position in the agreed node ordering.
func (n *HTTPNode) NodeIndex() int {
	return n.node.Index()
}

// PublicKey returns the node's signing public key.
func (n *HTTPNode) PublicKey() crypto.PublicKey {
	return n.publicKey()
}
