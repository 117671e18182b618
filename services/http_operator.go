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
	"github.com/choosek/tinybook/engine"
	"github.com/choosek/tinybook/protocol"
)

// HTTPOperator runs the operator side of the workflow over HTTP: it deals
// preprocessing batches and distributes each node's slice, allocates
// request tokens, and reveals outcomes from the nodes' shares.
type HTTPOperator struct {
	*baseService

	batches     map[uuid.UUID]*protocol.Batch
	latestBatch uuid.UUID
}

// NewHTTPOperator creates an operator service that registers with a central registry.
func NewHTTPOperator(config *ServiceConfig, log *slog.Logger, signingKey crypto.PrivateKey) (*HTTPOperator, error) {
	config.ServiceType = OperatorService
	base, err := newBaseService(config, log, signingKey)
	if err != nil {
		return nil, err
	}

	return &HTTPOperator{
		baseService: base,
		batches:     make(map[uuid.UUID]*protocol.Batch),
	}, nil
}

// RegisterRoutes registers HTTP routes for the operator.
func (o *HTTPOperator) RegisterRoutes(r chi.Router) {
	r.Post("/operator/preprocess", o.handlePreprocess)
	r.Post("/operator/request/{role}", o.handleRequest)
	r.Get("/operator/result/{batch_id}/{instance}", o.handleResult)
}

// Start registers with the central registry and begins service operations.
func (o *HTTPOperator) Start(ctx context.Context) error {
	if err := o.registerWithRegistry(); err != nil {
		return fmt.Errorf("registry registration failed: %w", err)
	}

	go o.runDiscoveryLoop(ctx, o)
	return nil
}

func (o *HTTPOperator) selfPublicKey() string {
	return o.publicKey().String()
}

func (o *HTTPOperator) onNodeDiscovered(svc *RegisteredService) error {
	o.storeNode(svc)
	return nil
}

func (o *HTTPOperator) onOperatorDiscovered(svc *RegisteredService) error {
	o.storeOperator(svc)
	return nil
}

func (o *HTTPOperator) onClientDiscovered(svc *RegisteredService) error {
	o.storeClient(svc)
	return nil
}

// orderedNodes snapshots the known nodes in index order.
func (o *HTTPOperator) orderedNodes() ([]*RegisteredService, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.registry.OrderedNodes(o.config.BookConfig.NumNodes)
}

func (o *HTTPOperator) handlePreprocess(w http.ResponseWriter, r *http.Request) {
	var req PreprocessRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	batchSize := req.BatchSize
	if batchSize == 0 {
		batchSize = o.config.BookConfig.BatchSize
	}

	info, err := o.Preprocess(batchSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(info)
}

// Preprocess deals a fresh batch and distributes each node's material.
func (o *HTTPOperator) Preprocess(batchSize int) (*BatchInfo, error) {
	config := o.config.BookConfig.WithDefaults()
	if batchSize == 0 {
		batchSize = config.BatchSize
	}

	nodes, err := o.orderedNodes()
	if err != nil {
		// Nodes may have registered after our last discovery pass.
		o.discoverServices(o)
		nodes, err = o.orderedNodes()
		if err != nil {
			return nil, fmt.Errorf("node set incomplete: %w", err)
		}
	}

	instances, err := engine.Deal(config.NumNodes, config.PriceDomain, batchSize)
	if err != nil {
		return nil, fmt.Errorf("dealing batch: %w", err)
	}

	batch := protocol.NewBatch(config.PriceDomain, config.NumNodes, batchSize)

	nodeBatches, err := protocol.BuildNodeBatches(batch.ID, config.NumNodes, config.PriceDomain, instances)
	if err != nil {
		return nil, err
	}

	for i, node := range nodes {
		signed, err := protocol.NewSigned(o.signingKey, nodeBatches[i])
		if err != nil {
			return nil, fmt.Errorf("signing batch for node %d: %w", i, err)
		}
		if err := o.postJSON(node.HTTPEndpoint+"/node/batch", &InstallBatchRequest{Batch: signed}, nil); err != nil {
			return nil, fmt.Errorf("installing batch on node %d: %w", i, err)
		}
	}

	o.mu.Lock()
	o.batches[batch.ID] = batch
	o.latestBatch = batch.ID
	o.mu.Unlock()

	o.log.Info("dealt preprocessing batch",
		"batch", batch.ID, "instances", batchSize, "domain", config.PriceDomain, "nodes", config.NumNodes)

	return &BatchInfo{
		BatchID:  batch.ID,
		Domain:   config.PriceDomain,
		NumNodes: config.NumNodes,
		Size:     batchSize,
	}, nil
}

func (o *HTTPOperator) handleRequest(w http.ResponseWriter, r *http.Request) {
	role := protocol.Role(chi.URLParam(r, "role"))
	if !role.Valid() {
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}

	o.mu.RLock()
	batch := o.batches[o.latestBatch]
	o.mu.RUnlock()

	if batch == nil {
		http.Error(w, "no batch dealt yet", http.StatusServiceUnavailable)
		return
	}

	token, err := batch.Request(role)
	if err != nil {
		writeProtocolError(w, err)
		return
	}

	json.NewEncoder(w).Encode(&TokenResponse{Token: token})
}

func (o *HTTPOperator) handleResult(w http.ResponseWriter, r *http.Request) {
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

	result, err := o.Result(batchID, instance)
	if err != nil {
		writeProtocolError(w, err)
		return
	}

	json.NewEncoder(w).Encode(result)
}

// Result collects every node's outcome share for one instance and reveals
// the outcome. Fails when any node has not yet computed its share.
func (o *HTTPOperator) Result(batchID uuid.UUID, instance int) (*ResultResponse, error) {
	nodes, err := o.orderedNodes()
	if err != nil {
		return nil, fmt.Errorf("node set incomplete: %w", err)
	}

	shares := make([]*protocol.OutcomeShare, 0, len(nodes))
	for i, node := range nodes {
		url := fmt.Sprintf("%s/node/shares/%s/%d", node.HTTPEndpoint, batchID, instance)
		resp, err := o.httpClient.Get(url)
		if err != nil {
			return nil, fmt.Errorf("fetching share from node %d: %w", i, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: node %d returned status %d",
				protocol.ErrIncompleteShares, i, resp.StatusCode)
		}

		var shareResp ShareResponse
		err = json.NewDecoder(resp.Body).Decode(&shareResp)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decoding share from node %d: %w", i, err)
		}
		shares = append(shares, shareResp.Share)
	}

	priceRange, err := protocol.Reveal(shares)
	if err != nil {
		return nil, err
	}

	return &ResultResponse{
		Matched: priceRange != nil,
		Range:   priceRange,
	}, nil
}

// PublicKey returns the operator's signing public key.
func (o *HTTPOperator) PublicKey() crypto.PublicKey {
	return o.publicKey()
}
