package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/choosek/tinybook/crypto"
	"github.com/choosek/tinybook/protocol"
)

// OrderClient drives one client's side of the workflow: request a token
// from the operator, gather masks from every node, broadcast the masked
// order, and poll for the revealed outcome.
type OrderClient struct {
	*baseService
}

// NewOrderClient creates a client that discovers nodes and the operator
// through the central registry.
func NewOrderClient(config *ServiceConfig, log *slog.Logger, signingKey crypto.PrivateKey) (*OrderClient, error) {
	config.ServiceType = ClientService
	base, err := newBaseService(config, log, signingKey)
	if err != nil {
		return nil, err
	}

	return &OrderClient{baseService: base}, nil
}

// Start registers with the central registry and begins discovery.
func (c *OrderClient) Start(ctx context.Context) error {
	if err := c.registerWithRegistry(); err != nil {
		return fmt.Errorf("registry registration failed: %w", err)
	}

	go c.runDiscoveryLoop(ctx, c)
	return nil
}

func (c *OrderClient) selfPublicKey() string {
	return c.publicKey().String()
}

func (c *OrderClient) onNodeDiscovered(svc *RegisteredService) error {
	c.storeNode(svc)
	return nil
}

func (c *OrderClient) onOperatorDiscovered(svc *RegisteredService) error {
	c.storeOperator(svc)
	return nil
}

func (c *OrderClient) onClientDiscovered(svc *RegisteredService) error {
	c.storeClient(svc)
	return nil
}

// operatorEndpoint picks a discovered operator, refreshing discovery once
// when none is known yet.
func (c *OrderClient) operatorEndpoint() (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		c.mu.RLock()
		var endpoint string
		for _, op := range c.registry.Operators {
			endpoint = op.HTTPEndpoint
			break
		}
		c.mu.RUnlock()
		if endpoint != "" {
			return endpoint, nil
		}
		c.discoverServices(c)
	}
	return "", fmt.Errorf("no operator discovered")
}

func (c *OrderClient) nodeEndpoints() ([]*RegisteredService, error) {
	c.mu.RLock()
	nodes, err := c.registry.OrderedNodes(c.config.BookConfig.NumNodes)
	c.mu.RUnlock()
	if err != nil {
		c.discoverServices(c)
		c.mu.RLock()
		nodes, err = c.registry.OrderedNodes(c.config.BookConfig.NumNodes)
		c.mu.RUnlock()
	}
	return nodes, err
}

// SubmitOrder runs steps two through four of the workflow for one sealed
// price and returns the token identifying the resulting run. The price
// never leaves this client unmasked.
func (c *OrderClient) SubmitOrder(role protocol.Role, price int) (protocol.RequestToken, error) {
	var token protocol.RequestToken

	operator, err := c.operatorEndpoint()
	if err != nil {
		return token, err
	}
	nodes, err := c.nodeEndpoints()
	if err != nil {
		return token, fmt.Errorf("node set incomplete: %w", err)
	}

	var tokenResp TokenResponse
	if err := c.postJSON(fmt.Sprintf("%s/operator/request/%s", operator, role), struct{}{}, &tokenResp); err != nil {
		return token, fmt.Errorf("requesting token: %w", err)
	}
	token = tokenResp.Token

	maskSets := make([]*protocol.MaskSet, len(nodes))
	for i, node := range nodes {
		var maskResp MaskResponse
		if err := c.postJSON(node.HTTPEndpoint+"/node/masks", &MaskRequest{Token: token}, &maskResp); err != nil {
			return token, fmt.Errorf("fetching masks from node %d: %w", i, err)
		}
		maskSets[i] = maskResp.MaskSet
	}

	order, err := protocol.NewMaskedOrder(maskSets, price)
	if err != nil {
		return token, err
	}

	signedOrder, err := protocol.NewSigned(c.signingKey, order)
	if err != nil {
		return token, fmt.Errorf("signing order: %w", err)
	}

	for i, node := range nodes {
		if err := c.postJSON(node.HTTPEndpoint+"/node/orders", &OrderRequest{Order: signedOrder}, nil); err != nil {
			return token, fmt.Errorf("broadcasting order to node %d: %w", i, err)
		}
	}

	c.log.Info("submitted sealed order", "role", role, "batch", token.BatchID, "instance", token.Instance)
	return token, nil
}

// Preprocess asks the operator to deal a fresh batch.
func (c *OrderClient) Preprocess(batchSize int) (*BatchInfo, error) {
	operator, err := c.operatorEndpoint()
	if err != nil {
		return nil, err
	}

	var info BatchInfo
	if err := c.postJSON(operator+"/operator/preprocess", &PreprocessRequest{BatchSize: batchSize}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// FetchResult retrieves the revealed outcome for a run once every node has
// contributed its share.
func (c *OrderClient) FetchResult(token protocol.RequestToken) (*ResultResponse, error) {
	operator, err := c.operatorEndpoint()
	if err != nil {
		return nil, err
	}

	var result ResultResponse
	url := fmt.Sprintf("%s/operator/result/%s/%d", operator, token.BatchID, token.Instance)
	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("result not available (status %d)", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// WaitForResult polls the operator until the outcome is available or the
// context expires.
func (c *OrderClient) WaitForResult(ctx context.Context, token protocol.RequestToken, interval time.Duration) (*ResultResponse, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := c.FetchResult(token)
		if err == nil {
			return result, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for result: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
