package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/choosek/tinybook/crypto"
	"github.com/choosek/tinybook/protocol"
)

// ServiceConfig contains configuration for HTTP services.
type ServiceConfig struct {
	BookConfig  *protocol.BookConfig
	HTTPAddr    string
	ServiceType ServiceType
	RegistryURL string
	// NodeIndex is the node's position in the agreed node ordering.
	// Meaningful only for NodeService.
	NodeIndex int
	// AdminToken for authenticating with registry admin endpoints (user:pass).
	AdminToken string
}

// ServiceType identifies the type of service.
type ServiceType string

const (
	ClientService   ServiceType = "client"
	NodeService     ServiceType = "node"
	OperatorService ServiceType = "operator"
)

// Valid returns true if the service type is recognized.
func (t ServiceType) Valid() bool {
	switch t {
	case ClientService, NodeService, OperatorService:
		return true
	}
	return false
}

// RegisteredService contains all registration data for a service instance.
// This is the canonical type used throughout the system for service
// identity; it doubles as the signed registration payload.
type RegisteredService struct {
	ServiceType  ServiceType `json:"service_type"`
	HTTPEndpoint string      `json:"http_endpoint"`
	PublicKey    string      `json:"public_key"`
	NodeIndex    int         `json:"node_index"`
}

// ParsePublicKey returns the parsed signing public key.
func (s *RegisteredService) ParsePublicKey() (crypto.PublicKey, error) {
	return crypto.NewPublicKeyFromString(s.PublicKey)
}

// ServiceListResponse contains all registered services by type.
type ServiceListResponse struct {
	Nodes     []*protocol.Signed[RegisteredService] `json:"nodes"`
	Operators []*protocol.Signed[RegisteredService] `json:"operators"`
	Clients   []*protocol.Signed[RegisteredService] `json:"clients"`
}

// ServiceRegistrationResponse confirms registry registration.
type ServiceRegistrationResponse struct {
	Success   bool   `json:"success"`
	PublicKey string `json:"public_key,omitempty"`
	Message   string `json:"message,omitempty"`
}

// InstallBatchRequest delivers a node's slice of a preprocessing batch,
// signed by the dealing operator.
type InstallBatchRequest struct {
	Batch *protocol.Signed[protocol.NodeBatch] `json:"batch"`
}

// MaskRequest asks a node for its mask vector for one token.
type MaskRequest struct {
	Token protocol.RequestToken `json:"token"`
}

// MaskResponse carries one node's mask vector back to the requesting
// client.
type MaskResponse struct {
	MaskSet *protocol.MaskSet `json:"mask_set"`
}

// OrderRequest broadcasts a signed masked order to a node.
type OrderRequest struct {
	Order *protocol.Signed[protocol.MaskedOrder] `json:"order"`
}

// OrderResponse acknowledges a broadcast masked order.
type OrderResponse struct {
	Accepted bool `json:"accepted"`
}

// ShareResponse carries one node's outcome share for a completed pair.
type ShareResponse struct {
	Share *protocol.OutcomeShare `json:"share"`
}

// PreprocessRequest asks the operator to deal a fresh batch.
type PreprocessRequest struct {
	BatchSize int `json:"batch_size,omitempty"`
}

// BatchInfo describes a dealt batch to clients.
type BatchInfo struct {
	BatchID  uuid.UUID `json:"batch_id"`
	Domain   int       `json:"domain"`
	NumNodes int       `json:"num_nodes"`
	Size     int       `json:"size"`
}

// TokenResponse carries a freshly allocated request token.
type TokenResponse struct {
	Token protocol.RequestToken `json:"token"`
}

// ResultResponse is the operator's revealed outcome for one matched pair.
type ResultResponse struct {
	Matched bool                 `json:"matched"`
	Range   *protocol.PriceRange `json:"range,omitempty"`
}

// LocalServiceRegistry caches discovered and verified service endpoints locally.
type LocalServiceRegistry struct {
	Clients   map[string]*RegisteredService
	Nodes     map[string]*RegisteredService
	Operators map[string]*RegisteredService
}

// NewLocalServiceRegistry creates an empty local service cache.
func NewLocalServiceRegistry() *LocalServiceRegistry {
	return &LocalServiceRegistry{
		Clients:   make(map[string]*RegisteredService),
		Nodes:     make(map[string]*RegisteredService),
		Operators: make(map[string]*RegisteredService),
	}
}

// OrderedNodes returns the known nodes sorted by their node index, or an
// error if the set does not cover exactly the indices [0, numNodes).
func (r *LocalServiceRegistry) OrderedNodes(numNodes int) ([]*RegisteredService, error) {
	ordered := make([]*RegisteredService, numNodes)
	for _, node := range r.Nodes {
		if node.NodeIndex < 0 || node.NodeIndex >= numNodes {
			continue
		}
		ordered[node.NodeIndex] = node
	}
	for i, node := range ordered {
		if node == nil {
			return nil, &MissingNodeError{Index: i}
		}
	}
	return ordered, nil
}

// MissingNodeError reports a node index with no registered service.
type MissingNodeError struct {
	Index int
}

func (e *MissingNodeError) Error() string {
	return fmt.Sprintf("no registered node with index %d", e.Index)
}
