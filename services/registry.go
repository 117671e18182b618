package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/choosek/tinybook/protocol"
)

// RegistryConfig configures service registration handling.
type RegistryConfig struct {
	// Store persists registrations across restarts. Optional; the registry
	// falls back to memory-only operation without one.
	Store RegistryStore
}

// Registry manages service discovery and registration for the matching
// workflow components. It is the rendezvous point of a deployment: nodes
// and the operator register here, clients discover them here, and everyone
// fetches the shared book configuration here.
type Registry struct {
	config     *RegistryConfig
	bookConfig *protocol.BookConfig

	mu       sync.RWMutex
	services map[ServiceType]map[string]*protocol.Signed[RegisteredService]
}

// NewRegistry creates a registry with the given configuration. When the
// config carries a store, previously persisted registrations are loaded.
func NewRegistry(config *RegistryConfig, bookConfig *protocol.BookConfig) (*Registry, error) {
	r := &Registry{
		config:     config,
		bookConfig: bookConfig,
		services: map[ServiceType]map[string]*protocol.Signed[RegisteredService]{
			NodeService:     make(map[string]*protocol.Signed[RegisteredService]),
			OperatorService: make(map[string]*protocol.Signed[RegisteredService]),
			ClientService:   make(map[string]*protocol.Signed[RegisteredService]),
		},
	}

	if config != nil && config.Store != nil {
		persisted, err := config.Store.LoadAllServices()
		if err != nil {
			return nil, fmt.Errorf("loading persisted services: %w", err)
		}
		for svcType, services := range persisted {
			for pubKey, signed := range services {
				r.services[svcType][pubKey] = signed
			}
		}
	}

	return r, nil
}

// RegisterAdminRoutes registers the authenticated registration endpoints.
// Nodes and operators register through these.
func (r *Registry) RegisterAdminRoutes(router chi.Router) {
	router.Post("/register/{service_type}", r.handleRegister)
	router.Delete("/unregister/{public_key}", r.handleUnregister)
}

// RegisterPublicRoutes registers the unauthenticated endpoints.
func (r *Registry) RegisterPublicRoutes(router chi.Router) {
	router.Post("/register/client", r.handleRegisterClient)
	router.Get("/services", r.handleGetServices)
	router.Get("/services/{type}", r.handleGetServicesByType)
	router.Get("/config", r.handleGetConfig)
}

func (r *Registry) handleRegisterClient(w http.ResponseWriter, req *http.Request) {
	r.register(w, req, ClientService)
}

func (r *Registry) handleRegister(w http.ResponseWriter, req *http.Request) {
	serviceType := ServiceType(chi.URLParam(req, "service_type"))
	if !serviceType.Valid() {
		http.Error(w, "invalid service type", http.StatusBadRequest)
		return
	}
	r.register(w, req, serviceType)
}

func (r *Registry) register(w http.ResponseWriter, req *http.Request, serviceType ServiceType) {
	var signedReq protocol.Signed[RegisteredService]
	if err := json.NewDecoder(req.Body).Decode(&signedReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	regReq, signer, err := signedReq.Recover()
	if err != nil {
		http.Error(w, fmt.Errorf("invalid signature: %w", err).Error(), http.StatusForbidden)
		return
	}

	if regReq.ServiceType != serviceType {
		http.Error(w, fmt.Sprintf("service type mismatch: URL says %s, body says %s", serviceType, regReq.ServiceType), http.StatusBadRequest)
		return
	}

	pubKey, err := regReq.ParsePublicKey()
	if err != nil {
		http.Error(w, "invalid public key", http.StatusBadRequest)
		return
	}

	if signer.String() != pubKey.String() {
		http.Error(w, "signer does not match claimed public key", http.StatusForbidden)
		return
	}

	if serviceType == NodeService {
		if regReq.NodeIndex < 0 || regReq.NodeIndex >= r.bookConfig.NumNodes {
			http.Error(w, fmt.Sprintf("node index %d outside [0, %d)", regReq.NodeIndex, r.bookConfig.NumNodes), http.StatusBadRequest)
			return
		}
	}

	r.mu.Lock()
	r.services[serviceType][pubKey.String()] = &signedReq
	r.mu.Unlock()

	if r.config != nil && r.config.Store != nil {
		if err := r.config.Store.SaveService(&signedReq); err != nil {
			http.Error(w, fmt.Errorf("persisting registration: %w", err).Error(), http.StatusInternalServerError)
			return
		}
	}

	json.NewEncoder(w).Encode(&ServiceRegistrationResponse{
		Success:   true,
		PublicKey: pubKey.String(),
	})
}

func (r *Registry) handleUnregister(w http.ResponseWriter, req *http.Request) {
	publicKey := chi.URLParam(req, "public_key")

	r.mu.Lock()
	for _, typeMap := range r.services {
		delete(typeMap, publicKey)
	}
	r.mu.Unlock()

	if r.config != nil && r.config.Store != nil {
		if err := r.config.Store.DeleteService(publicKey); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (r *Registry) handleGetServices(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	resp := &ServiceListResponse{
		Nodes:     r.collectServices(NodeService),
		Operators: r.collectServices(OperatorService),
		Clients:   r.collectServices(ClientService),
	}
	r.mu.RUnlock()

	json.NewEncoder(w).Encode(resp)
}

func (r *Registry) handleGetServicesByType(w http.ResponseWriter, req *http.Request) {
	svcType := ServiceType(chi.URLParam(req, "type"))
	if !svcType.Valid() {
		http.Error(w, "invalid service type", http.StatusBadRequest)
		return
	}

	r.mu.RLock()
	services := r.collectServices(svcType)
	r.mu.RUnlock()

	json.NewEncoder(w).Encode(services)
}

func (r *Registry) handleGetConfig(w http.ResponseWriter, req *http.Request) {
	json.NewEncoder(w).Encode(r.bookConfig)
}

// collectServices snapshots one type's registrations. Callers hold r.mu.
func (r *Registry) collectServices(serviceType ServiceType) []*protocol.Signed[RegisteredService] {
	typeMap := r.services[serviceType]
	result := make([]*protocol.Signed[RegisteredService], 0, len(typeMap))
	for _, svc := range typeMap {
		result = append(result, svc)
	}
	return result
}
