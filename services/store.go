package services

import (
	"sync"

	"github.com/choosek/tinybook/protocol"
)

// RegistryStore persists signed service registrations.
type RegistryStore interface {
	SaveService(signed *protocol.Signed[RegisteredService]) error
	DeleteService(publicKey string) error
	LoadAllServices() (map[ServiceType]map[string]*protocol.Signed[RegisteredService], error)
}

// InMemoryStore implements RegistryStore for testing without a database.
type InMemoryStore struct {
	mu       sync.Mutex
	services map[string]*protocol.Signed[RegisteredService]
}

// NewInMemoryStore creates an in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		services: make(map[string]*protocol.Signed[RegisteredService]),
	}
}

// SaveService stores a service in memory.
func (s *InMemoryStore) SaveService(signed *protocol.Signed[RegisteredService]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[signed.Object.PublicKey] = signed
	return nil
}

// DeleteService removes a service from memory.
func (s *InMemoryStore) DeleteService(publicKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.services, publicKey)
	return nil
}

// LoadAllServices returns all stored services.
func (s *InMemoryStore) LoadAllServices() (map[ServiceType]map[string]*protocol.Signed[RegisteredService], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := map[ServiceType]map[string]*protocol.Signed[RegisteredService]{
		NodeService:     make(map[string]*protocol.Signed[RegisteredService]),
		OperatorService: make(map[string]*protocol.Signed[RegisteredService]),
		ClientService:   make(map[string]*protocol.Signed[RegisteredService]),
	}

	for pk, signed := range s.services {
		svcType := signed.Object.ServiceType
		if !svcType.Valid() {
			continue
		}
		result[svcType][pk] = signed
	}

	return result, nil
}
