package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/choosek/tinybook/crypto"
	"github.com/choosek/tinybook/protocol"
)

// discoveryHandler processes discovered services during the discovery loop.
type discoveryHandler interface {
	onNodeDiscovered(*RegisteredService) error
	onOperatorDiscovered(*RegisteredService) error
	onClientDiscovered(*RegisteredService) error
	selfPublicKey() string
}

// baseService contains common fields and methods for all HTTP services.
type baseService struct {
	config     *ServiceConfig
	log        *slog.Logger
	registry   *LocalServiceRegistry
	httpClient *http.Client
	signingKey crypto.PrivateKey

	mu sync.RWMutex
}

func newBaseService(config *ServiceConfig, log *slog.Logger, signingKey crypto.PrivateKey) (*baseService, error) {
	if config.BookConfig == nil {
		return nil, fmt.Errorf("service config carries no book config")
	}

	return &baseService{
		config:     config,
		log:        log,
		registry:   NewLocalServiceRegistry(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		signingKey: signingKey,
	}, nil
}

func (b *baseService) publicKey() crypto.PublicKey {
	pubKey, _ := b.signingKey.PublicKey()
	return pubKey
}

func (b *baseService) registrationRecord() *RegisteredService {
	return &RegisteredService{
		ServiceType:  b.config.ServiceType,
		HTTPEndpoint: fmt.Sprintf("http://%s", b.config.HTTPAddr),
		PublicKey:    b.publicKey().String(),
		NodeIndex:    b.config.NodeIndex,
	}
}

// registerWithRegistry registers this service with the central registry.
// Nodes and operators use the authenticated admin endpoint; clients use
// the public one.
func (b *baseService) registerWithRegistry() error {
	if b.config.RegistryURL == "" {
		return nil
	}

	signedReq, err := protocol.NewSigned(b.signingKey, b.registrationRecord())
	if err != nil {
		return fmt.Errorf("failed to sign registration: %w", err)
	}

	body, _ := json.Marshal(signedReq)

	var url string
	if b.config.ServiceType == ClientService {
		url = fmt.Sprintf("%s/register/client", b.config.RegistryURL)
	} else {
		url = fmt.Sprintf("%s/admin/register/%s", b.config.RegistryURL, b.config.ServiceType)
	}

	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if b.config.ServiceType != ClientService && b.config.AdminToken != "" {
		user, pass := parseAdminToken(b.config.AdminToken)
		httpReq.SetBasicAuth(user, pass)
	}

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("registration failed (%d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func parseAdminToken(token string) (user, pass string) {
	idx := strings.Index(token, ":")
	if idx < 0 {
		return token, ""
	}
	return token[:idx], token[idx+1:]
}

func (b *baseService) runDiscoveryLoop(ctx context.Context, handler discoveryHandler) {
	b.discoverServices(handler)

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.discoverServices(handler)
		}
	}
}

func (b *baseService) discoverServices(handler discoveryHandler) {
	if b.config.RegistryURL == "" {
		return
	}

	resp, err := b.httpClient.Get(b.config.RegistryURL + "/services")
	if err != nil {
		b.log.Warn("service discovery failed", "err", err)
		return
	}
	defer resp.Body.Close()

	var list ServiceListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		b.log.Warn("could not decode service list", "err", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	selfPubKey := handler.selfPublicKey()

	dispatch := func(signed []*protocol.Signed[RegisteredService], known map[string]*RegisteredService,
		onDiscovered func(*RegisteredService) error) {
		for _, entry := range signed {
			svc, err := verifyRegistration(entry)
			if err != nil {
				b.log.Warn("discarding service with bad registration signature", "err", err)
				continue
			}
			if svc.PublicKey == selfPubKey {
				continue
			}
			if _, exists := known[svc.PublicKey]; exists {
				continue
			}
			if err := onDiscovered(svc); err != nil {
				b.log.Warn("could not process discovered service", "endpoint", svc.HTTPEndpoint, "err", err)
			}
		}
	}

	dispatch(list.Nodes, b.registry.Nodes, handler.onNodeDiscovered)
	dispatch(list.Operators, b.registry.Operators, handler.onOperatorDiscovered)
	dispatch(list.Clients, b.registry.Clients, handler.onClientDiscovered)
}

// verifyRegistration checks the registration signature and the claimed key.
func verifyRegistration(signed *protocol.Signed[RegisteredService]) (*RegisteredService, error) {
	svc, signer, err := signed.Recover()
	if err != nil {
		return nil, err
	}
	if signer.String() != svc.PublicKey {
		return nil, fmt.Errorf("signer does not match claimed public key")
	}
	return svc, nil
}

// storeNode records a verified node endpoint. Callers hold b.mu.
func (b *baseService) storeNode(svc *RegisteredService) {
	b.registry.Nodes[svc.PublicKey] = svc
}

// storeOperator records a verified operator endpoint. Callers hold b.mu.
func (b *baseService) storeOperator(svc *RegisteredService) {
	b.registry.Operators[svc.PublicKey] = svc
}

// storeClient records a verified client endpoint. Callers hold b.mu.
func (b *baseService) storeClient(svc *RegisteredService) {
	b.registry.Clients[svc.PublicKey] = svc
}

// postJSON sends a JSON POST request and decodes the JSON response into out
// when out is non-nil.
func (b *baseService) postJSON(url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := b.httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// FetchBookConfig retrieves the shared book configuration from a registry.
func FetchBookConfig(registryURL string) (*protocol.BookConfig, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(registryURL + "/config")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var config protocol.BookConfig
	if err := json.NewDecoder(resp.Body).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
