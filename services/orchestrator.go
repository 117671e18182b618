package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/choosek/tinybook/crypto"
	"github.com/choosek/tinybook/protocol"
)

// OrchestratorConfig contains deployment configuration.
type OrchestratorConfig struct {
	NumNodes    int
	NumClients  int
	PriceDomain int
	BatchSize   int

	BasePort       int // Starting port for services
	AdminToken     string
	Log            *slog.Logger
	PostgresConfig *PostgresConfig // Optional registry persistence
}

// Orchestrator manages an in-process deployment of the full matching
// workflow: one registry, one operator, a set of nodes, and client drivers.
type Orchestrator struct {
	config     *OrchestratorConfig
	bookConfig *protocol.BookConfig
	log        *slog.Logger

	registrySrv *http.Server
	registryURL string

	nodes    []*DeployedService
	operator *DeployedService
	clients  []*OrderClient

	ctx    context.Context
	cancel context.CancelFunc
}

// DeployedService represents a running service instance.
type DeployedService struct {
	ServiceType ServiceType
	HTTPAddr    string
	HTTPServer  *http.Server

	SigningKey crypto.PrivateKey
	PublicKey  crypto.PublicKey

	Node     *HTTPNode
	Operator *HTTPOperator
}

// NewOrchestrator creates a deployment orchestrator.
func NewOrchestrator(config *OrchestratorConfig) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())

	log := config.Log
	if log == nil {
		log = slog.Default()
	}

	bookConfig := (&protocol.BookConfig{
		PriceDomain: config.PriceDomain,
		NumNodes:    config.NumNodes,
		BatchSize:   config.BatchSize,
	}).WithDefaults()

	return &Orchestrator{
		config:     config,
		bookConfig: &bookConfig,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Deploy starts the registry, all nodes, the operator, and the clients.
func (o *Orchestrator) Deploy() error {
	if err := o.deployRegistry(); err != nil {
		return fmt.Errorf("deploy registry: %w", err)
	}

	for i := 0; i < o.config.NumNodes; i++ {
		node, err := o.deployNode(i)
		if err != nil {
			return fmt.Errorf("deploy node %d: %w", i, err)
		}
		o.nodes = append(o.nodes, node)
	}

	operator, err := o.deployOperator()
	if err != nil {
		return fmt.Errorf("deploy operator: %w", err)
	}
	o.operator = operator

	for i := 0; i < o.config.NumClients; i++ {
		client, err := o.deployClient()
		if err != nil {
			return fmt.Errorf("deploy client %d: %w", i, err)
		}
		o.clients = append(o.clients, client)
	}

	o.log.Info("deployment complete",
		"nodes", len(o.nodes), "clients", len(o.clients), "registry", o.registryURL)
	return nil
}

func (o *Orchestrator) deployRegistry() error {
	var store RegistryStore
	if o.config.PostgresConfig != nil {
		pgStore, err := NewPostgresStore(o.config.PostgresConfig)
		if err != nil {
			return fmt.Errorf("postgres store: %w", err)
		}
		store = pgStore
	}

	registry, err := NewRegistry(&RegistryConfig{Store: store}, o.bookConfig)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("localhost:%d", o.config.BasePort)
	o.registryURL = fmt.Sprintf("http://%s", addr)

	router := chi.NewRouter()
	registry.RegisterPublicRoutes(router)
	router.Route("/admin", func(r chi.Router) {
		if o.config.AdminToken != "" {
			user, pass := parseAdminToken(o.config.AdminToken)
			r.Use(basicAuthMiddleware(user, pass))
		}
		registry.RegisterAdminRoutes(r)
	})

	o.registrySrv = &http.Server{Addr: addr, Handler: router}
	go func() {
		if err := o.registrySrv.ListenAndServe(); err != http.ErrServerClosed {
			o.log.Error("registry server failed", "err", err)
		}
	}()

	// Wait for the listener to come up before services register.
	time.Sleep(100 * time.Millisecond)
	return nil
}

func (o *Orchestrator) deployNode(index int) (*DeployedService, error) {
	pubKey, privKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate keys: %w", err)
	}

	addr := fmt.Sprintf("localhost:%d", o.config.BasePort+1+index)
	config := &ServiceConfig{
		BookConfig:  o.bookConfig,
		HTTPAddr:    addr,
		RegistryURL: o.registryURL,
		NodeIndex:   index,
		AdminToken:  o.config.AdminToken,
	}

	node, err := NewHTTPNode(config, o.log.With("service", "node", "index", index), privKey)
	if err != nil {
		return nil, err
	}

	service := &DeployedService{
		ServiceType: NodeService,
		HTTPAddr:    fmt.Sprintf("http://%s", addr),
		SigningKey:  privKey,
		PublicKey:   pubKey,
		Node:        node,
	}

	router := chi.NewRouter()
	node.RegisterRoutes(router)
	service.HTTPServer = &http.Server{Addr: addr, Handler: router}

	go func() {
		if err := service.HTTPServer.ListenAndServe(); err != http.ErrServerClosed {
			o.log.Error("node server failed", "index", index, "err", err)
		}
	}()
	time.Sleep(50 * time.Millisecond)

	if err := node.Start(o.ctx); err != nil {
		return nil, err
	}
	return service, nil
}

func (o *Orchestrator) deployOperator() (*DeployedService, error) {
	pubKey, privKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate keys: %w", err)
	}

	addr := fmt.Sprintf("localhost:%d", o.config.BasePort+1+o.config.NumNodes)
	config := &ServiceConfig{
		BookConfig:  o.bookConfig,
		HTTPAddr:    addr,
		RegistryURL: o.registryURL,
		AdminToken:  o.config.AdminToken,
	}

	operator, err := NewHTTPOperator(config, o.log.With("service", "operator"), privKey)
	if err != nil {
		return nil, err
	}

	service := &DeployedService{
		ServiceType: OperatorService,
		HTTPAddr:    fmt.Sprintf("http://%s", addr),
		SigningKey:  privKey,
		PublicKey:   pubKey,
		Operator:    operator,
	}

	router := chi.NewRouter()
	operator.RegisterRoutes(router)
	service.HTTPServer = &http.Server{Addr: addr, Handler: router}

	go func() {
		if err := service.HTTPServer.ListenAndServe(); err != http.ErrServerClosed {
			o.log.Error("operator server failed", "err", err)
		}
	}()
	time.Sleep(50 * time.Millisecond)

	if err := operator.Start(o.ctx); err != nil {
		return nil, err
	}
	return service, nil
}

func (o *Orchestrator) deployClient() (*OrderClient, error) {
	_, privKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate keys: %w", err)
	}

	config := &ServiceConfig{
		BookConfig:  o.bookConfig,
		RegistryURL: o.registryURL,
	}

	client, err := NewOrderClient(config, o.log.With("service", "client"), privKey)
	if err != nil {
		return nil, err
	}
	if err := client.Start(o.ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// RunMatch executes one complete matching run with two of the deployed
// clients and returns the revealed outcome.
func (o *Orchestrator) RunMatch(askPrice, bidPrice int) (*ResultResponse, error) {
	if len(o.clients) < 2 {
		return nil, fmt.Errorf("need at least two deployed clients")
	}

	if _, err := o.operator.Operator.Preprocess(0); err != nil {
		return nil, fmt.Errorf("preprocessing: %w", err)
	}

	askToken, err := o.clients[0].SubmitOrder(protocol.RoleAsk, askPrice)
	if err != nil {
		return nil, fmt.Errorf("submitting ask: %w", err)
	}
	if _, err := o.clients[1].SubmitOrder(protocol.RoleBid, bidPrice); err != nil {
		return nil, fmt.Errorf("submitting bid: %w", err)
	}

	ctx, cancel := context.WithTimeout(o.ctx, 10*time.Second)
	defer cancel()
	return o.clients[0].WaitForResult(ctx, askToken, 100*time.Millisecond)
}

// Shutdown stops all services.
func (o *Orchestrator) Shutdown() error {
	o.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, svc := range o.nodes {
		if err := svc.HTTPServer.Shutdown(ctx); err != nil {
			o.log.Error("error shutting down node", "addr", svc.HTTPAddr, "err", err)
		}
	}
	if o.operator != nil {
		if err := o.operator.HTTPServer.Shutdown(ctx); err != nil {
			o.log.Error("error shutting down operator", "err", err)
		}
	}
	if o.registrySrv != nil {
		if err := o.registrySrv.Shutdown(ctx); err != nil {
			o.log.Error("error shutting down registry", "err", err)
		}
	}

	return nil
}

// basicAuthMiddleware guards the registry admin endpoints.
func basicAuthMiddleware(user, pass string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqUser, reqPass, ok := r.BasicAuth()
			if !ok || reqUser != user || reqPass != pass {
				w.Header().Set("WWW-Authenticate", `Basic realm="registry admin"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
