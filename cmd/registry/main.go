// Command registry runs the standalone service registry.
//
// The registry provides centralized service discovery for matching
// workflow deployments and distributes the shared book configuration.
//
// # Configuration File
//
// Create a YAML file with registry settings:
//
//	http_addr: ":8080"
//	admin_token: "admin:secret"
//	book:
//	  price_domain: 16
//	  num_nodes: 3
//	  batch_size: 16
//	postgres:
//	  host: "localhost"
//	  port: 5432
//	  user: "registry"
//	  password: "secret"
//	  database: "registry"
//
// # Endpoints
//
// Public (no auth):
//   - POST /register/client - Client self-registration
//   - GET /services - List all services
//   - GET /services/{type} - List services by type
//   - GET /config - Book configuration
//
// Admin (basic auth when admin_token set):
//   - POST /admin/register/{type} - Register a node or operator
//   - DELETE /admin/unregister/{key} - Remove a service
//
// # Usage
//
//	go run ./cmd/registry --config=registry.yaml
//	go run ./cmd/registry --addr=:8080 --admin-token="admin:secret"
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/choosek/tinybook/api/httpserver"
	"github.com/choosek/tinybook/cmd/common"
	"github.com/choosek/tinybook/services"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file")
		addr        = flag.String("addr", "", "HTTP listen address")
		adminToken  = flag.String("admin-token", "", "Basic auth token for admin operations (user:pass)")
		priceDomain = flag.Int("price-domain", 0, "Number of price slots")
		numNodes    = flag.Int("nodes", 0, "Number of nodes in the deployment")
		batchSize   = flag.Int("batch-size", 0, "Instances per preprocessing batch")
		debug       = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *adminToken != "" {
		cfg.AdminToken = *adminToken
	}
	if *priceDomain != 0 {
		cfg.Book.PriceDomain = *priceDomain
	}
	if *numNodes != 0 {
		cfg.Book.NumNodes = *numNodes
	}
	if *batchSize != 0 {
		cfg.Book.BatchSize = *batchSize
	}

	if err := run(cfg, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfiguration(configPath string) (*common.Config, error) {
	if configPath != "" {
		return common.LoadConfig(configPath)
	}
	return common.DefaultConfig(), nil
}

func run(cfg *common.Config, debug bool) error {
	log := common.NewLogger(debug)

	var store services.RegistryStore
	if pgConfig := cfg.PostgresConfig(); pgConfig != nil {
		pgStore, err := services.NewPostgresStore(pgConfig)
		if err != nil {
			return fmt.Errorf("postgres store: %w", err)
		}
		defer pgStore.Close()
		store = pgStore
		log.Info("registry persistence enabled", "host", pgConfig.Host, "database", pgConfig.Database)
	}

	registry, err := services.NewRegistry(&services.RegistryConfig{Store: store}, cfg.BookConfig())
	if err != nil {
		return err
	}

	registrar := &registryRoutes{registry: registry, adminToken: cfg.AdminToken}

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cfg.HTTPAddr,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, registrar)
	if err != nil {
		return err
	}

	if cfg.AdminToken == "" {
		log.Warn("no admin token configured, /admin/* routes are unprotected")
	}

	srv.RunInBackground()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down registry")
	srv.Shutdown()
	return nil
}

// registryRoutes mounts the registry's endpoints on the base server.
type registryRoutes struct {
	registry   *services.Registry
	adminToken string
}

func (rr *registryRoutes) RegisterRoutes(r chi.Router) {
	rr.registry.RegisterPublicRoutes(r)
	r.Route("/admin", func(admin chi.Router) {
		if rr.adminToken != "" {
			user, pass, _ := strings.Cut(rr.adminToken, ":")
			admin.Use(middleware.BasicAuth("registry admin", map[string]string{user: pass}))
		}
		rr.registry.RegisterAdminRoutes(admin)
	})
}
