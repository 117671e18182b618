// Command node runs one node of the matching workflow.
//
// A node holds its slice of the preprocessed correlated randomness, serves
// one-time mask vectors to clients, and computes outcome shares once both
// masked orders of a pair arrive. It registers with the central registry
// and fetches the shared book configuration from it.
//
// # Usage
//
//	go run ./cmd/node --registry=http://localhost:8080 --index=0 --addr=:8081 --admin-token=admin:secret
//	go run ./cmd/node --config=node.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/choosek/tinybook/api/httpserver"
	"github.com/choosek/tinybook/cmd/common"
	"github.com/choosek/tinybook/services"
)

func main() {
	var (
		configPath    = flag.String("config", "", "Path to YAML config file")
		addr          = flag.String("addr", "", "HTTP listen address")
		registryURL   = flag.String("registry", "", "Registry URL for service discovery")
		adminToken    = flag.String("admin-token", "", "Admin token for registry (user:pass)")
		nodeIndex     = flag.Int("index", -1, "This node's position in the agreed node ordering")
		signingKeyHex = flag.String("signing-key", "", "Ed25519 signing key (hex, generates if empty)")
		debug         = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	cfg := common.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = common.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *registryURL != "" {
		cfg.RegistryURL = *registryURL
	}
	if *adminToken != "" {
		cfg.AdminToken = *adminToken
	}
	if *nodeIndex >= 0 {
		cfg.NodeIndex = *nodeIndex
	}
	if *signingKeyHex != "" {
		cfg.SigningKey = *signingKeyHex
	}

	if err := run(cfg, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *common.Config, debug bool) error {
	if cfg.RegistryURL == "" {
		return fmt.Errorf("a registry URL is required")
	}

	log := common.NewLogger(debug).With("service", "node", "index", cfg.NodeIndex)

	signingKey, err := common.LoadOrGenerateSigningKey(cfg.SigningKey)
	if err != nil {
		return fmt.Errorf("loading signing key: %w", err)
	}

	// The registry is the source of truth for the shared configuration.
	bookConfig, err := services.FetchBookConfig(cfg.RegistryURL)
	if err != nil {
		return fmt.Errorf("fetching book config: %w", err)
	}

	node, err := services.NewHTTPNode(&services.ServiceConfig{
		BookConfig:  bookConfig,
		HTTPAddr:    cfg.HTTPAddr,
		RegistryURL: cfg.RegistryURL,
		NodeIndex:   cfg.NodeIndex,
		AdminToken:  cfg.AdminToken,
	}, log, signingKey)
	if err != nil {
		return err
	}

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cfg.HTTPAddr,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, node)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.RunInBackground()
	if err := node.Start(ctx); err != nil {
		return err
	}

	log.Info("node running", "addr", cfg.HTTPAddr, "pubkey", node.PublicKey())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down node")
	cancel()
	srv.Shutdown()
	return nil
}
