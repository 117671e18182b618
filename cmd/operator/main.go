// Command operator runs the matching workflow operator.
//
// The operator deals preprocessing batches and distributes each node's
// slice, allocates request tokens to clients, and reveals outcomes from
// the nodes' shares. It registers with the central registry and fetches
// the shared book configuration from it.
//
// # Usage
//
//	go run ./cmd/operator --registry=http://localhost:8080 --addr=:8090 --admin-token=admin:secret
//	go run ./cmd/operator --config=operator.yaml --preprocess
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
		signingKeyHex = flag.String("signing-key", "", "Ed25519 signing key (hex, generates if empty)")
		preprocess    = flag.Bool("preprocess", false, "Deal a batch immediately on startup")
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
	if *signingKeyHex != "" {
		cfg.SigningKey = *signingKeyHex
	}

	if err := run(cfg, *preprocess, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *common.Config, preprocess, debug bool) error {
	if cfg.RegistryURL == "" {
		return fmt.Errorf("a registry URL is required")
	}

	log := common.NewLogger(debug).With("service", "operator")

	signingKey, err := common.LoadOrGenerateSigningKey(cfg.SigningKey)
	if err != nil {
		return fmt.Errorf("loading signing key: %w", err)
	}

	bookConfig, err := services.FetchBookConfig(cfg.RegistryURL)
	if err != nil {
		return fmt.Errorf("fetching book config: %w", err)
	}

	operator, err := services.NewHTTPOperator(&services.ServiceConfig{
		BookConfig:  bookConfig,
		HTTPAddr:    cfg.HTTPAddr,
		RegistryURL: cfg.RegistryURL,
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
	}, operator)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.RunInBackground()
	if err := operator.Start(ctx); err != nil {
		return err
	}

	if preprocess {
		info, err := operator.Preprocess(0)
		if err != nil {
			return fmt.Errorf("initial preprocessing: %w", err)
		}
		log.Info("initial batch dealt", "batch", info.BatchID, "instances", info.Size)
	}

	log.Info("operator running", "addr", cfg.HTTPAddr, "pubkey", operator.PublicKey())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down operator")
	cancel()
	srv.Shutdown()
	return nil
}
