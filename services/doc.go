/*
# Matching Workflow Services

The services package provides HTTP-based implementations of the matching
workflow components for real-world deployment.

## Overview

This package wraps the core protocol implementations with HTTP APIs, enabling:
  - RESTful communication between components
  - Central service discovery through a registry
  - Easy deployment and testing
  - Flexible network topologies

## Components

### Registry

The Registry (`registry.go`) is the rendezvous point of a deployment.
Nodes and the operator register through authenticated admin endpoints,
clients register publicly, and everyone fetches the shared book
configuration from it. Registrations are Ed25519-signed and can be
persisted in PostgreSQL (`postgres_store.go`) or kept in memory
(`store.go`).

  - `POST /admin/register/{service_type}` - Register a node or operator
  - `POST /register/client` - Register a client
  - `GET /services` - List all registered services
  - `GET /config` - Fetch the shared book configuration

### HTTPNode

HTTPNode (`http_node.go`) wraps a protocol node. It installs
operator-signed preprocessing batches, serves one-time mask vectors, and
computes its outcome share once both masked orders of a pair arrive.

  - `POST /node/batch` - Install this node's slice of a dealt batch
  - `POST /node/masks` - Serve the mask vector for a request token
  - `POST /node/orders` - Receive a broadcast masked order
  - `GET /node/shares/{batch_id}/{instance}` - Fetch an outcome share

### HTTPOperator

HTTPOperator (`http_operator.go`) deals preprocessing batches,
distributes each node's material, allocates request tokens, and reveals
outcomes from the nodes' shares.

  - `POST /operator/preprocess` - Deal and distribute a fresh batch
  - `POST /operator/request/{role}` - Allocate a request token
  - `GET /operator/result/{batch_id}/{instance}` - Reveal an outcome

### OrderClient

OrderClient (`order_client.go`) drives one client's side of the
workflow: request a token, gather masks from every node, build and
broadcast the masked order, and poll for the revealed outcome. The
client's price never leaves the process unmasked.

### Orchestrator

The Orchestrator (`orchestrator.go`) manages an in-process deployment:
it starts the registry, the configured number of nodes, the operator,
and client drivers, and can run complete matching rounds.

## Usage

	config := &services.OrchestratorConfig{
	    NumNodes:    3,
	    NumClients:  2,
	    PriceDomain: 16,
	    BasePort:    8000,
	}

	orchestrator := services.NewOrchestrator(config)
	if err := orchestrator.Deploy(); err != nil {
	    log.Fatal(err)
	}
	defer orchestrator.Shutdown()

	result, err := orchestrator.RunMatch(4, 9)

## Security Notes

  - Ed25519 signatures authenticate registrations, batches, and orders
  - Mask vectors are one-time pads; every token is served once per node
  - A node alone learns nothing about prices; only the full set of
    outcome shares reveals the overlap range
*/
package services
