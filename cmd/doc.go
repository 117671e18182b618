// Package cmd provides CLI commands for the matching workflow services.
//
// # Commands
//
// registry: Central service discovery and configuration distribution.
// Nodes and the operator register here; clients discover them.
//
//	go run ./cmd/registry --addr=:8080 --admin-token=admin:secret
//
// node: One node of the workflow. Holds preprocessed correlated
// randomness, serves one-time mask vectors, and computes outcome shares.
//
//	go run ./cmd/node --registry=http://localhost:8080 --index=0 --addr=:8081 --admin-token=admin:secret
//
// operator: Deals preprocessing batches, allocates request tokens, and
// reveals outcomes from the nodes' shares.
//
//	go run ./cmd/operator --registry=http://localhost:8080 --addr=:8090 --admin-token=admin:secret --preprocess
//
// order-cli: Submits sealed orders to a deployed workflow and fetches
// revealed outcomes.
//
//	go run ./cmd/order-cli submit -r http://localhost:8080 --role ask --price 4 --wait
//	go run ./cmd/order-cli result -r http://localhost:8080 --batch <uuid> --instance 0
//
// demo: Self-contained local deployment running one matching round.
//
//	go run ./cmd/demo --nodes=3 --domain=16 --ask=4 --bid=9
//
// # Configuration
//
// The registry, node, and operator commands support YAML configuration
// files via the --config flag. Command-line flags override config file
// values. Example node config:
//
//	http_addr: ":8081"
//	registry_url: "http://localhost:8080"
//	admin_token: "admin:secret"
//	node_index: 0
//	signing_key: ""   # Hex-encoded Ed25519 key, generates if empty
//
// The registry additionally accepts the shared book settings and optional
// PostgreSQL persistence:
//
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
package cmd
