// Command demo runs a complete in-process deployment and one matching
// round: a registry, three nodes, an operator, and two clients submitting
// a sealed ask and a sealed bid.
//
// # Usage
//
//	go run ./cmd/demo
//	go run ./cmd/demo --nodes=5 --domain=32 --ask=7 --bid=21
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/choosek/tinybook/cmd/common"
	"github.com/choosek/tinybook/services"
)

func main() {
	var (
		numNodes    = flag.Int("nodes", 3, "Number of nodes")
		priceDomain = flag.Int("domain", 16, "Number of price slots")
		askPrice    = flag.Int("ask", 4, "Sealed ask price")
		bidPrice    = flag.Int("bid", 9, "Sealed bid price")
		basePort    = flag.Int("port", 8000, "Starting port for services")
		debug       = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	if err := run(*numNodes, *priceDomain, *askPrice, *bidPrice, *basePort, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(numNodes, priceDomain, askPrice, bidPrice, basePort int, debug bool) error {
	log := common.NewLogger(debug)

	orchestrator := services.NewOrchestrator(&services.OrchestratorConfig{
		NumNodes:    numNodes,
		NumClients:  2,
		PriceDomain: priceDomain,
		BasePort:    basePort,
		Log:         log,
	})

	if err := orchestrator.Deploy(); err != nil {
		return fmt.Errorf("deployment failed: %w", err)
	}
	defer orchestrator.Shutdown()

	fmt.Printf("Submitting sealed orders: ask=%d, bid=%d over domain [0, %d)\n",
		askPrice, bidPrice, priceDomain)

	result, err := orchestrator.RunMatch(askPrice, bidPrice)
	if err != nil {
		return fmt.Errorf("matching round failed: %w", err)
	}

	if result.Matched {
		fmt.Printf("Matched: clearing range [%d, %d]\n", result.Range.Ask, result.Range.Bid)
	} else {
		fmt.Println("No match: the bid price does not reach the ask price")
	}
	return nil
}
