// Command order-cli interacts with a deployed matching workflow.
//
// # Usage
//
// Submit a sealed order and wait for the outcome:
//
//	go run ./cmd/order-cli submit -r http://localhost:8080 --role ask --price 4
//	go run ./cmd/order-cli submit -r http://localhost:8080 --role bid --price 9 --wait
//
// Fetch the outcome of a known run:
//
//	go run ./cmd/order-cli result -r http://localhost:8080 --batch <uuid> --instance 0
//
// Ask the operator to deal a fresh preprocessing batch:
//
//	go run ./cmd/order-cli preprocess -r http://localhost:8080
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/choosek/tinybook/cmd/common"
	"github.com/choosek/tinybook/protocol"
	"github.com/choosek/tinybook/services"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "submit":
		err = runSubmit(os.Args[2:])
	case "result":
		err = runResult(os.Args[2:])
	case "preprocess":
		err = runPreprocess(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: order-cli <submit|result|preprocess> [flags]")
}

// newClient builds a registry-backed client driver and waits for it to
// discover the deployment.
func newClient(registryURL string) (*services.OrderClient, error) {
	signingKey, err := common.LoadOrGenerateSigningKey("")
	if err != nil {
		return nil, err
	}

	bookConfig, err := services.FetchBookConfig(registryURL)
	if err != nil {
		return nil, fmt.Errorf("fetching book config: %w", err)
	}

	client, err := services.NewOrderClient(&services.ServiceConfig{
		BookConfig:  bookConfig,
		RegistryURL: registryURL,
	}, common.NewLogger(false), signingKey)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func runSubmit(args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	registryURL := fs.String("r", "http://localhost:8080", "Registry URL")
	roleName := fs.String("role", "", "Order role: ask or bid")
	price := fs.Int("price", -1, "Sealed price")
	wait := fs.Bool("wait", false, "Wait for the counterpart order and print the outcome")
	timeout := fs.Duration("timeout", 30*time.Second, "How long to wait for the outcome")
	fs.Parse(args)

	role := protocol.Role(*roleName)
	if !role.Valid() {
		return fmt.Errorf("role must be ask or bid")
	}

	client, err := newClient(*registryURL)
	if err != nil {
		return err
	}

	token, err := client.SubmitOrder(role, *price)
	if err != nil {
		return err
	}

	fmt.Printf("Order submitted: batch=%s instance=%d role=%s\n", token.BatchID, token.Instance, token.Role)

	if !*wait {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := client.WaitForResult(ctx, token, 500*time.Millisecond)
	if err != nil {
		return err
	}

	printResult(result)
	return nil
}

func runResult(args []string) error {
	fs := flag.NewFlagSet("result", flag.ExitOnError)
	registryURL := fs.String("r", "http://localhost:8080", "Registry URL")
	batchID := fs.String("batch", "", "Batch id of the run")
	instance := fs.Int("instance", 0, "Instance index of the run")
	fs.Parse(args)

	id, err := uuid.Parse(*batchID)
	if err != nil {
		return fmt.Errorf("invalid batch id: %w", err)
	}

	client, err := newClient(*registryURL)
	if err != nil {
		return err
	}

	result, err := client.FetchResult(protocol.RequestToken{BatchID: id, Instance: *instance})
	if err != nil {
		return err
	}

	printResult(result)
	return nil
}

func runPreprocess(args []string) error {
	fs := flag.NewFlagSet("preprocess", flag.ExitOnError)
	registryURL := fs.String("r", "http://localhost:8080", "Registry URL")
	batchSize := fs.Int("batch-size", 0, "Instances to deal (0 uses the configured default)")
	fs.Parse(args)

	client, err := newClient(*registryURL)
	if err != nil {
		return err
	}

	info, err := client.Preprocess(*batchSize)
	if err != nil {
		return err
	}

	fmt.Printf("Batch dealt: %s (%d instances, domain [0, %d), %d nodes)\n",
		info.BatchID, info.Size, info.Domain, info.NumNodes)
	return nil
}

func printResult(result *services.ResultResponse) {
	if !result.Matched {
		fmt.Println("No match: the bid price does not reach the ask price")
		return
	}
	fmt.Printf("Matched: clearing range [%d, %d]\n", result.Range.Ask, result.Range.Bid)
}
