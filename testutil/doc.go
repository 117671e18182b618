/*
Package testutil provides testing utilities for the tinybook matching protocol.

This package contains test data generators and fixtures designed to simplify
writing tests for matching components. It supports unit testing and integration
testing of the protocol stack by providing consistent, customizable fixtures.

# Key Components

## Configuration Generators

Functions for creating customizable book configurations:

	// Create default test config
	config := testutil.NewTestBookConfig()

	// Create custom config with specific options
	customConfig := testutil.NewTestBookConfig(
	    testutil.WithPriceDomain(64),
	    testutil.WithNumNodes(5),
	    testutil.WithBatchSize(8),
	)

## Cryptographic Generators

Utilities for generating keys and random data:

	// Generate random bytes
	randomBytes, _ := testutil.GenerateRandomBytes(32)

	// Generate key pairs
	pubKey, privKey, _ := testutil.GenerateTestKeyPair()

	// Generate multiple public keys
	publicKeys, _ := testutil.GenerateTestPublicKeys(10)

## In-Process Deployments

TestBook assembles nodes with a shared preprocessed batch, without any HTTP
transport, so tests can exercise the matching workflow directly:

	book, _ := testutil.NewTestBook(testutil.WithPriceDomain(12))

	// Run a full round and reveal the outcome
	outcome, _ := book.Match(4, 9)

	// Or drive the phases individually
	token, order, _ := book.SubmitOrder(protocol.RoleAsk, 4)

This package is intended for testing purposes only and should not be used in
production code.
*/
package testutil
