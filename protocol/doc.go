// Package protocol implements a privacy-preserving order-matching workflow:
// a set of mutually distrusting nodes jointly determine whether a sealed bid
// price and a sealed ask price overlap, and if so reveal only the resulting
// inclusive price range to the workflow operator. No single node, and no
// subset short of all nodes, learns either price.
//
// # Workflow
//
// The workflow is supported by a fixed set of nodes and proceeds in five
// steps:
//
//  1. Preprocessing: the engine deals a batch of correlated-randomness
//     instances; every node receives its slice of every instance
//     (Preprocess, Node.InstallBatch).
//
//  2. Requests: a client obtains a RequestToken per role from the batch
//     (Batch.RequestAsk, Batch.RequestBid). Allocation is coordinated:
//     every node agrees on which instance a token refers to, and the ask
//     and bid token of one matching run share an instance index.
//
//  3. Masks: the client presents its token to every node and collects one
//     MaskSet per node (Node.Masks). A token is served at most once per
//     node; mask shares are one-time pads.
//
//  4. Orders: the client encodes its price as a monotone indicator vector
//     over the price domain and masks it with the sum of all node mask
//     shares (NewMaskedOrder). The masked order is broadcast to all nodes.
//
//  5. Outcome: once a node holds both masked orders of a pair it derives
//     its share of the slot-wise product (Node.Outcome); the operator
//     reconstructs the product from all shares (Reveal). The product is the
//     match indicator: a contiguous run of ones spanning exactly the
//     inclusive range [ask, bid], or all zeros when bid < ask.
//
// # Price encoding
//
// An ask at price p accepts every clearing slot at or above p; a bid at
// price p accepts every slot at or below p. The slot-wise product of the
// two indicator vectors is therefore 1 exactly on the overlap, and the
// revealed range carries no information beyond the two prices' overlap.
//
// # Trust model
//
// Nodes are assumed honest for correctness; only privacy is protected, and
// only against curious nodes that do not all collude. Correlated-randomness
// instances are strictly single-use; every misuse of a token, an instance,
// or a set of shares aborts the affected request with a sentinel error from
// this package without disturbing other in-flight instances.
package protocol
