package protocol

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/choosek/tinybook/engine"
)

// Preprocess runs the preprocessing workflow for a set of in-process nodes:
// it has the engine deal a batch of correlated-randomness instances for the
// stated price domain and installs every node's slice. It returns the
// allocation handle clients draw request tokens from.
//
// Must be called before any token is issued. Calling it again deals a
// fresh, independently identified batch; earlier batches remain valid and
// the two are never confused, since every downstream artifact carries its
// batch id.
func Preprocess(nodes []*Node, domain, batchSize int) (*Batch, error) {
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}

	instances, err := engine.Deal(len(nodes), domain, batchSize)
	if err != nil {
		return nil, fmt.Errorf("dealing batch: %w", err)
	}

	batch := NewBatch(domain, len(nodes), batchSize)

	nodeBatches, err := BuildNodeBatches(batch.ID, len(nodes), domain, instances)
	if err != nil {
		return nil, err
	}

	for i, node := range nodes {
		if err := node.InstallBatch(nodeBatches[i]); err != nil {
			return nil, fmt.Errorf("installing batch on node %d: %w", i, err)
		}
	}

	return batch, nil
}

// BuildNodeBatches splits dealt instances into the per-node material
// bundles distributed during preprocessing. Node i receives element i.
func BuildNodeBatches(batchID uuid.UUID, numNodes, domain int, instances []*engine.Instance) ([]*NodeBatch, error) {
	nodeBatches := make([]*NodeBatch, numNodes)
	for node := 0; node < numNodes; node++ {
		materials := make([]*engine.InstanceMaterial, len(instances))
		for i, inst := range instances {
			material, err := inst.MaterialFor(node)
			if err != nil {
				return nil, fmt.Errorf("slicing instance %d: %w", i, err)
			}
			materials[i] = material
		}
		nodeBatches[node] = &NodeBatch{
			BatchID:   batchID,
			Domain:    domain,
			NumNodes:  numNodes,
			NodeIndex: node,
			Instances: materials,
		}
	}
	return nodeBatches, nil
}
