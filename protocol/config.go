package protocol

// DefaultBatchSize is the number of correlated-randomness instances dealt
// when a preprocessing call does not specify one. Each matched ask/bid pair
// consumes one instance, so the batch must be sized to the expected number
// of concurrent matching runs.
const DefaultBatchSize = 16

// BookConfig provides configuration parameters for the matching workflow.
type BookConfig struct {
	// PriceDomain is the number of distinct price slots. Valid prices are
	// integers in [0, PriceDomain).
	PriceDomain int `json:"price_domain"`

	// NumNodes is the number of nodes supporting the workflow. All of them
	// must contribute masks and outcome shares for every matching run.
	NumNodes int `json:"num_nodes"`

	// BatchSize is the number of correlated-randomness instances per
	// preprocessing batch.
	BatchSize int `json:"batch_size"`
}

// WithDefaults returns a copy of the config with zero values replaced by
// defaults.
func (c BookConfig) WithDefaults() BookConfig {
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	return c
}
