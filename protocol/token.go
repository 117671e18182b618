package protocol

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// RequestToken is an opaque, single-use handle binding a client's future
// order to one correlated-randomness instance of one preprocessing batch
// and to a declared role. Tokens are self-describing so that nodes and
// clients can validate artifacts without shared state beyond the batch.
type RequestToken struct {
	BatchID  uuid.UUID `json:"batch_id"`
	Role     Role      `json:"role"`
	Instance int       `json:"instance"`
	Domain   int       `json:"domain"`
	NumNodes int       `json:"num_nodes"`
}

// Matches reports whether two tokens refer to the same batch, domain, and
// node set.
func (t RequestToken) Matches(o RequestToken) bool {
	return t.BatchID == o.BatchID && t.Domain == o.Domain && t.NumNodes == o.NumNodes
}

// Batch is the coordinated allocation handle for one preprocessing batch.
// It is shared by all clients of an operational epoch: instance allocation
// is a single atomic counter per role, so every node agrees on which
// instance a token refers to and two clients never receive overlapping
// instances. The ask token and the bid token carrying the same instance
// index form the matched pair of one run.
type Batch struct {
	ID       uuid.UUID
	Domain   int
	NumNodes int
	Size     int

	askNext atomic.Int64
	bidNext atomic.Int64
}

// NewBatch creates the allocation handle for a freshly dealt batch.
func NewBatch(domain, numNodes, size int) *Batch {
	return &Batch{
		ID:       uuid.New(),
		Domain:   domain,
		NumNodes: numNodes,
		Size:     size,
	}
}

// RequestAsk allocates the next unused instance for an ask order.
// Fails with ErrExhaustedBatch once all instances are spoken for.
func (b *Batch) RequestAsk() (RequestToken, error) {
	return b.request(RoleAsk, &b.askNext)
}

// RequestBid allocates the next unused instance for a bid order.
// Fails with ErrExhaustedBatch once all instances are spoken for.
func (b *Batch) RequestBid() (RequestToken, error) {
	return b.request(RoleBid, &b.bidNext)
}

// Request allocates a token for the given role.
func (b *Batch) Request(role Role) (RequestToken, error) {
	switch role {
	case RoleAsk:
		return b.RequestAsk()
	case RoleBid:
		return b.RequestBid()
	}
	return RequestToken{}, fmt.Errorf("%w: %q", ErrRoleMismatch, role)
}

func (b *Batch) request(role Role, next *atomic.Int64) (RequestToken, error) {
	instance := next.Inc() - 1
	if instance >= int64(b.Size) {
		return RequestToken{}, fmt.Errorf("%w: %d instances dealt", ErrExhaustedBatch, b.Size)
	}

	return RequestToken{
		BatchID:  b.ID,
		Role:     role,
		Instance: int(instance),
		Domain:   b.Domain,
		NumNodes: b.NumNodes,
	}, nil
}

// Remaining returns how many instances are still unallocated for the role.
func (b *Batch) Remaining(role Role) int {
	var used int64
	switch role {
	case RoleAsk:
		used = b.askNext.Load()
	case RoleBid:
		used = b.bidNext.Load()
	default:
		return 0
	}
	if used > int64(b.Size) {
		used = int64(b.Size)
	}
	return b.Size - int(used)
}
