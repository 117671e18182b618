package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBatchRequestPairsByInstance(t *testing.T) {
	batch := NewBatch(16, 3, 4)

	ask1, err := batch.RequestAsk()
	require.NoError(t, err)
	bid1, err := batch.RequestBid()
	require.NoError(t, err)
	ask2, err := batch.RequestAsk()
	require.NoError(t, err)

	require.Equal(t, RoleAsk, ask1.Role)
	require.Equal(t, RoleBid, bid1.Role)
	require.Equal(t, 0, ask1.Instance)
	require.Equal(t, 0, bid1.Instance)
	require.Equal(t, 1, ask2.Instance)

	require.Equal(t, batch.ID, ask1.BatchID)
	require.Equal(t, 16, ask1.Domain)
	require.Equal(t, 3, ask1.NumNodes)
}

func TestBatchExhaustion(t *testing.T) {
	batch := NewBatch(16, 3, 1)

	_, err := batch.RequestAsk()
	require.NoError(t, err)
	_, err = batch.RequestBid()
	require.NoError(t, err)

	_, err = batch.RequestAsk()
	require.ErrorIs(t, err, ErrExhaustedBatch)
	_, err = batch.RequestBid()
	require.ErrorIs(t, err, ErrExhaustedBatch)
}

func TestBatchRemaining(t *testing.T) {
	batch := NewBatch(16, 3, 2)

	require.Equal(t, 2, batch.Remaining(RoleAsk))
	require.Equal(t, 2, batch.Remaining(RoleBid))

	_, err := batch.RequestAsk()
	require.NoError(t, err)

	require.Equal(t, 1, batch.Remaining(RoleAsk))
	require.Equal(t, 2, batch.Remaining(RoleBid))

	_, err = batch.RequestAsk()
	require.NoError(t, err)
	_, err = batch.RequestAsk()
	require.ErrorIs(t, err, ErrExhaustedBatch)

	require.Equal(t, 0, batch.Remaining(RoleAsk))
}

func TestRequestByRole(t *testing.T) {
	batch := NewBatch(16, 3, 2)

	token, err := batch.Request(RoleBid)
	require.NoError(t, err)
	require.Equal(t, RoleBid, token.Role)

	_, err = batch.Request(Role("mid"))
	require.ErrorIs(t, err, ErrRoleMismatch)
}

func TestTokenMatches(t *testing.T) {
	batch := NewBatch(16, 3, 2)
	other := NewBatch(16, 3, 2)

	ask, err := batch.RequestAsk()
	require.NoError(t, err)
	bid, err := batch.RequestBid()
	require.NoError(t, err)
	foreign, err := other.RequestBid()
	require.NoError(t, err)

	require.True(t, ask.Matches(bid))
	require.False(t, ask.Matches(foreign))

	skewed := bid
	skewed.Domain = 32
	require.False(t, ask.Matches(skewed))

	skewed = bid
	skewed.NumNodes = 5
	require.False(t, ask.Matches(skewed))
}
