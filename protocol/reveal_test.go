package protocol

import (
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func collectShares(t *testing.T, book *testBook, ask, bid *MaskedOrder) []*OutcomeShare {
	t.Helper()
	shares := make([]*OutcomeShare, len(book.nodes))
	for i, node := range book.nodes {
		share, err := node.Outcome(ask, bid)
		require.NoError(t, err)
		shares[i] = share
	}
	return shares
}

func TestRevealMatch(t *testing.T) {
	book := newTestBook(t, 3, 16, 2)

	ask := book.maskedOrder(t, RoleAsk, 4)
	bid := book.maskedOrder(t, RoleBid, 9)
	shares := collectShares(t, book, ask, bid)

	result, err := Reveal(shares)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, 4, result.Ask)
	require.Equal(t, 9, result.Bid)
}

func TestRevealNoMatch(t *testing.T) {
	book := newTestBook(t, 3, 16, 2)

	ask := book.maskedOrder(t, RoleAsk, 9)
	bid := book.maskedOrder(t, RoleBid, 4)
	shares := collectShares(t, book, ask, bid)

	result, err := Reveal(shares)
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestRevealShareOrderIrrelevant(t *testing.T) {
	book := newTestBook(t, 3, 16, 2)

	ask := book.maskedOrder(t, RoleAsk, 4)
	bid := book.maskedOrder(t, RoleBid, 9)
	shares := collectShares(t, book, ask, bid)
	shares[0], shares[2] = shares[2], shares[0]

	result, err := Reveal(shares)
	require.NoError(t, err)
	require.Equal(t, &PriceRange{Ask: 4, Bid: 9}, result)
}

func TestRevealIncomplete(t *testing.T) {
	book := newTestBook(t, 3, 16, 2)

	ask := book.maskedOrder(t, RoleAsk, 4)
	bid := book.maskedOrder(t, RoleBid, 9)
	shares := collectShares(t, book, ask, bid)

	_, err := Reveal(nil)
	require.ErrorIs(t, err, ErrIncompleteShares)

	_, err = Reveal(shares[:2])
	require.ErrorIs(t, err, ErrIncompleteShares)

	shares[1] = shares[0] // duplicate node 0, node 1 missing
	_, err = Reveal(shares)
	require.ErrorIs(t, err, ErrIncompleteShares)
}

func TestRevealMixedRuns(t *testing.T) {
	book := newTestBook(t, 3, 16, 2)

	ask1 := book.maskedOrder(t, RoleAsk, 4)
	bid1 := book.maskedOrder(t, RoleBid, 9)
	ask2 := book.maskedOrder(t, RoleAsk, 2)
	bid2 := book.maskedOrder(t, RoleBid, 7)

	shares := collectShares(t, book, ask1, bid1)
	other := collectShares(t, book, ask2, bid2)
	shares[1] = other[1]

	_, err := Reveal(shares)
	require.ErrorIs(t, err, ErrDomainMismatch)
}

func TestRevealTruncatedShareVector(t *testing.T) {
	book := newTestBook(t, 3, 16, 2)

	ask := book.maskedOrder(t, RoleAsk, 4)
	bid := book.maskedOrder(t, RoleBid, 9)
	shares := collectShares(t, book, ask, bid)
	shares[1].Shares = shares[1].Shares[:8]

	_, err := Reveal(shares)
	require.ErrorIs(t, err, ErrMalformedShares)
}

func TestRevealCorruptedShares(t *testing.T) {
	book := newTestBook(t, 3, 16, 2)

	ask := book.maskedOrder(t, RoleAsk, 4)
	bid := book.maskedOrder(t, RoleBid, 9)
	shares := collectShares(t, book, ask, bid)

	// Flipping one slot of one share pushes the reconstruction out of {0,1}.
	shares[2].Shares[6] = new(big.Int).Add(shares[2].Shares[6], big.NewInt(5))

	_, err := Reveal(shares)
	require.ErrorIs(t, err, ErrMalformedShares)
}

func syntheticShare(indicator []int64) *OutcomeShare {
	shares := make([]*big.Int, len(indicator))
	for i, v := range indicator {
		shares[i] = big.NewInt(v)
	}
	return &OutcomeShare{
		NodeIndex: 0,
		BatchID:   uuid.New(),
		Instance:  0,
		Domain:    len(indicator),
		NumNodes:  1,
		Shares:    shares,
	}
}

func TestRevealRejectsNonContiguousIndicator(t *testing.T) {
	_, err := Reveal([]*OutcomeShare{syntheticShare([]int64{0, 1, 0, 1, 0})})
	require.ErrorIs(t, err, ErrMalformedShares)
}

func TestRevealRejectsNonBinaryIndicator(t *testing.T) {
	_, err := Reveal([]*OutcomeShare{syntheticShare([]int64{0, 2, 0, 0})})
	require.ErrorIs(t, err, ErrMalformedShares)
}

func TestRevealIndicatorEdges(t *testing.T) {
	// Run reaching the end of the domain: bid at the top slot.
	result, err := Reveal([]*OutcomeShare{syntheticShare([]int64{0, 0, 1, 1})})
	require.NoError(t, err)
	require.Equal(t, &PriceRange{Ask: 2, Bid: 3}, result)

	// Run starting at slot zero.
	result, err = Reveal([]*OutcomeShare{syntheticShare([]int64{1, 1, 0, 0})})
	require.NoError(t, err)
	require.Equal(t, &PriceRange{Ask: 0, Bid: 1}, result)

	// Single-slot match, equal ask and bid.
	result, err = Reveal([]*OutcomeShare{syntheticShare([]int64{0, 1, 0, 0})})
	require.NoError(t, err)
	require.Equal(t, &PriceRange{Ask: 1, Bid: 1}, result)

	// All zeros, no match.
	result, err = Reveal([]*OutcomeShare{syntheticShare([]int64{0, 0, 0, 0})})
	require.NoError(t, err)
	require.Nil(t, result)
}
