package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// runMatch executes one complete matching run against the book.
func runMatch(t *testing.T, book *testBook, askPrice, bidPrice int) *PriceRange {
	t.Helper()

	ask := book.maskedOrder(t, RoleAsk, askPrice)
	bid := book.maskedOrder(t, RoleBid, bidPrice)
	return book.outcome(t, ask, bid)
}

func TestEndToEndMatch(t *testing.T) {
	book := newTestBook(t, 3, 16, 2)

	result := runMatch(t, book, 4, 9)
	require.Equal(t, &PriceRange{Ask: 4, Bid: 9}, result)
}

func TestEndToEndNoMatch(t *testing.T) {
	book := newTestBook(t, 3, 16, 2)

	require.Nil(t, runMatch(t, book, 9, 4))
}

func TestEndToEndEqualPrices(t *testing.T) {
	book := newTestBook(t, 3, 16, 2)

	result := runMatch(t, book, 7, 7)
	require.Equal(t, &PriceRange{Ask: 7, Bid: 7}, result)
}

func TestEndToEndFullDomainSweep(t *testing.T) {
	const domain = 6
	book := newTestBook(t, 3, domain, domain*domain)

	for askPrice := 0; askPrice < domain; askPrice++ {
		for bidPrice := 0; bidPrice < domain; bidPrice++ {
			result := runMatch(t, book, askPrice, bidPrice)
			if askPrice <= bidPrice {
				require.Equal(t, &PriceRange{Ask: askPrice, Bid: bidPrice}, result,
					"ask=%d bid=%d", askPrice, bidPrice)
			} else {
				require.Nil(t, result, "ask=%d bid=%d", askPrice, bidPrice)
			}
		}
	}
}

func TestEndToEndLargeDomain(t *testing.T) {
	// Domains past the 255-element output of a single mask expansion
	// must preprocess and match like any other.
	book := newTestBook(t, 3, 300, 2)

	result := runMatch(t, book, 120, 250)
	require.Equal(t, &PriceRange{Ask: 120, Bid: 250}, result)

	require.Nil(t, runMatch(t, book, 299, 0))
}

func TestEndToEndTwoNodes(t *testing.T) {
	book := newTestBook(t, 2, 16, 2)

	result := runMatch(t, book, 3, 12)
	require.Equal(t, &PriceRange{Ask: 3, Bid: 12}, result)
}

func TestEndToEndFiveNodes(t *testing.T) {
	book := newTestBook(t, 5, 16, 2)

	result := runMatch(t, book, 0, 15)
	require.Equal(t, &PriceRange{Ask: 0, Bid: 15}, result)
}

func TestEndToEndDomainBoundaries(t *testing.T) {
	book := newTestBook(t, 3, 16, 4)

	result := runMatch(t, book, 0, 0)
	require.Equal(t, &PriceRange{Ask: 0, Bid: 0}, result)

	result = runMatch(t, book, 15, 15)
	require.Equal(t, &PriceRange{Ask: 15, Bid: 15}, result)

	result = runMatch(t, book, 0, 15)
	require.Equal(t, &PriceRange{Ask: 0, Bid: 15}, result)
}

func TestEndToEndConcurrentRuns(t *testing.T) {
	book := newTestBook(t, 3, 16, 4)

	// Interleave two runs over the same batch; tokens pair by instance.
	ask1 := book.maskedOrder(t, RoleAsk, 4)
	ask2 := book.maskedOrder(t, RoleAsk, 10)
	bid1 := book.maskedOrder(t, RoleBid, 9)
	bid2 := book.maskedOrder(t, RoleBid, 14)

	require.Equal(t, &PriceRange{Ask: 4, Bid: 9}, book.outcome(t, ask1, bid1))
	require.Equal(t, &PriceRange{Ask: 10, Bid: 14}, book.outcome(t, ask2, bid2))
}

func TestSharesLookUnrelatedAcrossRuns(t *testing.T) {
	// Identical prices in two runs must still produce different artifacts.
	book := newTestBook(t, 3, 16, 2)

	ask1 := book.maskedOrder(t, RoleAsk, 4)
	ask2 := book.maskedOrder(t, RoleAsk, 4)

	differing := 0
	for slot := range ask1.Vector {
		if ask1.Vector[slot].Cmp(ask2.Vector[slot]) != 0 {
			differing++
		}
	}
	require.Equal(t, len(ask1.Vector), differing)
}

func TestNodeShareAloneRevealsNothing(t *testing.T) {
	// One node's outcome share for a match and for a non-match are both
	// vectors of large field elements; neither is the plain indicator.
	book := newTestBook(t, 3, 16, 4)

	askMatch := book.maskedOrder(t, RoleAsk, 4)
	bidMatch := book.maskedOrder(t, RoleBid, 9)
	shareMatch, err := book.nodes[1].Outcome(askMatch, bidMatch)
	require.NoError(t, err)

	askMiss := book.maskedOrder(t, RoleAsk, 9)
	bidMiss := book.maskedOrder(t, RoleBid, 4)
	shareMiss, err := book.nodes[1].Outcome(askMiss, bidMiss)
	require.NoError(t, err)

	flat := func(shares *OutcomeShare) int {
		n := 0
		for _, v := range shares.Shares {
			if v.Sign() == 0 || v.BitLen() <= 1 {
				n++
			}
		}
		return n
	}

	// With shares uniform over a 127-bit field, a 0 or 1 value in any slot
	// is astronomically unlikely.
	require.Zero(t, flat(shareMatch))
	require.Zero(t, flat(shareMiss))
}
