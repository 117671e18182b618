package protocol

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/choosek/tinybook/crypto"
)

func TestEncodePriceAsk(t *testing.T) {
	vector, err := EncodePrice(RoleAsk, 4, 16)
	require.NoError(t, err)
	require.Len(t, vector, 16)

	for slot, value := range vector {
		if slot >= 4 {
			require.Zero(t, value.Cmp(big.NewInt(1)), "slot %d", slot)
		} else {
			require.Zero(t, value.Sign(), "slot %d", slot)
		}
	}
}

func TestEncodePriceBid(t *testing.T) {
	vector, err := EncodePrice(RoleBid, 9, 16)
	require.NoError(t, err)
	require.Len(t, vector, 16)

	for slot, value := range vector {
		if slot <= 9 {
			require.Zero(t, value.Cmp(big.NewInt(1)), "slot %d", slot)
		} else {
			require.Zero(t, value.Sign(), "slot %d", slot)
		}
	}
}

func TestEncodePriceProductIsMatchedRange(t *testing.T) {
	const domain = 12
	for askPrice := 0; askPrice < domain; askPrice++ {
		for bidPrice := 0; bidPrice < domain; bidPrice++ {
			ask, err := EncodePrice(RoleAsk, askPrice, domain)
			require.NoError(t, err)
			bid, err := EncodePrice(RoleBid, bidPrice, domain)
			require.NoError(t, err)

			for slot := 0; slot < domain; slot++ {
				product := new(big.Int).Set(ask[slot])
				crypto.FieldMulInplace(product, bid[slot], crypto.MatchFieldOrder)

				inRange := askPrice <= slot && slot <= bidPrice
				if inRange {
					require.Zero(t, product.Cmp(big.NewInt(1)),
						"ask=%d bid=%d slot=%d", askPrice, bidPrice, slot)
				} else {
					require.Zero(t, product.Sign(),
						"ask=%d bid=%d slot=%d", askPrice, bidPrice, slot)
				}
			}
		}
	}
}

func TestEncodePriceDeterministic(t *testing.T) {
	v1, err := EncodePrice(RoleAsk, 7, 16)
	require.NoError(t, err)
	v2, err := EncodePrice(RoleAsk, 7, 16)
	require.NoError(t, err)

	for slot := range v1 {
		require.Zero(t, v1[slot].Cmp(v2[slot]))
	}
}

func TestEncodePriceOutOfRange(t *testing.T) {
	_, err := EncodePrice(RoleAsk, -1, 16)
	require.ErrorIs(t, err, ErrPriceOutOfRange)

	_, err = EncodePrice(RoleBid, 16, 16)
	require.ErrorIs(t, err, ErrPriceOutOfRange)

	_, err = EncodePrice(Role("mid"), 3, 16)
	require.ErrorIs(t, err, ErrRoleMismatch)
}
