package crypto

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustDeriveMaskVector(t *testing.T, seed MaskSeed, instance uint32, nEls int32) []*big.Int {
	t.Helper()
	v, err := DeriveMaskVector(seed, instance, nEls, MatchFieldOrder)
	require.NoError(t, err)
	require.Len(t, v, int(nEls))
	return v
}

func TestDeriveMaskVectorDeterministic(t *testing.T) {
	seed := NewMaskSeed([]byte("test-seed-for-mask-derivation-00"))

	v1 := mustDeriveMaskVector(t, seed, 7, 16)
	v2 := mustDeriveMaskVector(t, seed, 7, 16)

	for i := range v1 {
		require.Zero(t, v1[i].Cmp(v2[i]), "slot %d differs between identical derivations", i)
		require.True(t, v1[i].Sign() >= 0 && v1[i].Cmp(MatchFieldOrder) < 0)
	}
}

func TestDeriveMaskVectorInstanceSeparation(t *testing.T) {
	seed := NewMaskSeed([]byte("test-seed-for-mask-derivation-00"))

	v1 := mustDeriveMaskVector(t, seed, 0, 16)
	v2 := mustDeriveMaskVector(t, seed, 1, 16)

	same := 0
	for i := range v1 {
		if v1[i].Cmp(v2[i]) == 0 {
			same++
		}
	}
	require.Zero(t, same, "distinct instances must not share mask elements")
}

func TestDeriveMaskVectorSeedSeparation(t *testing.T) {
	s1, err := GenerateMaskSeed()
	require.NoError(t, err)
	s2, err := GenerateMaskSeed()
	require.NoError(t, err)

	v1 := mustDeriveMaskVector(t, s1, 0, 16)
	v2 := mustDeriveMaskVector(t, s2, 0, 16)

	for i := range v1 {
		require.NotZero(t, v1[i].Cmp(v2[i]), "slot %d equal across independent seeds", i)
	}
}

func TestDeriveMaskVectorSpread(t *testing.T) {
	// Coarse uniformity check: over many elements the distinct-value count
	// must equal the element count (collisions in a 127-bit field would
	// indicate a broken expansion).
	seed, err := GenerateMaskSeed()
	require.NoError(t, err)

	v := mustDeriveMaskVector(t, seed, 0, 256)
	seen := make(map[string]bool, len(v))
	for _, el := range v {
		seen[el.String()] = true
	}
	require.Len(t, seen, len(v))
}

func TestDeriveMaskVectorLargeVector(t *testing.T) {
	// Vectors past a single HKDF expansion's 255-block output draw from
	// re-keyed chunks; the result must stay deterministic and collision
	// free across the chunk boundaries.
	seed := NewMaskSeed([]byte("test-seed-for-mask-derivation-00"))

	v1 := mustDeriveMaskVector(t, seed, 3, 1000)
	v2 := mustDeriveMaskVector(t, seed, 3, 1000)

	seen := make(map[string]bool, len(v1))
	for i := range v1 {
		require.Zero(t, v1[i].Cmp(v2[i]), "slot %d differs between identical derivations", i)
		seen[v1[i].String()] = true
	}
	require.Len(t, seen, len(v1))

	// A shorter derivation is a prefix of a longer one from the same
	// seed and instance.
	prefix := mustDeriveMaskVector(t, seed, 3, 100)
	for i := range prefix {
		require.Zero(t, prefix[i].Cmp(v1[i]), "slot %d differs between vector lengths", i)
	}
}

func TestSumMaskVectorsInplace(t *testing.T) {
	seed := NewMaskSeed([]byte("test-seed-for-mask-derivation-00"))

	dst := mustDeriveMaskVector(t, seed, 0, 8)
	src := mustDeriveMaskVector(t, seed, 1, 8)
	expected := mustDeriveMaskVector(t, seed, 0, 8)
	for i := range expected {
		FieldAddInplace(expected[i], src[i], MatchFieldOrder)
	}

	SumMaskVectorsInplace(dst, src, MatchFieldOrder)
	for i := range dst {
		require.Zero(t, dst[i].Cmp(expected[i]))
	}
}
