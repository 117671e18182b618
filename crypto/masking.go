package crypto

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

// One HKDF expansion emits at most 255 hash blocks (RFC 5869), so large
// vectors draw from a sequence of expansions re-keyed by chunk index.
const hkdfMaxBlocks = 255

// DeriveMaskVector expands a seed into nEls uniform-looking field elements.
// Used for the per-node mask shares of a correlated-randomness instance; the
// instance index is bound into the expansion so distinct instances dealt from
// the same seed never share masks.
func DeriveMaskVector(seed MaskSeed, instance uint32, nEls int32, fieldOrder *big.Int) ([]*big.Int, error) {
	// Oversample by 16 bytes per element so the modular reduction bias is
	// negligible relative to the field size.
	bytesPerElement := (fieldOrder.BitLen()+7)/8 + 16

	elementsPerChunk := hkdfMaxBlocks * sha3.New256().Size() / bytesPerElement
	if elementsPerChunk == 0 {
		return nil, fmt.Errorf("field width of %d bits exceeds one expansion chunk", fieldOrder.BitLen())
	}

	res := make([]*big.Int, nEls)
	buf := make([]byte, bytesPerElement)
	var expand io.Reader
	for i := range res {
		if i%elementsPerChunk == 0 {
			// Each (instance, chunk) pair keys its own expansion.
			info := make([]byte, 8)
			binary.BigEndian.PutUint32(info[:4], instance)
			binary.BigEndian.PutUint32(info[4:], uint32(i/elementsPerChunk))
			expand = hkdf.New(sha3.New256, seed, nil, info)
		}
		if _, err := expand.Read(buf); err != nil {
			return nil, fmt.Errorf("mask expansion failed at element %d: %w", i, err)
		}
		res[i] = new(big.Int).SetBytes(buf)
		res[i].Mod(res[i], fieldOrder)
	}

	return res, nil
}

// SumMaskVectorsInplace accumulates src into dst slot-wise in the field.
// The vectors must have equal length.
func SumMaskVectorsInplace(dst []*big.Int, src []*big.Int, fieldOrder *big.Int) {
	for i := range dst {
		FieldAddInplace(dst[i], src[i], fieldOrder)
	}
}
