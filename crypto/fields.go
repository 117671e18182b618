package crypto

import (
	"crypto/rand"
	"math/big"
)

// MatchFieldOrder defines the finite field order for match operations.
// All indicator vectors, mask shares, and outcome shares are elements of
// this field.
var MatchFieldOrder *big.Int

func init() {
	// 127-bit prime; indicator values are tiny, the field only needs to hide
	// them behind uniform masks.
	MatchFieldOrder, _ = big.NewInt(0).SetString("340282366920938463463374607431768196007", 10)
}

// FieldAddInplace performs modular addition in-place: l = (l + r) mod fieldOrder.
// The result is stored in l and also returned.
func FieldAddInplace(l *big.Int, r *big.Int, fieldOrder *big.Int) *big.Int {
	l.Add(l, r)
	if l.Cmp(fieldOrder) >= 0 {
		l.Sub(l, fieldOrder)
	}

	if l.Sign() < 0 {
		l.Add(l, fieldOrder)
	}

	return l
}

// FieldSubInplace performs modular subtraction in-place: l = (l - r) mod fieldOrder.
// The result is stored in l and also returned.
func FieldSubInplace(l *big.Int, r *big.Int, fieldOrder *big.Int) *big.Int {
	l.Sub(l, r)
	if l.Cmp(fieldOrder) >= 0 {
		l.Sub(l, fieldOrder)
	}
	if l.Sign() < 0 {
		l.Add(l, fieldOrder)
	}
	return l
}

// FieldMulInplace performs modular multiplication in-place:
// l = (l * r) mod fieldOrder. The result is stored in l and also returned.
func FieldMulInplace(l *big.Int, r *big.Int, fieldOrder *big.Int) *big.Int {
	l.Mul(l, r)
	l.Mod(l, fieldOrder)
	return l
}

// RandomFieldElement samples a uniform element of the field.
func RandomFieldElement(fieldOrder *big.Int) (*big.Int, error) {
	return rand.Int(rand.Reader, fieldOrder)
}
