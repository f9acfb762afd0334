package circuits

import (
	"math/big"

	fr_bn254 "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	bn254mimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// HashMiMC is the native counterpart of the in-circuit MiMC hasher: every
// input is reduced to a BN254 scalar and written as one 32-byte block, in
// order, matching what std/hash/mimc computes over the same values.
func HashMiMC(inputs ...*big.Int) *big.Int {
	h := bn254mimc.NewMiMC()
	for _, input := range inputs {
		var el fr_bn254.Element
		el.SetBigInt(input)
		b := el.Bytes()
		if _, err := h.Write(b[:]); err != nil {
			panic(err) // the mimc hasher never fails on block-aligned input
		}
	}
	return new(big.Int).SetBytes(h.Sum(nil))
}
