package uint256

import (
	"fmt"
	"math/big"
)

var limbMask = new(big.Int).SetUint64(1<<limbBits - 1)

// LimbsFromBig packs a non-negative value below 2^256 into 8 little-endian
// 32-bit limbs for witness assignment.
func LimbsFromBig(v *big.Int) ([NumLimbs]*big.Int, error) {
	var out [NumLimbs]*big.Int
	if v.Sign() < 0 || v.BitLen() > NumLimbs*limbBits {
		return out, fmt.Errorf("value out of the unsigned 256-bit range")
	}
	rest := new(big.Int).Set(v)
	for i := 0; i < NumLimbs; i++ {
		out[i] = new(big.Int).And(rest, limbMask)
		rest.Rsh(rest, limbBits)
	}
	return out, nil
}

// BigFromLimbs is the inverse of LimbsFromBig.
func BigFromLimbs(limbs [NumLimbs]*big.Int) *big.Int {
	return bigFromLimbInts(limbs[:])
}

// BigEndianBytes returns the canonical 32-byte big-endian encoding of a
// value given in little-endian limbs. Hash preimages use this form; witness
// assignment uses the little-endian limb form. The conversion is explicit
// by design.
func BigEndianBytes(limbs [NumLimbs]*big.Int) [32]byte {
	var out [32]byte
	bigFromLimbInts(limbs[:]).FillBytes(out[:])
	return out
}

// LimbsFromBigEndianBytes packs a 32-byte big-endian encoding into
// little-endian limbs.
func LimbsFromBigEndianBytes(b [32]byte) [NumLimbs]*big.Int {
	limbs, err := LimbsFromBig(new(big.Int).SetBytes(b[:]))
	if err != nil {
		panic(err) // 32 bytes always fit
	}
	return limbs
}

func bigFromLimbInts(limbs []*big.Int) *big.Int {
	out := new(big.Int)
	for i := len(limbs) - 1; i >= 0; i-- {
		out.Lsh(out, limbBits)
		out.Add(out, limbs[i])
	}
	return out
}

func limbIntsFromBig(v *big.Int) []*big.Int {
	out := make([]*big.Int, NumLimbs)
	rest := new(big.Int).Set(v)
	for i := 0; i < NumLimbs; i++ {
		out[i] = new(big.Int).And(rest, limbMask)
		rest.Rsh(rest, limbBits)
	}
	return out
}
