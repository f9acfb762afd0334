package storagetrie

import (
	"fmt"
	"math/big"

	babyjubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"

	"github.com/chainquery/chainquery/circuits"
	"github.com/chainquery/chainquery/circuits/uint256"
)

// KeyNibbles expands a 32-byte storage key into its 64 nibbles in
// root-to-leaf order (most significant nibble first).
func KeyNibbles(key [32]byte) [circuits.KeyNibbles]byte {
	var nibbles [circuits.KeyNibbles]byte
	for i, b := range key {
		nibbles[2*i] = b >> 4
		nibbles[2*i+1] = b & 0x0f
	}
	return nibbles
}

// NibblesToBigInts lifts a nibble array to the field elements fed into
// the hash preimages and witness assignments.
func NibblesToBigInts(nibbles [circuits.KeyNibbles]byte) []*big.Int {
	out := make([]*big.Int, len(nibbles))
	for i, n := range nibbles {
		out[i] = big.NewInt(int64(n))
	}
	return out
}

// LeafRoot computes the reference commitment of a leaf node over its
// full key and value: MiMC(leaf-prefix, key nibbles..., value limbs...).
// The value limbs enter the preimage in big-endian order, matching the
// fixed-prefix domain-separated hash convention.
func LeafRoot(nibbles [circuits.KeyNibbles]byte, value *big.Int) (*big.Int, error) {
	limbs, err := uint256.LimbsFromBig(value)
	if err != nil {
		return nil, fmt.Errorf("leaf value: %w", err)
	}
	preimage := []*big.Int{circuits.LeafHashPrefix}
	preimage = append(preimage, NibblesToBigInts(nibbles)...)
	for i := len(limbs) - 1; i >= 0; i-- {
		preimage = append(preimage, limbs[i])
	}
	return circuits.HashMiMC(preimage...), nil
}

// LeafDigestScalar computes the scalar hashed from a leaf's key and
// value that seeds its per-entry digest point.
func LeafDigestScalar(nibbles [circuits.KeyNibbles]byte, value *big.Int) (*big.Int, error) {
	limbs, err := uint256.LimbsFromBig(value)
	if err != nil {
		return nil, fmt.Errorf("leaf value: %w", err)
	}
	preimage := NibblesToBigInts(nibbles)
	for i := len(limbs) - 1; i >= 0; i-- {
		preimage = append(preimage, limbs[i])
	}
	return circuits.HashMiMC(preimage...), nil
}

// LeafDigest computes the per-entry digest point of a leaf: the
// BabyJubJub base point multiplied by the leaf's digest scalar.
func LeafDigest(nibbles [circuits.KeyNibbles]byte, value *big.Int) (x, y *big.Int, err error) {
	scalar, err := LeafDigestScalar(nibbles, value)
	if err != nil {
		return nil, nil, err
	}
	params := babyjubjub.GetEdwardsCurve()
	var p babyjubjub.PointAffine
	p.ScalarMultiplication(&params.Base, scalar)
	return p.X.BigInt(new(big.Int)), p.Y.BigInt(new(big.Int)), nil
}

// AddDigests adds two digest points given by affine coordinates.
func AddDigests(x1, y1, x2, y2 *big.Int) (x, y *big.Int) {
	var a, b, sum babyjubjub.PointAffine
	a.X.SetBigInt(x1)
	a.Y.SetBigInt(y1)
	b.X.SetBigInt(x2)
	b.Y.SetBigInt(y2)
	sum.Add(&a, &b)
	return sum.X.BigInt(new(big.Int)), sum.Y.BigInt(new(big.Int))
}

// IdentityDigest returns the coordinates of the group identity (0, 1),
// the starting accumulator of every digest sum.
func IdentityDigest() (x, y *big.Int) {
	return big.NewInt(0), big.NewInt(1)
}

// ExtensionRoot computes the reference commitment of an extension node:
// MiMC(extension-prefix, prefix length, aligned prefix nibbles...,
// child root). The prefix nibbles are aligned at their absolute key
// positions with zeroes elsewhere, so the preimage length is constant.
func ExtensionRoot(prefixLen int, aligned [circuits.KeyNibbles]byte, childRoot *big.Int) *big.Int {
	preimage := []*big.Int{circuits.ExtensionHashPrefix, big.NewInt(int64(prefixLen))}
	preimage = append(preimage, NibblesToBigInts(aligned)...)
	preimage = append(preimage, childRoot)
	return circuits.HashMiMC(preimage...)
}

// BranchRoot computes the reference commitment of a branch node over
// its sixteen child slot hashes. Empty slots hold zero. The commitment
// covers every slot so it is independent of how many children are
// actually proved.
func BranchRoot(slots [circuits.BranchSlots]*big.Int) *big.Int {
	preimage := []*big.Int{circuits.BranchHashPrefix}
	for _, s := range slots {
		if s == nil {
			preimage = append(preimage, big.NewInt(0))
		} else {
			preimage = append(preimage, s)
		}
	}
	return circuits.HashMiMC(preimage...)
}
