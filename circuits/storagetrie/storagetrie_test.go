package storagetrie

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/test"
	qt "github.com/frankban/quicktest"

	"github.com/chainquery/chainquery/circuits"
	"github.com/chainquery/chainquery/circuits/circuitset"
)

func testKey(c *qt.C, hexKey string) [32]byte {
	raw, err := hex.DecodeString(hexKey)
	c.Assert(err, qt.IsNil)
	var key [32]byte
	copy(key[32-len(raw):], raw)
	return key
}

func testOwner() [OwnerLen]*big.Int {
	var owner [OwnerLen]*big.Int
	for i := range owner {
		owner[i] = big.NewInt(int64(0x1000 + i))
	}
	return owner
}

func TestKeyNibbles(t *testing.T) {
	c := qt.New(t)
	key := testKey(c, "deadbeef")
	nibbles := KeyNibbles(key)
	// 0xde lives in the 4th byte from the end.
	c.Assert(nibbles[56], qt.Equals, byte(0xd))
	c.Assert(nibbles[57], qt.Equals, byte(0xe))
	c.Assert(nibbles[58], qt.Equals, byte(0xa))
	c.Assert(nibbles[59], qt.Equals, byte(0xd))
	c.Assert(nibbles[0], qt.Equals, byte(0))
	for _, n := range nibbles {
		c.Assert(n < 16, qt.IsTrue)
	}
}

func TestLeafReferenceHash(t *testing.T) {
	c := qt.New(t)
	key := testKey(c, "deadbeef")
	value, ok := new(big.Int).SetString("0badf00d", 16)
	c.Assert(ok, qt.IsTrue)

	nibbles := KeyNibbles(key)
	root, err := LeafRoot(nibbles, value)
	c.Assert(err, qt.IsNil)

	// Independently rebuilt preimage: prefix, nibbles, big-endian limbs.
	preimage := []*big.Int{circuits.LeafHashPrefix}
	preimage = append(preimage, NibblesToBigInts(nibbles)...)
	limbs := make([]*big.Int, 8)
	tmp := new(big.Int).Set(value)
	mask := new(big.Int).SetUint64(1<<32 - 1)
	for i := range limbs {
		limbs[i] = new(big.Int).And(tmp, mask)
		tmp = new(big.Int).Rsh(tmp, 32)
	}
	for i := len(limbs) - 1; i >= 0; i-- {
		preimage = append(preimage, limbs[i])
	}
	c.Assert(root.Cmp(circuits.HashMiMC(preimage...)), qt.Equals, 0)
	// The low limb carries the packed value.
	c.Assert(limbs[0].Int64(), qt.Equals, int64(0x0badf00d))
}

func TestLeafCircuit(t *testing.T) {
	c := qt.New(t)
	key := testKey(c, "deadbeef")
	assignment, err := LeafAssignment(key, big.NewInt(0x0badf00d), testOwner(), big.NewInt(0x5e7))
	c.Assert(err, qt.IsNil)
	c.Assert(test.IsSolved(&LeafCircuit{}, assignment, ecc.BN254.ScalarField()), qt.IsNil)

	// A tampered root must not solve.
	bad, err := LeafAssignment(key, big.NewInt(0x0badf00d), testOwner(), big.NewInt(0x5e7))
	c.Assert(err, qt.IsNil)
	bad.Root = 42
	c.Assert(test.IsSolved(&LeafCircuit{}, bad, ecc.BN254.ScalarField()), qt.IsNotNil)

	// A tampered digest coordinate must not solve either.
	bad2, err := LeafAssignment(key, big.NewInt(0x0badf00d), testOwner(), big.NewInt(0x5e7))
	c.Assert(err, qt.IsNil)
	bad2.Digest[0] = 1
	c.Assert(test.IsSolved(&LeafCircuit{}, bad2, ecc.BN254.ScalarField()), qt.IsNotNil)
}

func TestBranchRootOrderSensitive(t *testing.T) {
	c := qt.New(t)
	key1 := testKey(c, "01")
	key2 := testKey(c, "02")
	r1, err := LeafRoot(KeyNibbles(key1), big.NewInt(11))
	c.Assert(err, qt.IsNil)
	r2, err := LeafRoot(KeyNibbles(key2), big.NewInt(22))
	c.Assert(err, qt.IsNil)

	var slots, swapped [circuits.BranchSlots]*big.Int
	slots[1], slots[2] = r1, r2
	swapped[1], swapped[2] = r2, r1
	c.Assert(BranchRoot(slots).Cmp(BranchRoot(swapped)), qt.Not(qt.Equals), 0)
}

func TestDigestSumCommutative(t *testing.T) {
	c := qt.New(t)
	key1 := testKey(c, "01")
	key2 := testKey(c, "02")
	x1, y1, err := LeafDigest(KeyNibbles(key1), big.NewInt(11))
	c.Assert(err, qt.IsNil)
	x2, y2, err := LeafDigest(KeyNibbles(key2), big.NewInt(22))
	c.Assert(err, qt.IsNil)

	ax, ay := AddDigests(x1, y1, x2, y2)
	bx, by := AddDigests(x2, y2, x1, y1)
	c.Assert(ax.Cmp(bx), qt.Equals, 0)
	c.Assert(ay.Cmp(by), qt.Equals, 0)

	// Identity is neutral.
	ix, iy := IdentityDigest()
	nx, ny := AddDigests(x1, y1, ix, iy)
	c.Assert(nx.Cmp(x1), qt.Equals, 0)
	c.Assert(ny.Cmp(y1), qt.Equals, 0)
}

func TestExtensionAssignmentWindow(t *testing.T) {
	c := qt.New(t)
	key := testKey(c, "deadbeef")
	leaf, err := LeafAssignment(key, big.NewInt(7), testOwner(), big.NewInt(0x5e7))
	c.Assert(err, qt.IsNil)

	vec := make([]*big.Int, 0, NumPublicInputs)
	nibbles := KeyNibbles(key)
	vec = append(vec, NibblesToBigInts(nibbles)...)
	vec = append(vec, big.NewInt(0), leaf.Root.(*big.Int))
	vec = append(vec, leaf.Digest[0].(*big.Int), leaf.Digest[1].(*big.Int))
	for i := 0; i < OwnerLen; i++ {
		vec = append(vec, testOwner()[i])
	}
	limbs := make([]*big.Int, 8)
	tmp := big.NewInt(7)
	for i := range limbs {
		limbs[i] = new(big.Int).And(tmp, big.NewInt(0xffffffff))
		tmp = new(big.Int).Rsh(tmp, 32)
	}
	vec = append(vec, limbs...)
	vec = append(vec, big.NewInt(1))

	child := FromVector(vec)
	ext, err := ExtensionAssignment(child, big.NewInt(0x5e7), 3, circuitset.VerifiedProof{})
	c.Assert(err, qt.IsNil)
	c.Assert(ext.Pointer, qt.Equals, 3)
	// The consumed window covers the last three nibbles of 0xdeadbeef.
	c.Assert(ext.Prefix[61], qt.Equals, int64(0xe))
	c.Assert(ext.Prefix[62], qt.Equals, int64(0xe))
	c.Assert(ext.Prefix[63], qt.Equals, int64(0xf))
	c.Assert(ext.Prefix[60], qt.Equals, int64(0))

	// A prefix running past the key must be rejected.
	_, err = ExtensionAssignment(child, big.NewInt(0x5e7), KeyLen+1, circuitset.VerifiedProof{})
	c.Assert(err, qt.IsNotNil)
	_, err = ExtensionAssignment(child, big.NewInt(0x5e7), 0, circuitset.VerifiedProof{})
	c.Assert(err, qt.IsNotNil)
}
