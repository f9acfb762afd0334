package storagetrie

import (
	"fmt"
	"math/big"

	tedwards "github.com/consensys/gnark-crypto/ecc/twistededwards"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/consensys/gnark/std/hash/mimc"

	"github.com/chainquery/chainquery/circuits"
	"github.com/chainquery/chainquery/circuits/uint256"
)

// LeafCircuit proves a single storage entry: it hashes the witnessed
// key and value into the leaf commitment and derives the per-entry
// digest point that higher layers accumulate. The pointer starts at
// zero since no nibble has been consumed yet, and the count starts at
// one.
//
// The public fields are declared in the family layout order so that
// the proof's flat public-input vector can be decoded with Layout.
type LeafCircuit struct {
	Key     [KeyLen]frontend.Variable    `gnark:",public"`
	Pointer frontend.Variable            `gnark:",public"`
	Root    frontend.Variable            `gnark:",public"`
	Digest  [DigestLen]frontend.Variable `gnark:",public"`
	Owner   [OwnerLen]frontend.Variable  `gnark:",public"`
	Value   [ValueLen]frontend.Variable  `gnark:",public"`
	Count   frontend.Variable            `gnark:",public"`
	// SetRoot is the trailing circuit-set commitment every family
	// member exposes; aggregating parents assert it matches their own.
	SetRoot frontend.Variable `gnark:",public"`
}

// Define implements frontend.Circuit.
func (c *LeafCircuit) Define(api frontend.API) error {
	// The leaf has no emulated arithmetic of its own, so it commits
	// explicitly to keep its proof shape identical to the rest of the
	// family, which all carry one commitment.
	cmtr, ok := api.(frontend.Committer)
	if !ok {
		return fmt.Errorf("api does not support commitments")
	}
	commitment, err := cmtr.Commit(c.Key[0], c.Value[0], c.SetRoot)
	if err != nil {
		return err
	}
	api.AssertIsDifferent(commitment, 0)

	circuits.AssertNibbles(api, c.Key[:])
	value := uint256.New(api, c.Value)
	for i := range c.Owner {
		api.AssertIsLessOrEqual(c.Owner[i], uint64(1)<<32-1)
	}
	api.AssertIsEqual(c.Pointer, 0)
	api.AssertIsEqual(c.Count, 1)

	// Leaf commitment over the full key and the big-endian value limbs.
	hRoot, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	be := value.BigEndianLimbs()
	hRoot.Write(circuits.LeafHashPrefix)
	hRoot.Write(c.Key[:]...)
	hRoot.Write(be[:]...)
	api.AssertIsEqual(c.Root, hRoot.Sum())

	// Per-entry digest point: [MiMC(key, value)] · G on BabyJubJub.
	hDigest, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	hDigest.Write(c.Key[:]...)
	hDigest.Write(be[:]...)
	curve, err := twistededwards.NewEdCurve(api, tedwards.BN254)
	if err != nil {
		return err
	}
	base := twistededwards.Point{
		X: curve.Params().Base[0],
		Y: curve.Params().Base[1],
	}
	digest := curve.ScalarMul(base, hDigest.Sum())
	api.AssertIsEqual(c.Digest[0], digest.X)
	api.AssertIsEqual(c.Digest[1], digest.Y)
	return nil
}

// LeafAssignment builds a full leaf witness from native inputs. The
// storage key is the raw 32-byte slot key, the value the stored word,
// owner the packed address limbs the entry is attributed to and
// setRoot the digest of the circuit set the proof will belong to.
func LeafAssignment(key [32]byte, value *big.Int, owner [OwnerLen]*big.Int, setRoot *big.Int) (*LeafCircuit, error) {
	nibbles := KeyNibbles(key)
	root, err := LeafRoot(nibbles, value)
	if err != nil {
		return nil, err
	}
	dx, dy, err := LeafDigest(nibbles, value)
	if err != nil {
		return nil, err
	}
	limbs, err := uint256.LimbsFromBig(value)
	if err != nil {
		return nil, err
	}
	a := &LeafCircuit{
		Pointer: 0,
		Root:    root,
		Digest:  [DigestLen]frontend.Variable{dx, dy},
		Count:   1,
		SetRoot: setRoot,
	}
	for i, n := range nibbles {
		a.Key[i] = n
	}
	for i, l := range limbs {
		a.Value[i] = l
	}
	for i, o := range owner {
		a.Owner[i] = o
	}
	return a, nil
}
