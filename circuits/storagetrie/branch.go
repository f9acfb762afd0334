package storagetrie

import (
	"fmt"
	"math/big"

	tedwards "github.com/consensys/gnark-crypto/ecc/twistededwards"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/consensys/gnark/std/hash/mimc"
	"github.com/consensys/gnark/std/selector"

	"github.com/chainquery/chainquery/circuits"
	"github.com/chainquery/chainquery/circuits/circuitset"
	"github.com/chainquery/chainquery/circuits/uint256"
)

// BranchCircuit aggregates up to its arity child proofs under one
// branch node. The node commitment covers all sixteen child slots, so
// unproved slots are witnessed as plain hashes. Each proved child is
// bound to the slot selected by its consumed nibble, the nibble at
// position KeyLen-Pointer of its key.
//
// A prover holding fewer real children than the arity pads the proof
// list by duplicating the first child. RealCount masks the padding out
// of the digest sum, the value sum and the entry count, so duplicates
// never contribute twice.
type BranchCircuit struct {
	Key     [KeyLen]frontend.Variable    `gnark:",public"`
	Pointer frontend.Variable            `gnark:",public"`
	Root    frontend.Variable            `gnark:",public"`
	Digest  [DigestLen]frontend.Variable `gnark:",public"`
	Owner   [OwnerLen]frontend.Variable  `gnark:",public"`
	Value   [ValueLen]frontend.Variable  `gnark:",public"`
	Count   frontend.Variable            `gnark:",public"`
	SetRoot frontend.Variable            `gnark:",public"`

	// Slots holds the sixteen child hashes of the node, zero for empty
	// slots.
	Slots [circuits.BranchSlots]frontend.Variable
	// RealCount is the number of genuine children, in [1, arity].
	RealCount frontend.Variable

	Children []circuitset.VerifiedProof

	Verifier circuitset.Verifier
}

// PlaceholderBranch returns the compile-time branch shell of the given
// arity, with every child proof shaped by the member constraint system.
func PlaceholderBranch(arity int, memberCCS constraint.ConstraintSystem) (*BranchCircuit, error) {
	supported := false
	for _, a := range circuits.BranchArities {
		if a == arity {
			supported = true
		}
	}
	if !supported {
		return nil, fmt.Errorf("unsupported branch arity %d", arity)
	}
	children := make([]circuitset.VerifiedProof, arity)
	for i := range children {
		children[i] = circuitset.PlaceholderVerifiedProof(memberCCS)
	}
	return &BranchCircuit{
		Children: children,
		Verifier: circuitset.NewVerifier(NumPublicInputs),
	}, nil
}

// Define implements frontend.Circuit.
func (c *BranchCircuit) Define(api frontend.API) error {
	arity := len(c.Children)
	children := make([]PublicInputs[frontend.Variable], arity)
	for i := range c.Children {
		vec, err := c.Verifier.Verify(api, c.SetRoot, c.Children[i])
		if err != nil {
			return err
		}
		children[i] = FromVector(vec)
	}
	first := children[0]

	circuits.AssertNibbles(api, c.Key[:])
	api.AssertIsEqual(c.Pointer, api.Add(first.Pointer(), 1))
	api.AssertIsLessOrEqual(c.Pointer, KeyLen)
	api.AssertIsLessOrEqual(1, c.RealCount)
	api.AssertIsLessOrEqual(c.RealCount, arity)

	// The node consumes the nibble at position KeyLen-Pointer. All
	// children agree on the key above it; the exposed key is the first
	// child's.
	consumedAt := api.Sub(KeyLen, c.Pointer)
	shared := circuits.MaskLessThan(api, KeyLen, consumedAt)
	for i := 0; i < KeyLen; i++ {
		api.AssertIsEqual(c.Key[i], first.Key()[i])
	}
	genuine := circuits.MaskLessThan(api, arity, c.RealCount)

	curve, err := twistededwards.NewEdCurve(api, tedwards.BN254)
	if err != nil {
		return err
	}
	acc := twistededwards.Point{X: 0, Y: 1}
	valueSum := uint256.Zero()
	countSum := frontend.Variable(0)
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(circuits.BranchHashPrefix)
	h.Write(c.Slots[:]...)
	api.AssertIsEqual(c.Root, h.Sum())

	for i, child := range children {
		api.AssertIsEqual(child.Pointer(), first.Pointer())
		for j := 0; j < KeyLen; j++ {
			diff := api.Sub(child.Key()[j], first.Key()[j])
			api.AssertIsEqual(api.Mul(shared[j], diff), 0)
		}

		// Bind the child's root to the slot its consumed nibble selects.
		nibble := selector.Mux(api, consumedAt, child.Key()...)
		slot := selector.Mux(api, nibble, c.Slots[:]...)
		api.AssertIsEqual(api.Mul(genuine[i], api.Sub(slot, child.Root())), 0)

		// Padded duplicates fall back to the identity point and a zero
		// value so they never contribute to the accumulators.
		point := twistededwards.Point{
			X: api.Select(genuine[i], child.Digest()[0], 0),
			Y: api.Select(genuine[i], child.Digest()[1], 1),
		}
		acc = curve.Add(acc, point)

		var limbs [uint256.NumLimbs]frontend.Variable
		copy(limbs[:], child.Value())
		masked := uint256.Select(api, genuine[i], uint256.New(api, limbs), uint256.Zero())
		var carry frontend.Variable
		valueSum, carry = uint256.Add(api, valueSum, masked)
		api.AssertIsEqual(carry, 0)
		countSum = api.Add(countSum, api.Mul(genuine[i], child.Count()))

		for j := range c.Owner {
			diff := api.Sub(child.Owner()[j], first.Owner()[j])
			api.AssertIsEqual(api.Mul(genuine[i], diff), 0)
		}
	}

	api.AssertIsEqual(c.Digest[0], acc.X)
	api.AssertIsEqual(c.Digest[1], acc.Y)
	for i := range c.Owner {
		api.AssertIsEqual(c.Owner[i], first.Owner()[i])
	}
	for i := range c.Value {
		api.AssertIsEqual(c.Value[i], valueSum.Limbs[i])
	}
	api.AssertIsEqual(c.Count, countSum)
	return nil
}

// BranchAssignment builds a branch witness from the verified child
// proofs and their public inputs. The children slice holds only the
// real children; the assignment pads it to the circuit arity by
// duplicating the first entry. Slots not covered by a proved child are
// taken from the witnessed node slots.
func BranchAssignment(arity int, slots [circuits.BranchSlots]*big.Int, setRoot *big.Int,
	children []PublicInputs[*big.Int], proofs []circuitset.VerifiedProof) (*BranchCircuit, error) {
	if len(children) == 0 || len(children) != len(proofs) {
		return nil, fmt.Errorf("child proof count mismatch: %d inputs, %d proofs", len(children), len(proofs))
	}
	if len(children) > arity {
		return nil, fmt.Errorf("%d children exceed branch arity %d", len(children), arity)
	}
	first := children[0]
	childPtr := int(first.Pointer().Int64())
	newPtr := childPtr + 1
	if newPtr > KeyLen {
		return nil, fmt.Errorf("child pointer %d leaves no nibble to consume", childPtr)
	}

	dx, dy := IdentityDigest()
	valueSum := big.NewInt(0)
	countSum := big.NewInt(0)
	for _, child := range children {
		if int(child.Pointer().Int64()) != childPtr {
			return nil, fmt.Errorf("child pointers diverge: %d vs %d", child.Pointer(), childPtr)
		}
		dx, dy = AddDigests(dx, dy, child.Digest()[0], child.Digest()[1])
		var v big.Int
		for i := len(child.Value()) - 1; i >= 0; i-- {
			v.Lsh(&v, 32)
			v.Add(&v, child.Value()[i])
		}
		valueSum.Add(valueSum, &v)
		countSum.Add(countSum, child.Count())
	}
	if valueSum.BitLen() > 256 {
		return nil, fmt.Errorf("aggregated value overflows 256 bits")
	}

	a := &BranchCircuit{
		Pointer:   newPtr,
		Root:      BranchRoot(slots),
		Digest:    [DigestLen]frontend.Variable{dx, dy},
		Count:     countSum,
		SetRoot:   setRoot,
		RealCount: len(children),
		Children:  make([]circuitset.VerifiedProof, arity),
	}
	for i := 0; i < KeyLen; i++ {
		a.Key[i] = first.Key()[i]
	}
	for i := range a.Owner {
		a.Owner[i] = first.Owner()[i]
	}
	var sumLimbs [8]*big.Int
	tmp := new(big.Int).Set(valueSum)
	mask := new(big.Int).SetUint64(1<<32 - 1)
	for i := range sumLimbs {
		sumLimbs[i] = new(big.Int).And(tmp, mask)
		tmp = new(big.Int).Rsh(tmp, 32)
		a.Value[i] = sumLimbs[i]
	}
	for i := range a.Slots {
		if slots[i] == nil {
			a.Slots[i] = 0
		} else {
			a.Slots[i] = slots[i]
		}
	}
	for i := 0; i < arity; i++ {
		if i < len(proofs) {
			a.Children[i] = proofs[i]
		} else {
			a.Children[i] = proofs[0]
		}
	}
	return a, nil
}
