package blockrange

import (
	"math/big"

	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"

	"github.com/chainquery/chainquery/circuits"
	"github.com/chainquery/chainquery/circuits/circuitset"
)

// PartialNodeCircuit extends a proved range over an unproved sibling
// subtree. The sibling enters as a bare hash on a caller-chosen side,
// so a prover can commit to the full tree while only materializing
// proofs for the slice of history the query touches. Every field but
// the root passes through from the proved child.
type PartialNodeCircuit struct {
	BlockNumber frontend.Variable                 `gnark:",public"`
	Range       frontend.Variable                 `gnark:",public"`
	Root        frontend.Variable                 `gnark:",public"`
	Contract    [ContractLen]frontend.Variable    `gnark:",public"`
	Owner       [OwnerLen]frontend.Variable       `gnark:",public"`
	MappingSlot frontend.Variable                 `gnark:",public"`
	SlotLength  frontend.Variable                 `gnark:",public"`
	Result      [ResultLen]frontend.Variable      `gnark:",public"`
	RewardsRate [RewardsRateLen]frontend.Variable `gnark:",public"`

	// SetRoot is the circuit-set root the child proves membership
	// under, re-exposed for the next layer up.
	SetRoot frontend.Variable `gnark:",public"`

	// SiblingHash is the unproved subtree commitment.
	SiblingHash frontend.Variable
	// SiblingOnLeft is a boolean selecting the hash order.
	SiblingOnLeft frontend.Variable

	Child circuitset.VerifiedProof

	Verifier circuitset.Verifier
}

// Define implements frontend.Circuit.
func (c *PartialNodeCircuit) Define(api frontend.API) error {
	vec, err := c.Verifier.Verify(api, c.SetRoot, c.Child)
	if err != nil {
		return err
	}
	child := FromVector(vec)

	api.AssertIsBoolean(c.SiblingOnLeft)
	api.AssertIsEqual(c.BlockNumber, child.BlockNumber())
	api.AssertIsEqual(c.Range, child.Range())
	for i := range c.Contract {
		api.AssertIsEqual(c.Contract[i], child.Contract()[i])
	}
	for i := range c.Owner {
		api.AssertIsEqual(c.Owner[i], child.Owner()[i])
	}
	api.AssertIsEqual(c.MappingSlot, child.MappingSlot())
	api.AssertIsEqual(c.SlotLength, child.SlotLength())
	for i := range c.Result {
		api.AssertIsEqual(c.Result[i], child.Result()[i])
	}
	for i := range c.RewardsRate {
		api.AssertIsEqual(c.RewardsRate[i], child.RewardsRate()[i])
	}

	left := api.Select(c.SiblingOnLeft, c.SiblingHash, child.Root())
	right := api.Select(c.SiblingOnLeft, child.Root(), c.SiblingHash)
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(left)
	h.Write(right)
	api.AssertIsEqual(c.Root, h.Sum())
	return nil
}

// PlaceholderPartialNode returns a compilation placeholder sized from
// any member of the block-range circuit set.
func PlaceholderPartialNode(memberCCS constraint.ConstraintSystem) *PartialNodeCircuit {
	return &PartialNodeCircuit{
		Child:    circuitset.PlaceholderVerifiedProof(memberCCS),
		Verifier: circuitset.NewVerifier(NumPublicInputs),
	}
}

// PartialNodeAssignment wraps a verified child with an unproved
// sibling hash on the given side.
func PartialNodeAssignment(child PublicInputs[*big.Int], setRoot, siblingHash *big.Int,
	siblingOnLeft bool, proof circuitset.VerifiedProof) *PartialNodeCircuit {
	root := circuits.HashMiMC(child.Root(), siblingHash)
	onLeft := 0
	if siblingOnLeft {
		onLeft = 1
		root = circuits.HashMiMC(siblingHash, child.Root())
	}
	a := &PartialNodeCircuit{
		BlockNumber:   child.BlockNumber(),
		Range:         child.Range(),
		Root:          root,
		MappingSlot:   child.MappingSlot(),
		SlotLength:    child.SlotLength(),
		SetRoot:       setRoot,
		SiblingHash:   siblingHash,
		SiblingOnLeft: onLeft,
		Child:         proof,
	}
	for i := range a.Contract {
		a.Contract[i] = child.Contract()[i]
	}
	for i := range a.Owner {
		a.Owner[i] = child.Owner()[i]
	}
	for i := range a.Result {
		a.Result[i] = child.Result()[i]
		a.RewardsRate[i] = child.RewardsRate()[i]
	}
	return a
}
