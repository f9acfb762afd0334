package blockrange

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"

	"github.com/chainquery/chainquery/circuits"
	"github.com/chainquery/chainquery/circuits/circuitset"
	"github.com/chainquery/chainquery/circuits/uint256"
)

// FullNodeCircuit merges two adjacent block-range proofs. Adjacency is
// the equality left.BlockNumber == right.BlockNumber - right.Range,
// i.e. the left child ends exactly one block before the right child's
// range begins. The merged proof covers the union: block number from
// the right child, range summed, results summed without overflow, root
// = MiMC(left.Root, right.Root).
type FullNodeCircuit struct {
	BlockNumber frontend.Variable                 `gnark:",public"`
	Range       frontend.Variable                 `gnark:",public"`
	Root        frontend.Variable                 `gnark:",public"`
	Contract    [ContractLen]frontend.Variable    `gnark:",public"`
	Owner       [OwnerLen]frontend.Variable       `gnark:",public"`
	MappingSlot frontend.Variable                 `gnark:",public"`
	SlotLength  frontend.Variable                 `gnark:",public"`
	Result      [ResultLen]frontend.Variable      `gnark:",public"`
	RewardsRate [RewardsRateLen]frontend.Variable `gnark:",public"`

	// SetRoot is the circuit-set root both children must prove
	// membership under, re-exposed for the next layer up.
	SetRoot frontend.Variable `gnark:",public"`

	Left  circuitset.VerifiedProof
	Right circuitset.VerifiedProof

	Verifier circuitset.Verifier
}

// Define implements frontend.Circuit.
func (c *FullNodeCircuit) Define(api frontend.API) error {
	leftVec, err := c.Verifier.Verify(api, c.SetRoot, c.Left)
	if err != nil {
		return err
	}
	rightVec, err := c.Verifier.Verify(api, c.SetRoot, c.Right)
	if err != nil {
		return err
	}
	left := FromVector(leftVec)
	right := FromVector(rightVec)

	api.AssertIsEqual(left.BlockNumber(), api.Sub(right.BlockNumber(), right.Range()))
	api.AssertIsEqual(c.BlockNumber, right.BlockNumber())
	api.AssertIsEqual(c.Range, api.Add(left.Range(), right.Range()))

	// Query identity must agree across the two children.
	for i := range c.Contract {
		api.AssertIsEqual(left.Contract()[i], right.Contract()[i])
		api.AssertIsEqual(c.Contract[i], left.Contract()[i])
	}
	for i := range c.Owner {
		api.AssertIsEqual(left.Owner()[i], right.Owner()[i])
		api.AssertIsEqual(c.Owner[i], left.Owner()[i])
	}
	api.AssertIsEqual(left.MappingSlot(), right.MappingSlot())
	api.AssertIsEqual(c.MappingSlot, left.MappingSlot())
	api.AssertIsEqual(left.SlotLength(), right.SlotLength())
	api.AssertIsEqual(c.SlotLength, left.SlotLength())
	for i := range c.RewardsRate {
		api.AssertIsEqual(left.RewardsRate()[i], right.RewardsRate()[i])
		api.AssertIsEqual(c.RewardsRate[i], left.RewardsRate()[i])
	}

	var leftLimbs, rightLimbs [uint256.NumLimbs]frontend.Variable
	copy(leftLimbs[:], left.Result())
	copy(rightLimbs[:], right.Result())
	sum, carry := uint256.Add(api, uint256.New(api, leftLimbs), uint256.New(api, rightLimbs))
	api.AssertIsEqual(carry, 0)
	for i := range c.Result {
		api.AssertIsEqual(c.Result[i], sum.Limbs[i])
	}

	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(left.Root())
	h.Write(right.Root())
	api.AssertIsEqual(c.Root, h.Sum())
	return nil
}

// PlaceholderFullNode returns a compilation placeholder sized from any
// member of the block-range circuit set.
func PlaceholderFullNode(memberCCS constraint.ConstraintSystem) *FullNodeCircuit {
	return &FullNodeCircuit{
		Left:     circuitset.PlaceholderVerifiedProof(memberCCS),
		Right:    circuitset.PlaceholderVerifiedProof(memberCCS),
		Verifier: circuitset.NewVerifier(NumPublicInputs),
	}
}

// MergeRoots computes the native commitment of a merged range.
func MergeRoots(left, right *big.Int) *big.Int {
	return circuits.HashMiMC(left, right)
}

// FullNodeAssignment merges two verified children natively, checking
// the same adjacency and overflow conditions the circuit enforces so
// callers get a plain error instead of an unsolvable witness.
func FullNodeAssignment(left, right PublicInputs[*big.Int], setRoot *big.Int,
	leftProof, rightProof circuitset.VerifiedProof) (*FullNodeCircuit, error) {
	want := new(big.Int).Sub(right.BlockNumber(), right.Range())
	if left.BlockNumber().Cmp(want) != 0 {
		return nil, fmt.Errorf("ranges not adjacent: left ends at block %s, right starts after %s",
			left.BlockNumber(), want)
	}
	for i := range left.Contract() {
		if left.Contract()[i].Cmp(right.Contract()[i]) != 0 {
			return nil, fmt.Errorf("contract mismatch between children")
		}
	}
	for i := range left.Owner() {
		if left.Owner()[i].Cmp(right.Owner()[i]) != 0 {
			return nil, fmt.Errorf("owner mismatch between children")
		}
	}
	if left.MappingSlot().Cmp(right.MappingSlot()) != 0 ||
		left.SlotLength().Cmp(right.SlotLength()) != 0 {
		return nil, fmt.Errorf("slot identity mismatch between children")
	}
	for i := range left.RewardsRate() {
		if left.RewardsRate()[i].Cmp(right.RewardsRate()[i]) != 0 {
			return nil, fmt.Errorf("rewards rate mismatch between children")
		}
	}

	sum := new(big.Int).Add(resultValue(left), resultValue(right))
	if sum.BitLen() > 256 {
		return nil, fmt.Errorf("merged result overflows 256 bits")
	}
	sumLimbs, err := uint256.LimbsFromBig(sum)
	if err != nil {
		return nil, err
	}

	a := &FullNodeCircuit{
		BlockNumber: right.BlockNumber(),
		Range:       new(big.Int).Add(left.Range(), right.Range()),
		Root:        MergeRoots(left.Root(), right.Root()),
		MappingSlot: left.MappingSlot(),
		SlotLength:  left.SlotLength(),
		SetRoot:     setRoot,
		Left:        leftProof,
		Right:       rightProof,
	}
	for i := range a.Contract {
		a.Contract[i] = left.Contract()[i]
	}
	for i := range a.Owner {
		a.Owner[i] = left.Owner()[i]
	}
	for i := 0; i < uint256.NumLimbs; i++ {
		a.Result[i] = sumLimbs[i]
		a.RewardsRate[i] = left.RewardsRate()[i]
	}
	return a, nil
}

func resultValue(p PublicInputs[*big.Int]) *big.Int {
	v := new(big.Int)
	for i := len(p.Result()) - 1; i >= 0; i-- {
		v.Lsh(v, 32)
		v.Add(v, p.Result()[i])
	}
	return v
}
