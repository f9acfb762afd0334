package storagetrie

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"

	"github.com/chainquery/chainquery/circuits"
	"github.com/chainquery/chainquery/circuits/circuitset"
)

// ExtensionCircuit consumes a run of key nibbles at once. It verifies
// the child proof with the universal verifier, checks the witnessed
// prefix against the consumed window of the exposed key, advances the
// pointer by the prefix length and rebuilds the node commitment as
// MiMC(extension-prefix, prefix length, aligned prefix, child root).
// Digest, owner, value and count pass through unchanged.
type ExtensionCircuit struct {
	Key     [KeyLen]frontend.Variable    `gnark:",public"`
	Pointer frontend.Variable            `gnark:",public"`
	Root    frontend.Variable            `gnark:",public"`
	Digest  [DigestLen]frontend.Variable `gnark:",public"`
	Owner   [OwnerLen]frontend.Variable  `gnark:",public"`
	Value   [ValueLen]frontend.Variable  `gnark:",public"`
	Count   frontend.Variable            `gnark:",public"`
	SetRoot frontend.Variable            `gnark:",public"`

	// PrefixLen is the number of nibbles this node consumes, at least 1.
	PrefixLen frontend.Variable
	// Prefix holds the consumed nibbles aligned at their absolute key
	// positions, zero everywhere else, so the hash preimage has a
	// constant shape.
	Prefix [KeyLen]frontend.Variable

	Child circuitset.VerifiedProof

	Verifier circuitset.Verifier
}

// Define implements frontend.Circuit.
func (c *ExtensionCircuit) Define(api frontend.API) error {
	childVec, err := c.Verifier.Verify(api, c.SetRoot, c.Child)
	if err != nil {
		return err
	}
	child := FromVector(childVec)

	circuits.AssertNibbles(api, c.Key[:])
	circuits.AssertNibbles(api, c.Prefix[:])
	api.AssertIsLessOrEqual(1, c.PrefixLen)
	api.AssertIsLessOrEqual(c.PrefixLen, KeyLen)
	api.AssertIsEqual(c.Pointer, api.Add(child.Pointer(), c.PrefixLen))
	api.AssertIsLessOrEqual(c.Pointer, KeyLen)

	// The consumed window is [KeyLen-Pointer, KeyLen-child.Pointer):
	// inside it the prefix must match the key, outside it must be zero.
	belowChild := circuits.MaskLessThan(api, KeyLen, api.Sub(KeyLen, child.Pointer()))
	belowOuter := circuits.MaskLessThan(api, KeyLen, api.Sub(KeyLen, c.Pointer))
	for i := 0; i < KeyLen; i++ {
		api.AssertIsEqual(c.Key[i], child.Key()[i])
		inWindow := api.Sub(belowChild[i], belowOuter[i])
		api.AssertIsEqual(api.Mul(inWindow, api.Sub(c.Prefix[i], c.Key[i])), 0)
		api.AssertIsEqual(api.Mul(api.Sub(1, inWindow), c.Prefix[i]), 0)
	}

	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(circuits.ExtensionHashPrefix)
	h.Write(c.PrefixLen)
	h.Write(c.Prefix[:]...)
	h.Write(child.Root())
	api.AssertIsEqual(c.Root, h.Sum())

	for i := range c.Digest {
		api.AssertIsEqual(c.Digest[i], child.Digest()[i])
	}
	for i := range c.Owner {
		api.AssertIsEqual(c.Owner[i], child.Owner()[i])
	}
	for i := range c.Value {
		api.AssertIsEqual(c.Value[i], child.Value()[i])
	}
	api.AssertIsEqual(c.Count, child.Count())
	return nil
}

// PlaceholderExtension returns the compile-time extension shell. The
// member constraint system fixes the shape of the recursively verified
// child proof; any family member works.
func PlaceholderExtension(memberCCS constraint.ConstraintSystem) *ExtensionCircuit {
	return &ExtensionCircuit{
		Child:    circuitset.PlaceholderVerifiedProof(memberCCS),
		Verifier: circuitset.NewVerifier(NumPublicInputs),
	}
}

// ExtensionAssignment builds an extension witness on top of an already
// verified child proof. The consumed prefix is read from the child's
// exposed key, so only the prefix length is needed.
func ExtensionAssignment(child PublicInputs[*big.Int], setRoot *big.Int, prefixLen int, proof circuitset.VerifiedProof) (*ExtensionCircuit, error) {
	childPtr := int(child.Pointer().Int64())
	newPtr := childPtr + prefixLen
	if prefixLen < 1 || newPtr > KeyLen {
		return nil, fmt.Errorf("prefix length %d out of range for child pointer %d", prefixLen, childPtr)
	}
	var aligned [circuits.KeyNibbles]byte
	for i := KeyLen - newPtr; i < KeyLen-childPtr; i++ {
		aligned[i] = byte(child.Key()[i].Int64())
	}
	root := ExtensionRoot(prefixLen, aligned, child.Root())

	a := &ExtensionCircuit{
		Pointer:   newPtr,
		Root:      root,
		Count:     child.Count(),
		SetRoot:   setRoot,
		PrefixLen: prefixLen,
		Child:     proof,
	}
	for i := 0; i < KeyLen; i++ {
		a.Key[i] = child.Key()[i]
		a.Prefix[i] = int64(aligned[i])
	}
	for i := range a.Digest {
		a.Digest[i] = child.Digest()[i]
	}
	for i := range a.Owner {
		a.Owner[i] = child.Owner()[i]
	}
	for i := range a.Value {
		a.Value[i] = child.Value()[i]
	}
	return a, nil
}
