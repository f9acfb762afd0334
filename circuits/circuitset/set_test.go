package circuitset

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	qt "github.com/frankban/quicktest"
)

// cubicCircuit is a minimal stand-in member circuit for set tests.
type cubicCircuit struct {
	X frontend.Variable
	Y frontend.Variable `gnark:",public"`
}

func (c *cubicCircuit) Define(api frontend.API) error {
	x3 := api.Mul(c.X, c.X, c.X)
	api.AssertIsEqual(c.Y, api.Add(x3, c.X, 5))
	return nil
}

// squareCircuit is a second member with a different constraint shape.
type squareCircuit struct {
	X frontend.Variable
	Y frontend.Variable `gnark:",public"`
}

func (c *squareCircuit) Define(api frontend.API) error {
	api.AssertIsEqual(c.Y, api.Mul(c.X, c.X))
	return nil
}

func setupKeys(c *qt.C) (groth16.VerifyingKey, groth16.VerifyingKey) {
	ccs1, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &cubicCircuit{})
	c.Assert(err, qt.IsNil)
	_, vk1, err := groth16.Setup(ccs1)
	c.Assert(err, qt.IsNil)

	ccs2, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &squareCircuit{})
	c.Assert(err, qt.IsNil)
	_, vk2, err := groth16.Setup(ccs2)
	c.Assert(err, qt.IsNil)
	return vk1, vk2
}

func TestCircuitDigestDeterministic(t *testing.T) {
	c := qt.New(t)
	vk1, vk2 := setupKeys(c)

	d1a, err := CircuitDigest(vk1)
	c.Assert(err, qt.IsNil)
	d1b, err := CircuitDigest(vk1)
	c.Assert(err, qt.IsNil)
	c.Assert(d1a.Cmp(d1b), qt.Equals, 0)

	d2, err := CircuitDigest(vk2)
	c.Assert(err, qt.IsNil)
	c.Assert(d1a.Cmp(d2), qt.Not(qt.Equals), 0)
}

func TestSetMembership(t *testing.T) {
	c := qt.New(t)
	vk1, vk2 := setupKeys(c)

	set, err := NewSet([]groth16.VerifyingKey{vk1, vk2})
	c.Assert(err, qt.IsNil)
	c.Assert(set.Size(), qt.Equals, 2)
	c.Assert(set.Root().Sign(), qt.Not(qt.Equals), 0)

	d1, err := CircuitDigest(vk1)
	c.Assert(err, qt.IsNil)
	c.Assert(set.Digest(0).Cmp(d1), qt.Equals, 0)

	idx, ok := set.IndexOf(d1)
	c.Assert(ok, qt.IsTrue)
	c.Assert(idx, qt.Equals, 0)

	// A digest outside the set is a miss, the condition that makes
	// proving against an unregistered circuit impossible.
	_, ok = set.IndexOf(big.NewInt(0xdead))
	c.Assert(ok, qt.IsFalse)

	_, err = set.InclusionWitness(0)
	c.Assert(err, qt.IsNil)
	_, err = set.InclusionWitness(5)
	c.Assert(err, qt.IsNotNil)
}

func TestSetRejectsEmpty(t *testing.T) {
	c := qt.New(t)
	_, err := NewSet(nil)
	c.Assert(err, qt.IsNotNil)
}
