package circuitset

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	qt "github.com/frankban/quicktest"
)

func TestBundleRoundTrip(t *testing.T) {
	c := qt.New(t)
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &cubicCircuit{})
	c.Assert(err, qt.IsNil)
	pk, vk, err := groth16.Setup(ccs)
	c.Assert(err, qt.IsNil)

	w, err := frontend.NewWitness(&cubicCircuit{X: 3, Y: 35}, ecc.BN254.ScalarField())
	c.Assert(err, qt.IsNil)
	proof, err := groth16.Prove(ccs, pk, w)
	c.Assert(err, qt.IsNil)
	pubW, err := w.Public()
	c.Assert(err, qt.IsNil)

	bundle, err := NewProofWithVK(proof, vk, pubW)
	c.Assert(err, qt.IsNil)
	data, err := bundle.Serialize()
	c.Assert(err, qt.IsNil)

	restored, err := Deserialize(data)
	c.Assert(err, qt.IsNil)
	c.Assert(restored.CircuitDigest.Cmp(bundle.CircuitDigest), qt.Equals, 0)

	// The restored parts must still verify together.
	c.Assert(groth16.Verify(restored.Proof, restored.VK, restored.PublicWitness), qt.IsNil)

	inputs, err := restored.PublicInputs()
	c.Assert(err, qt.IsNil)
	c.Assert(inputs, qt.HasLen, 1)
	c.Assert(inputs[0].Int64(), qt.Equals, int64(35))
}

func TestBundleDeserializeErrors(t *testing.T) {
	c := qt.New(t)
	// Truncated and garbage payloads are caller errors, not panics.
	_, err := Deserialize(nil)
	c.Assert(err, qt.IsNotNil)
	_, err = Deserialize([]byte{0xff, 0x01, 0x02})
	c.Assert(err, qt.IsNotNil)
	_, err = Deserialize(make([]byte, 64))
	c.Assert(err, qt.IsNotNil)
}
