package circuitset

import (
	"fmt"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/emulated/sw_bn254"
	stdgroth16 "github.com/consensys/gnark/std/recursion/groth16"

	"github.com/chainquery/chainquery/circuits"
)

// FixedVerifier pins the verifying key of one specific circuit as a
// constant and skips the set-membership check entirely. It is the variant
// used when the outer circuit must guarantee the inner proof came from one
// particular trusted circuit (the append-only block database) rather than
// any member of a broader family. Trusting one circuit versus trusting a
// set is a deliberate security boundary; do not substitute one for the
// other.
type FixedVerifier struct {
	Key  emuVerifyingKey `gnark:"-"`
	nbIO int
}

// NewFixedVerifier embeds the given circuit's key as a constant, with line
// precomputation since the key never varies.
func NewFixedVerifier(vk groth16.VerifyingKey, nbPublicInputs int) (FixedVerifier, error) {
	emuVK, err := stdgroth16.ValueOfVerifyingKeyFixed[sw_bn254.G1Affine, sw_bn254.G2Affine, sw_bn254.GTEl](vk)
	if err != nil {
		return FixedVerifier{}, fmt.Errorf("fixed key: %w", err)
	}
	return FixedVerifier{Key: emuVK, nbIO: nbPublicInputs}, nil
}

// Verify checks the proof against the pinned key and returns its public
// inputs as native variables.
func (v *FixedVerifier) Verify(api frontend.API, p circuits.InnerProof) ([]frontend.Variable, error) {
	verifier, err := stdgroth16.NewVerifier[sw_bn254.ScalarField, sw_bn254.G1Affine, sw_bn254.G2Affine, sw_bn254.GTEl](api)
	if err != nil {
		return nil, fmt.Errorf("recursion verifier: %w", err)
	}
	if err := verifier.AssertProof(v.Key, p.Proof, p.Witness); err != nil {
		return nil, fmt.Errorf("assert proof: %w", err)
	}
	return circuits.PublicInputsFromWitness(api, p.Witness, v.nbIO)
}
