package circuits

import (
	"fmt"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/std/algebra/emulated/sw_bn254"
	stdgroth16 "github.com/consensys/gnark/std/recursion/groth16"
)

// InnerProof is a recursively verified proof together with its public
// witness, both in the emulated form the in-circuit verifier consumes. The
// verifying key is deliberately not part of this type: it is supplied by
// the universal verifier (selected from a circuit set) or pinned as a
// circuit constant, and that distinction is a security boundary.
type InnerProof struct {
	Proof   stdgroth16.Proof[sw_bn254.G1Affine, sw_bn254.G2Affine]
	Witness stdgroth16.Witness[sw_bn254.ScalarField]
}

// PlaceholderInnerProof returns the compile-time placeholder for a proof of
// the given inner circuit.
func PlaceholderInnerProof(ccs constraint.ConstraintSystem) InnerProof {
	return InnerProof{
		Proof:   stdgroth16.PlaceholderProof[sw_bn254.G1Affine, sw_bn254.G2Affine](ccs),
		Witness: stdgroth16.PlaceholderWitness[sw_bn254.ScalarField](ccs),
	}
}

// ValueOfInnerProof converts a native proof and its public witness into the
// emulated assignment form.
func ValueOfInnerProof(proof groth16.Proof, pubWitness witness.Witness) (InnerProof, error) {
	p, err := stdgroth16.ValueOfProof[sw_bn254.G1Affine, sw_bn254.G2Affine](proof)
	if err != nil {
		return InnerProof{}, fmt.Errorf("proof value: %w", err)
	}
	w, err := stdgroth16.ValueOfWitness[sw_bn254.ScalarField](pubWitness)
	if err != nil {
		return InnerProof{}, fmt.Errorf("witness value: %w", err)
	}
	return InnerProof{Proof: p, Witness: w}, nil
}
