package circuitset

import (
	"fmt"

	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/emulated/sw_bn254"
	stdgroth16 "github.com/consensys/gnark/std/recursion/groth16"
	garbo "github.com/vocdoni/gnark-crypto-primitives/tree/arbo"
	"github.com/vocdoni/gnark-crypto-primitives/utils"

	"github.com/chainquery/chainquery/circuits"
)

// Membership is the witness material binding one recursively verified
// proof to a member of the circuit set: the claimed member index and the
// Merkle siblings proving that member's digest under the set root.
type Membership struct {
	KeyIndex frontend.Variable
	Siblings [circuits.SetMaxLevels]frontend.Variable
}

// VerifiedProof bundles an inner proof with the claimed verifying key and
// the membership witness tying that key to the circuit set. The key is a
// witness, not a constant: the gadget hashes it and proves the digest is
// a set member, which is what lets a circuit family verify its own proofs
// recursively without embedding its own key.
type VerifiedProof struct {
	Inner      circuits.InnerProof
	VK         emuVerifyingKey
	Membership Membership
}

// Verifier is the universal verifier gadget: it verifies a proof against
// any member of a committed circuit set instead of one hardcoded circuit.
// One instance is built per kind of recursively verified proof,
// parameterized by the number of public inputs that kind exposes beyond
// the trailing set-root input every member carries.
type Verifier struct {
	nbIO int
}

// NewVerifier instantiates the gadget for a family of circuits exposing
// nbPublicInputs family public inputs plus the trailing set root.
func NewVerifier(nbPublicInputs int) Verifier {
	return Verifier{nbIO: nbPublicInputs}
}

// Verify checks p against the set committed by setRoot and returns the
// verified proof's family public inputs as native variables. The
// witnessed key is hashed and its digest proved a member of the set at
// the claimed index; the generic Groth16 check then runs with that key;
// finally the inner proof's own trailing set-root input must equal
// setRoot, so the whole recursion chain speaks about one set. A key
// outside the set makes the membership check unsatisfiable: the proof
// cannot be generated.
func (v Verifier) Verify(api frontend.API, setRoot frontend.Variable, p VerifiedProof) ([]frontend.Variable, error) {
	digest, err := digestInCircuit(api, &p.VK)
	if err != nil {
		return nil, fmt.Errorf("key digest: %w", err)
	}
	if err := garbo.CheckInclusionProof(api, utils.MiMCHasher,
		p.Membership.KeyIndex, digest, setRoot, p.Membership.Siblings[:]); err != nil {
		return nil, fmt.Errorf("set membership: %w", err)
	}
	verifier, err := stdgroth16.NewVerifier[sw_bn254.ScalarField, sw_bn254.G1Affine, sw_bn254.G2Affine, sw_bn254.GTEl](api)
	if err != nil {
		return nil, fmt.Errorf("recursion verifier: %w", err)
	}
	if err := verifier.AssertProof(p.VK, p.Inner.Proof, p.Inner.Witness); err != nil {
		return nil, fmt.Errorf("assert proof: %w", err)
	}
	inputs, err := circuits.PublicInputsFromWitness(api, p.Inner.Witness, v.nbIO+1)
	if err != nil {
		return nil, err
	}
	api.AssertIsEqual(inputs[v.nbIO], setRoot)
	return inputs[:v.nbIO], nil
}

// PlaceholderVerifiedProof returns the compile-time placeholder of a
// recursively verified proof of the given member circuit shape. Any
// member of the family works: they all expose the same public-input
// count and commitment structure.
func PlaceholderVerifiedProof(ccs constraint.ConstraintSystem) VerifiedProof {
	return VerifiedProof{
		Inner: circuits.PlaceholderInnerProof(ccs),
		VK:    stdgroth16.PlaceholderVerifyingKey[sw_bn254.G1Affine, sw_bn254.G2Affine, sw_bn254.GTEl](ccs),
	}
}

// AssignVerifiedProof builds the witness assignment binding a generated
// proof to its set member: the proof and public witness in emulated
// form, the member's key and index, and the membership siblings.
func AssignVerifiedProof(set *Set, memberIndex int, inner circuits.InnerProof) (VerifiedProof, error) {
	vk, err := set.MemberKey(memberIndex)
	if err != nil {
		return VerifiedProof{}, err
	}
	siblings, err := set.InclusionWitness(memberIndex)
	if err != nil {
		return VerifiedProof{}, err
	}
	return VerifiedProof{
		Inner: inner,
		VK:    vk,
		Membership: Membership{
			KeyIndex: memberIndex,
			Siblings: siblings,
		},
	}, nil
}
