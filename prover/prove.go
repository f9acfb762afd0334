package prover

import (
	"fmt"
	"math/big"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	fr_bn254 "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/frontend"
	stdgroth16 "github.com/consensys/gnark/std/recursion/groth16"

	"github.com/chainquery/chainquery/circuits"
	"github.com/chainquery/chainquery/circuits/blockrange"
	"github.com/chainquery/chainquery/circuits/circuitset"
	"github.com/chainquery/chainquery/circuits/revelation"
	"github.com/chainquery/chainquery/circuits/storagetrie"
	"github.com/chainquery/chainquery/log"
)

// Family identifies which circuit family produced a proof.
type Family int

const (
	FamilyStorage Family = iota
	FamilyBlock
	FamilyDatabase
	FamilyRevelation
)

func (f Family) String() string {
	switch f {
	case FamilyStorage:
		return "storage"
	case FamilyBlock:
		return "block"
	case FamilyDatabase:
		return "database"
	case FamilyRevelation:
		return "revelation"
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// Proof is one generated proof plus the material needed to feed it into
// the next aggregation layer or hand it to an external verifier.
type Proof struct {
	Family      Family
	MemberIndex int

	Proof         groth16.Proof
	PublicWitness witness.Witness
	VK            groth16.VerifyingKey

	// Inputs is the full public-input vector as big integers, in the
	// producing layout's positional order (including the trailing set
	// root for set members).
	Inputs []*big.Int
}

// Bundle packages the proof for the wire.
func (pr *Proof) Bundle() (*circuitset.ProofWithVK, error) {
	return circuitset.NewProofWithVK(pr.Proof, pr.VK, pr.PublicWitness)
}

// GenerateProof proves one circuit input. Validation that the circuit
// would anyway make unsatisfiable runs natively first, so callers get a
// typed error instead of a failed solver.
func (p *Params) GenerateProof(input CircuitInput) (*Proof, error) {
	switch in := input.(type) {
	case LeafInput:
		assignment, err := storagetrie.LeafAssignment(in.Key, in.Value, in.Owner, p.storageSet.Root())
		if err != nil {
			return nil, err
		}
		return p.prove(p.leaf, FamilyStorage, StorageLeafMember, assignment)

	case ExtensionInput:
		child, vp, err := p.storageChild(in.Child)
		if err != nil {
			return nil, err
		}
		assignment, err := storagetrie.ExtensionAssignment(child, p.storageSet.Root(), in.PrefixLen, vp)
		if err != nil {
			return nil, err
		}
		return p.prove(p.extension, FamilyStorage, StorageExtensionMember, assignment)

	case BranchInput:
		arity, member, err := branchArity(len(in.Children))
		if err != nil {
			return nil, err
		}
		children := make([]storagetrie.PublicInputs[*big.Int], len(in.Children))
		proofs := make([]circuitset.VerifiedProof, len(in.Children))
		for i, childProof := range in.Children {
			if children[i], proofs[i], err = p.storageChild(childProof); err != nil {
				return nil, fmt.Errorf("child %d: %w", i, err)
			}
		}
		assignment, err := storagetrie.BranchAssignment(arity, in.Slots, p.storageSet.Root(), children, proofs)
		if err != nil {
			return nil, err
		}
		return p.prove(p.branches[arity], FamilyStorage, member, assignment)

	case BlockLeafInput:
		st, vp, err := p.storageChild(in.Storage)
		if err != nil {
			return nil, err
		}
		assignment, err := blockrange.BlockLeafAssignment(in.BlockNumber, st, in.Query, p.blockSet.Root(), vp)
		if err != nil {
			return nil, err
		}
		return p.prove(p.blockLeaf, FamilyBlock, BlockLeafMember, assignment)

	case FullNodeInput:
		left, leftVP, err := p.blockChild(in.Left)
		if err != nil {
			return nil, fmt.Errorf("left child: %w", err)
		}
		right, rightVP, err := p.blockChild(in.Right)
		if err != nil {
			return nil, fmt.Errorf("right child: %w", err)
		}
		assignment, err := blockrange.FullNodeAssignment(left, right, p.blockSet.Root(), leftVP, rightVP)
		if err != nil {
			return nil, err
		}
		return p.prove(p.fullNode, FamilyBlock, BlockFullNodeMember, assignment)

	case PartialNodeInput:
		child, vp, err := p.blockChild(in.Child)
		if err != nil {
			return nil, err
		}
		assignment := blockrange.PartialNodeAssignment(child, p.blockSet.Root(), in.SiblingHash, in.SiblingOnLeft, vp)
		return p.prove(p.partialNode, FamilyBlock, BlockPartialNodeMember, assignment)

	case DatabaseInput:
		assignment := revelation.StandInDBAssignment(in.FirstBlock, in.LastBlock, in.LastRoot, in.Header)
		return p.prove(p.db, FamilyDatabase, 0, assignment)

	case RevelationInput:
		rng, rangeVP, err := p.blockChild(in.Range)
		if err != nil {
			return nil, fmt.Errorf("range proof: %w", err)
		}
		if in.Database == nil {
			return nil, fmt.Errorf("database proof: %w", ErrMissingChild)
		}
		if in.Database.Family != FamilyDatabase || len(in.Database.Inputs) != revelation.DBNumPublicInputs {
			return nil, fmt.Errorf("database proof is %s: %w", in.Database.Family, ErrWrongFamily)
		}
		db := revelation.DBFromVector(in.Database.Inputs)
		dbInner, err := circuits.ValueOfInnerProof(in.Database.Proof, in.Database.PublicWitness)
		if err != nil {
			return nil, fmt.Errorf("database proof: %w", err)
		}
		assignment, err := revelation.Assignment(rng, db, in.MinBlock, in.MaxBlock, rangeVP, dbInner)
		if err != nil {
			return nil, err
		}
		return p.prove(p.revelation, FamilyRevelation, 0, assignment)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownInput, input)
}

// VerifyRevelation checks a terminal proof against the revelation key.
func (p *Params) VerifyRevelation(pr *Proof) error {
	if pr.Family != FamilyRevelation {
		return fmt.Errorf("proof is %s: %w", pr.Family, ErrWrongFamily)
	}
	return groth16.Verify(pr.Proof, p.revelation.vk, pr.PublicWitness)
}

// branchArity picks the smallest supported arity covering n children
// and the member index of the matching branch circuit.
func branchArity(n int) (arity, member int, err error) {
	if n < 1 {
		return 0, 0, ErrNoChildren
	}
	for i, a := range circuits.BranchArities {
		if n <= a {
			return a, StorageBranch2Member + i, nil
		}
	}
	max := circuits.BranchArities[len(circuits.BranchArities)-1]
	return 0, 0, fmt.Errorf("%w: %d children, largest arity is %d", ErrTooManyChildren, n, max)
}

// storageChild converts a storage-family child proof into the layout
// view and the membership-bound witness the aggregating circuit takes.
func (p *Params) storageChild(pr *Proof) (storagetrie.PublicInputs[*big.Int], circuitset.VerifiedProof, error) {
	var empty storagetrie.PublicInputs[*big.Int]
	if pr == nil {
		return empty, circuitset.VerifiedProof{}, ErrMissingChild
	}
	if pr.Family != FamilyStorage || len(pr.Inputs) != storagetrie.NumPublicInputs+1 {
		return empty, circuitset.VerifiedProof{}, fmt.Errorf("proof is %s: %w", pr.Family, ErrWrongFamily)
	}
	inner, err := circuits.ValueOfInnerProof(pr.Proof, pr.PublicWitness)
	if err != nil {
		return empty, circuitset.VerifiedProof{}, err
	}
	vp, err := circuitset.AssignVerifiedProof(p.storageSet, pr.MemberIndex, inner)
	if err != nil {
		return empty, circuitset.VerifiedProof{}, err
	}
	return storagetrie.FromVector(pr.Inputs[:storagetrie.NumPublicInputs]), vp, nil
}

// blockChild is storageChild for the block-range family.
func (p *Params) blockChild(pr *Proof) (blockrange.PublicInputs[*big.Int], circuitset.VerifiedProof, error) {
	var empty blockrange.PublicInputs[*big.Int]
	if pr == nil {
		return empty, circuitset.VerifiedProof{}, ErrMissingChild
	}
	if pr.Family != FamilyBlock || len(pr.Inputs) != blockrange.NumPublicInputs+1 {
		return empty, circuitset.VerifiedProof{}, fmt.Errorf("proof is %s: %w", pr.Family, ErrWrongFamily)
	}
	inner, err := circuits.ValueOfInnerProof(pr.Proof, pr.PublicWitness)
	if err != nil {
		return empty, circuitset.VerifiedProof{}, err
	}
	vp, err := circuitset.AssignVerifiedProof(p.blockSet, pr.MemberIndex, inner)
	if err != nil {
		return empty, circuitset.VerifiedProof{}, err
	}
	return blockrange.FromVector(pr.Inputs[:blockrange.NumPublicInputs]), vp, nil
}

// prove builds the witness and runs Groth16 on the given artifact. Set
// members and the database proof are proved with the recursion-aware
// hash-to-field options so the emulated verifier one layer up accepts
// them; the terminal revelation proof is a plain Groth16 proof.
func (p *Params) prove(a *artifact, family Family, member int, assignment frontend.Circuit) (*Proof, error) {
	start := time.Now()
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("witness: %w", err)
	}
	pub, err := w.Public()
	if err != nil {
		return nil, fmt.Errorf("public witness: %w", err)
	}
	var opts []backend.ProverOption
	if family != FamilyRevelation {
		opts = append(opts, stdgroth16.GetNativeProverOptions(
			ecc.BN254.ScalarField(), ecc.BN254.ScalarField()))
	}
	proof, err := groth16.Prove(a.ccs, a.pk, w, opts...)
	if err != nil {
		return nil, fmt.Errorf("prove %s/%d: %w", family, member, err)
	}
	inputs, err := publicVector(pub)
	if err != nil {
		return nil, err
	}
	log.Debugw("proof generated",
		"family", family.String(),
		"member", member,
		"took", time.Since(start).String(),
	)
	return &Proof{
		Family:        family,
		MemberIndex:   member,
		Proof:         proof,
		PublicWitness: pub,
		VK:            a.vk,
		Inputs:        inputs,
	}, nil
}

// publicVector extracts a public witness as big integers.
func publicVector(pub witness.Witness) ([]*big.Int, error) {
	vec, ok := pub.Vector().(fr_bn254.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected witness vector type %T", pub.Vector())
	}
	out := make([]*big.Int, len(vec))
	for i := range vec {
		out[i] = new(big.Int)
		vec[i].BigInt(out[i])
	}
	return out, nil
}
