package circuitset

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/emulated/sw_bn254"
	stdgroth16 "github.com/consensys/gnark/std/recursion/groth16"
	"github.com/vocdoni/arbo"
	"github.com/vocdoni/arbo/memdb"

	"github.com/chainquery/chainquery/circuits"
)

// setHash is the hash function of the membership tree; it must match the
// in-circuit hasher used by the verifier gadget.
var setHash = arbo.HashMiMC_BN254{}

// keyLen is the byte length of the index keys of the membership tree.
const keyLen = 4

// Set is an ordered, immutable collection of circuit digests a universal
// verifier is willing to accept, committed through a Merkle tree root (the
// set digest). It is built once when the full circuit family is known and
// shared read-only by all proof generation afterwards.
type Set struct {
	vks     []groth16.VerifyingKey
	digests []*big.Int
	tree    *arbo.Tree
	root    *big.Int
}

// NewSet builds the committed set from the family's verifying keys, in
// registration order. The order is part of the deployment contract: index i
// here is the key index provers present to the verifier gadget.
func NewSet(vks []groth16.VerifyingKey) (*Set, error) {
	if len(vks) == 0 {
		return nil, fmt.Errorf("empty circuit set")
	}
	if len(vks) > 1<<circuits.SetMaxLevels {
		return nil, fmt.Errorf("circuit set of %d members exceeds tree capacity", len(vks))
	}
	tree, err := arbo.NewTree(arbo.Config{
		Database: memdb.New(), MaxLevels: circuits.SetMaxLevels,
		HashFunction: setHash,
	})
	if err != nil {
		return nil, fmt.Errorf("set tree: %w", err)
	}
	digests := make([]*big.Int, len(vks))
	for i, vk := range vks {
		digest, err := CircuitDigest(vk)
		if err != nil {
			return nil, fmt.Errorf("digest of member %d: %w", i, err)
		}
		digests[i] = digest
		key := arbo.BigIntToBytes(keyLen, big.NewInt(int64(i)))
		value := arbo.BigIntToBytes(32, digest)
		if err := tree.Add(key, value); err != nil {
			return nil, fmt.Errorf("add member %d: %w", i, err)
		}
	}
	root, err := tree.Root()
	if err != nil {
		return nil, fmt.Errorf("set root: %w", err)
	}
	return &Set{vks: vks, digests: digests, tree: tree, root: arbo.BytesToBigInt(root)}, nil
}

// MemberKey returns the i-th member's verifying key in the emulated form
// assigned as the universal verifier's key witness.
func (s *Set) MemberKey(i int) (emuVerifyingKey, error) {
	if i < 0 || i >= len(s.vks) {
		return emuVerifyingKey{}, fmt.Errorf("member index %d out of range", i)
	}
	vk, err := stdgroth16.ValueOfVerifyingKey[sw_bn254.G1Affine, sw_bn254.G2Affine, sw_bn254.GTEl](s.vks[i])
	if err != nil {
		return emuVerifyingKey{}, fmt.Errorf("emulated key %d: %w", i, err)
	}
	return vk, nil
}

// Root returns the set digest. Verifiers of set-membership proofs must use
// the exact same digest the prover's gadget was built against.
func (s *Set) Root() *big.Int { return new(big.Int).Set(s.root) }

// Size returns the number of member circuits.
func (s *Set) Size() int { return len(s.digests) }

// Digest returns the digest of the i-th member circuit.
func (s *Set) Digest(i int) *big.Int { return new(big.Int).Set(s.digests[i]) }

// IndexOf locates a circuit digest in the set, reporting whether it is a
// member. A miss at proving time means the proof cannot be generated.
func (s *Set) IndexOf(digest *big.Int) (int, bool) {
	for i, d := range s.digests {
		if d.Cmp(digest) == 0 {
			return i, true
		}
	}
	return 0, false
}

// InclusionWitness produces the Merkle siblings proving membership of the
// i-th circuit, padded to the fixed tree depth for in-circuit consumption.
func (s *Set) InclusionWitness(i int) ([circuits.SetMaxLevels]frontend.Variable, error) {
	var padded [circuits.SetMaxLevels]frontend.Variable
	if i < 0 || i >= len(s.digests) {
		return padded, fmt.Errorf("member index %d out of range", i)
	}
	key := arbo.BigIntToBytes(keyLen, big.NewInt(int64(i)))
	_, _, packedSiblings, existence, err := s.tree.GenProof(key)
	if err != nil {
		return padded, fmt.Errorf("membership proof: %w", err)
	}
	if !existence {
		return padded, fmt.Errorf("member %d missing from the set tree", i)
	}
	siblings, err := arbo.UnpackSiblings(setHash, packedSiblings)
	if err != nil {
		return padded, fmt.Errorf("unpack siblings: %w", err)
	}
	for level := range padded {
		if level < len(siblings) {
			padded[level] = arbo.BytesToBigInt(siblings[level])
		} else {
			padded[level] = big.NewInt(0)
		}
	}
	return padded, nil
}
