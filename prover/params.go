package prover

import (
	"fmt"
	"math/big"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/chainquery/chainquery/circuits"
	"github.com/chainquery/chainquery/circuits/blockrange"
	"github.com/chainquery/chainquery/circuits/circuitset"
	"github.com/chainquery/chainquery/circuits/revelation"
	"github.com/chainquery/chainquery/circuits/storagetrie"
	"github.com/chainquery/chainquery/log"
)

// Member indices within the storage circuit set, in registration order.
// The order is part of the deployment: changing it changes the set root
// and invalidates every existing proof.
const (
	StorageLeafMember = iota
	StorageExtensionMember
	StorageBranch2Member
	StorageBranch9Member
	StorageBranch16Member
)

// Member indices within the block-range circuit set.
const (
	BlockLeafMember = iota
	BlockFullNodeMember
	BlockPartialNodeMember
)

// standInDBConstraints sizes the stand-in database circuit used when no
// external database verifying key is supplied.
const standInDBConstraints = 1 << 10

// artifact holds the compiled and set-up material of one circuit.
type artifact struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

func buildArtifact(name string, placeholder frontend.Circuit) (*artifact, error) {
	start := time.Now()
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, placeholder)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("setup %s: %w", name, err)
	}
	log.Debugw("circuit ready",
		"circuit", name,
		"constraints", ccs.GetNbConstraints(),
		"took", time.Since(start).String(),
	)
	return &artifact{ccs: ccs, pk: pk, vk: vk}, nil
}

// Params holds every compiled circuit, its keys and the committed
// circuit sets. Built once at startup and read-only afterwards, so it
// is safe to share across proving workers.
type Params struct {
	leaf      *artifact
	extension *artifact
	branches  map[int]*artifact // by arity

	blockLeaf   *artifact
	fullNode    *artifact
	partialNode *artifact

	db         *artifact
	revelation *artifact

	storageSet *circuitset.Set
	blockSet   *circuitset.Set
}

// NewParams compiles and sets up the full circuit family bottom-up: the
// storage-trie circuits first, their committed set, then the block-range
// circuits (which pin the storage set root as a constant), their set,
// and finally the stand-in database and the revelation circuit (which
// pins the block set root). This takes minutes and substantial memory.
func NewParams() (*Params, error) {
	start := time.Now()
	p := &Params{branches: make(map[int]*artifact)}

	var err error
	if p.leaf, err = buildArtifact("storage-leaf", &storagetrie.LeafCircuit{}); err != nil {
		return nil, err
	}
	// The leaf ccs is the shape donor for every storage-family verifier
	// placeholder: all members expose the same public-input and
	// commitment counts.
	if p.extension, err = buildArtifact("storage-extension",
		storagetrie.PlaceholderExtension(p.leaf.ccs)); err != nil {
		return nil, err
	}
	for _, arity := range circuits.BranchArities {
		placeholder, err := storagetrie.PlaceholderBranch(arity, p.leaf.ccs)
		if err != nil {
			return nil, err
		}
		if p.branches[arity], err = buildArtifact(
			fmt.Sprintf("storage-branch-%d", arity), placeholder); err != nil {
			return nil, err
		}
	}

	storageKeys := []groth16.VerifyingKey{
		StorageLeafMember:      p.leaf.vk,
		StorageExtensionMember: p.extension.vk,
		StorageBranch2Member:   p.branches[2].vk,
		StorageBranch9Member:   p.branches[9].vk,
		StorageBranch16Member:  p.branches[16].vk,
	}
	if p.storageSet, err = circuitset.NewSet(storageKeys); err != nil {
		return nil, fmt.Errorf("storage circuit set: %w", err)
	}

	if p.blockLeaf, err = buildArtifact("block-leaf",
		blockrange.PlaceholderBlockLeaf(p.leaf.ccs, p.storageSet.Root())); err != nil {
		return nil, err
	}
	if p.fullNode, err = buildArtifact("block-full-node",
		blockrange.PlaceholderFullNode(p.blockLeaf.ccs)); err != nil {
		return nil, err
	}
	if p.partialNode, err = buildArtifact("block-partial-node",
		blockrange.PlaceholderPartialNode(p.blockLeaf.ccs)); err != nil {
		return nil, err
	}

	blockKeys := []groth16.VerifyingKey{
		BlockLeafMember:        p.blockLeaf.vk,
		BlockFullNodeMember:    p.fullNode.vk,
		BlockPartialNodeMember: p.partialNode.vk,
	}
	if p.blockSet, err = circuitset.NewSet(blockKeys); err != nil {
		return nil, fmt.Errorf("block circuit set: %w", err)
	}

	if p.db, err = buildArtifact("block-database",
		revelation.StandInDBPlaceholder(standInDBConstraints)); err != nil {
		return nil, err
	}
	revPlaceholder, err := revelation.Placeholder(p.blockLeaf.ccs, p.db.ccs, p.db.vk, p.blockSet.Root())
	if err != nil {
		return nil, fmt.Errorf("revelation placeholder: %w", err)
	}
	if p.revelation, err = buildArtifact("revelation", revPlaceholder); err != nil {
		return nil, err
	}

	log.Infow("proving parameters ready",
		"storageSetRoot", p.storageSet.Root().String(),
		"blockSetRoot", p.blockSet.Root().String(),
		"took", time.Since(start).String(),
	)
	return p, nil
}

// StorageSetRoot returns the committed digest of the storage-trie
// circuit set.
func (p *Params) StorageSetRoot() *big.Int { return p.storageSet.Root() }

// BlockSetRoot returns the committed digest of the block-range circuit
// set.
func (p *Params) BlockSetRoot() *big.Int { return p.blockSet.Root() }

// RevelationKey returns the verifying key of the terminal circuit,
// which external consumers check final proofs against.
func (p *Params) RevelationKey() groth16.VerifyingKey { return p.revelation.vk }
