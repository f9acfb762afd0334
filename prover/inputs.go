package prover

import (
	"math/big"

	"github.com/chainquery/chainquery/circuits"
	"github.com/chainquery/chainquery/circuits/blockrange"
	"github.com/chainquery/chainquery/circuits/storagetrie"
)

// CircuitInput is the tagged union of everything GenerateProof knows how
// to prove. Each variant carries the witness material of one circuit
// kind; child proofs are previous GenerateProof results.
type CircuitInput interface {
	circuitInput()
}

// LeafInput proves one storage-trie leaf: a mapping key, its stored
// value and the owning address packed into 32-bit limbs.
type LeafInput struct {
	Key   [32]byte
	Value *big.Int
	Owner [storagetrie.OwnerLen]*big.Int
}

// ExtensionInput consumes PrefixLen nibbles of the child's key.
type ExtensionInput struct {
	PrefixLen int
	Child     *Proof
}

// BranchInput aggregates up to 16 children under one branch node. Slots
// holds the node's 16 slot hashes (nil for empty slots); the smallest
// supported arity covering len(Children) is chosen and padded by
// duplicating the first child.
type BranchInput struct {
	Slots    [circuits.BranchSlots]*big.Int
	Children []*Proof
}

// BlockLeafInput binds a fully consumed storage proof to one block.
type BlockLeafInput struct {
	BlockNumber uint64
	Query       blockrange.LeafQuery
	Storage     *Proof
}

// FullNodeInput merges two adjacent block-range proofs.
type FullNodeInput struct {
	Left  *Proof
	Right *Proof
}

// PartialNodeInput extends a proved range over an unproved sibling.
type PartialNodeInput struct {
	Child         *Proof
	SiblingHash   *big.Int
	SiblingOnLeft bool
}

// DatabaseInput proves the stand-in block database circuit over the
// interval [FirstBlock, LastBlock]. A production deployment replaces
// this with the external collaborator's proof.
type DatabaseInput struct {
	FirstBlock uint64
	LastBlock  uint64
	LastRoot   *big.Int
	Header     [2]*big.Int
}

// RevelationInput produces the terminal proof binding an aggregated
// range proof and a database proof to the requested block interval.
type RevelationInput struct {
	Range    *Proof
	Database *Proof
	MinBlock uint64
	MaxBlock uint64
}

func (LeafInput) circuitInput()        {}
func (ExtensionInput) circuitInput()   {}
func (BranchInput) circuitInput()      {}
func (BlockLeafInput) circuitInput()   {}
func (FullNodeInput) circuitInput()    {}
func (PartialNodeInput) circuitInput() {}
func (DatabaseInput) circuitInput()    {}
func (RevelationInput) circuitInput()  {}
