package prover

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/chainquery/chainquery/circuits"
	"github.com/chainquery/chainquery/circuits/blockrange"
	"github.com/chainquery/chainquery/circuits/revelation"
)

// BlockRangePlanInput describes one clamped query interval over the
// block database tree.
type BlockRangePlanInput struct {
	// TrieRoots maps every block the database knows to its storage trie
	// root. Blocks outside the queried interval only contribute their
	// leaf hashes.
	TrieRoots map[uint64]*big.Int

	// StoragePlans maps each block of [Lower, Upper] to the storage
	// proving plan of the queried owner's entries at that block.
	StoragePlans map[uint64]*PlanNode

	// Query is the identity all block leaves expose. Its TotalSupply is
	// only a default; a per-block entry in TotalSupplies overrides it.
	Query blockrange.LeafQuery

	// TotalSupplies optionally maps blocks of [Lower, Upper] to the
	// contract supply observed at that block.
	TotalSupplies map[uint64]*big.Int

	// Lower and Upper bound the proved interval, inclusive, already
	// clamped to the database's coverage.
	Lower, Upper uint64
}

// BlockRangeTree is a built block-range proving plan: the plan's proof
// covers exactly [Lower, Upper] and its root is the database tree root,
// which the revelation circuit matches against the database proof.
type BlockRangeTree struct {
	Plan       *PlanNode
	Root       *big.Int
	FirstBlock uint64
	LastBlock  uint64
}

// blockTreeBuilder carries the recursion state of one plan build.
type blockTreeBuilder struct {
	in    BlockRangePlanInput
	empty []*big.Int // empty-subtree roots by level
}

type builtLeaf struct {
	number uint64
	root   *big.Int
}

// BlockRangePlan builds the proving plan over the block database tree:
// block leaves for every block of the interval, full nodes merging
// adjacent covered subtrees and partial nodes climbing past uncovered
// siblings, up to the tree root. The block number indexes the leaf
// position, so the proved root is the same root the append-only
// database commits to.
func BlockRangePlan(in BlockRangePlanInput) (*BlockRangeTree, error) {
	if in.Lower > in.Upper {
		return nil, fmt.Errorf("empty block interval [%d, %d]", in.Lower, in.Upper)
	}
	if in.Upper >= 1<<revelation.BlockTreeDepth {
		return nil, fmt.Errorf("block %d beyond tree capacity", in.Upper)
	}
	if len(in.TrieRoots) == 0 {
		return nil, fmt.Errorf("empty block database")
	}
	for b := in.Lower; ; b++ {
		if in.TrieRoots[b] == nil {
			return nil, fmt.Errorf("block %d not in the database", b)
		}
		if in.StoragePlans[b] == nil {
			return nil, fmt.Errorf("block %d has no storage plan", b)
		}
		if b == in.Upper {
			break
		}
	}

	leaves := make([]builtLeaf, 0, len(in.TrieRoots))
	first, last := uint64(0), uint64(0)
	for number, trieRoot := range in.TrieRoots {
		if number >= 1<<revelation.BlockTreeDepth {
			return nil, fmt.Errorf("block %d beyond tree capacity", number)
		}
		leaves = append(leaves, builtLeaf{number, blockrange.LeafRoot(number, trieRoot)})
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].number < leaves[j].number })
	first, last = leaves[0].number, leaves[len(leaves)-1].number

	b := &blockTreeBuilder{in: in, empty: make([]*big.Int, revelation.BlockTreeDepth+1)}
	b.empty[0] = big.NewInt(0)
	for i := 1; i <= revelation.BlockTreeDepth; i++ {
		b.empty[i] = circuits.HashMiMC(b.empty[i-1], b.empty[i-1])
	}

	root, plan, err := b.cover(0, revelation.BlockTreeDepth, leaves)
	if err != nil {
		return nil, err
	}
	return &BlockRangeTree{Plan: plan, Root: root, FirstBlock: first, LastBlock: last}, nil
}

// cover walks the subtree rooted at position pos of the given level,
// returning its native root and, when it intersects the queried
// interval, the proving plan covering that intersection.
func (b *blockTreeBuilder) cover(pos uint64, level int, leaves []builtLeaf) (*big.Int, *PlanNode, error) {
	lo := pos << level
	hi := lo + (1 << level) - 1
	if hi < b.in.Lower || lo > b.in.Upper {
		return b.subtreeRoot(level, leaves), nil, nil
	}
	if level == 0 {
		// Inside the interval; validated to exist above.
		number := pos
		root := leaves[0].root
		storage := b.in.StoragePlans[number]
		query := b.in.Query
		if supply := b.in.TotalSupplies[number]; supply != nil {
			query.TotalSupply = supply
		}
		plan := &PlanNode{
			Children: []*PlanNode{storage},
			Build: func(proofs []*Proof) (CircuitInput, error) {
				return BlockLeafInput{BlockNumber: number, Query: query, Storage: proofs[0]}, nil
			},
		}
		return root, plan, nil
	}

	mid := lo + 1<<(level-1)
	split := sort.Search(len(leaves), func(i int) bool { return leaves[i].number >= mid })
	leftRoot, leftPlan, err := b.cover(2*pos, level-1, leaves[:split])
	if err != nil {
		return nil, nil, err
	}
	rightRoot, rightPlan, err := b.cover(2*pos+1, level-1, leaves[split:])
	if err != nil {
		return nil, nil, err
	}
	root := circuits.HashMiMC(leftRoot, rightRoot)

	switch {
	case leftPlan != nil && rightPlan != nil:
		return root, &PlanNode{
			Children: []*PlanNode{leftPlan, rightPlan},
			Build: func(proofs []*Proof) (CircuitInput, error) {
				return FullNodeInput{Left: proofs[0], Right: proofs[1]}, nil
			},
		}, nil
	case leftPlan != nil:
		return root, partialPlan(leftPlan, rightRoot, false), nil
	case rightPlan != nil:
		return root, partialPlan(rightPlan, leftRoot, true), nil
	}
	return nil, nil, fmt.Errorf("interval [%d, %d] intersects an unproved subtree", b.in.Lower, b.in.Upper)
}

func partialPlan(child *PlanNode, sibling *big.Int, siblingOnLeft bool) *PlanNode {
	return &PlanNode{
		Children: []*PlanNode{child},
		Build: func(proofs []*Proof) (CircuitInput, error) {
			return PartialNodeInput{Child: proofs[0], SiblingHash: sibling, SiblingOnLeft: siblingOnLeft}, nil
		},
	}
}

// subtreeRoot hashes a subtree that needs no proof.
func (b *blockTreeBuilder) subtreeRoot(level int, leaves []builtLeaf) *big.Int {
	if len(leaves) == 0 {
		return b.empty[level]
	}
	if level == 0 {
		return leaves[0].root
	}
	// Position offsets inside the subtree are implicit: split by the
	// midpoint of the covered numbers at this level.
	mid := (leaves[0].number >> level << level) + 1<<(level-1)
	split := sort.Search(len(leaves), func(i int) bool { return leaves[i].number >= mid })
	return circuits.HashMiMC(
		b.subtreeRoot(level-1, leaves[:split]),
		b.subtreeRoot(level-1, leaves[split:]),
	)
}

// RevelationPlan wraps a built range plan and the database proof into
// the terminal plan node. minBlock and maxBlock are the request's raw
// bounds, before clamping.
func RevelationPlan(tree *BlockRangeTree, header [2]*big.Int, minBlock, maxBlock uint64) *PlanNode {
	dbNode := Leaf(DatabaseInput{
		FirstBlock: tree.FirstBlock,
		LastBlock:  tree.LastBlock,
		LastRoot:   tree.Root,
		Header:     header,
	})
	return &PlanNode{
		Children: []*PlanNode{tree.Plan, dbNode},
		Build: func(proofs []*Proof) (CircuitInput, error) {
			return RevelationInput{
				Range:    proofs[0],
				Database: proofs[1],
				MinBlock: minBlock,
				MaxBlock: maxBlock,
			}, nil
		},
	}
}
