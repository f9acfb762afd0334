package prover

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/chainquery/chainquery/circuits"
	"github.com/chainquery/chainquery/circuits/blockrange"
	"github.com/chainquery/chainquery/circuits/revelation"
	"github.com/chainquery/chainquery/circuits/storagetrie"
)

func testEntryOwner(tag int64) [storagetrie.OwnerLen]*big.Int {
	var owner [storagetrie.OwnerLen]*big.Int
	for i := range owner {
		owner[i] = big.NewInt(tag*10 + int64(i))
	}
	return owner
}

// walkInputs flattens a plan tree into the inputs its Build callbacks
// produce, feeding empty proofs where child material is expected.
func walkInputs(c *qt.C, n *PlanNode) []CircuitInput {
	var out []CircuitInput
	dummies := make([]*Proof, len(n.Children))
	for i, child := range n.Children {
		out = append(out, walkInputs(c, child)...)
		dummies[i] = &Proof{}
	}
	input, err := n.Build(dummies)
	c.Assert(err, qt.IsNil)
	return append(out, input)
}

func TestStorageTriePlanSingleEntry(t *testing.T) {
	c := qt.New(t)

	owner := testEntryOwner(1)
	var key [32]byte
	key[0], key[31] = 0xab, 0x0f
	entries := []Entry{{Key: key, Owner: owner, Value: big.NewInt(42)}}

	plan, root, err := StorageTriePlan(entries, owner)
	c.Assert(err, qt.IsNil)

	// One leaf bridged to the root by a single 64-nibble extension.
	nibbles := storagetrie.KeyNibbles(key)
	leafRoot, err := storagetrie.LeafRoot(nibbles, big.NewInt(42))
	c.Assert(err, qt.IsNil)
	c.Assert(root.Cmp(storagetrie.ExtensionRoot(circuits.KeyNibbles, nibbles, leafRoot)), qt.Equals, 0)

	inputs := walkInputs(c, plan)
	c.Assert(inputs, qt.HasLen, 2)
	c.Assert(inputs[0], qt.DeepEquals, CircuitInput(LeafInput{Key: key, Value: big.NewInt(42), Owner: owner}))
	ext, ok := inputs[1].(ExtensionInput)
	c.Assert(ok, qt.IsTrue)
	c.Assert(ext.PrefixLen, qt.Equals, circuits.KeyNibbles)
}

func TestStorageTriePlanSplitsAndFilters(t *testing.T) {
	c := qt.New(t)

	owner := testEntryOwner(1)
	other := testEntryOwner(2)
	var keyA, keyB [32]byte
	keyA[31] = 0x01
	keyB[31] = 0x02
	entries := []Entry{
		{Key: keyA, Owner: owner, Value: big.NewInt(100)},
		{Key: keyB, Owner: other, Value: big.NewInt(200)},
	}

	plan, root, err := StorageTriePlan(entries, owner)
	c.Assert(err, qt.IsNil)

	// The keys diverge at the last nibble: a branch over both leaves,
	// bridged to the root by a 63-nibble extension. Only the queried
	// owner's leaf is in the plan.
	nibA := storagetrie.KeyNibbles(keyA)
	nibB := storagetrie.KeyNibbles(keyB)
	leafA, err := storagetrie.LeafRoot(nibA, big.NewInt(100))
	c.Assert(err, qt.IsNil)
	leafB, err := storagetrie.LeafRoot(nibB, big.NewInt(200))
	c.Assert(err, qt.IsNil)
	var slots [circuits.BranchSlots]*big.Int
	slots[nibA[circuits.KeyNibbles-1]] = leafA
	slots[nibB[circuits.KeyNibbles-1]] = leafB
	var aligned [circuits.KeyNibbles]byte
	copy(aligned[:circuits.KeyNibbles-1], nibA[:circuits.KeyNibbles-1])
	want := storagetrie.ExtensionRoot(circuits.KeyNibbles-1, aligned, storagetrie.BranchRoot(slots))
	c.Assert(root.Cmp(want), qt.Equals, 0)

	inputs := walkInputs(c, plan)
	c.Assert(inputs, qt.HasLen, 3)
	_, ok := inputs[0].(LeafInput)
	c.Assert(ok, qt.IsTrue)
	branch, ok := inputs[1].(BranchInput)
	c.Assert(ok, qt.IsTrue)
	c.Assert(branch.Children, qt.HasLen, 1)
	c.Assert(branch.Slots[nibB[circuits.KeyNibbles-1]].Cmp(leafB), qt.Equals, 0)
}

func TestStorageTriePlanErrors(t *testing.T) {
	c := qt.New(t)

	owner := testEntryOwner(1)
	_, _, err := StorageTriePlan(nil, owner)
	c.Assert(err, qt.ErrorMatches, "empty entry set")

	var key [32]byte
	dup := []Entry{
		{Key: key, Owner: owner, Value: big.NewInt(1)},
		{Key: key, Owner: owner, Value: big.NewInt(2)},
	}
	_, _, err = StorageTriePlan(dup, owner)
	c.Assert(err, qt.ErrorMatches, "duplicate entry key.*")

	_, _, err = StorageTriePlan(dup[:1], testEntryOwner(9))
	c.Assert(err, qt.ErrorMatches, "no entries owned by the queried address")
}

func testBlockInput(c *qt.C, blocks []uint64, lower, upper uint64) BlockRangePlanInput {
	in := BlockRangePlanInput{
		TrieRoots:    map[uint64]*big.Int{},
		StoragePlans: map[uint64]*PlanNode{},
		Lower:        lower,
		Upper:        upper,
	}
	for _, b := range blocks {
		in.TrieRoots[b] = big.NewInt(int64(b) * 1000)
	}
	for b := lower; b <= upper; b++ {
		in.StoragePlans[b] = Leaf(LeafInput{Value: big.NewInt(int64(b))})
	}
	return in
}

func TestBlockRangePlanStructure(t *testing.T) {
	c := qt.New(t)

	// Database knows blocks 4..7, query covers [5, 6]: the two covered
	// leaves sit in different sibling pairs, so each climbs past its
	// unproved neighbor with a partial node, the pairs merge with one
	// full node, and the merge climbs the remaining empty levels.
	in := testBlockInput(c, []uint64{4, 5, 6, 7}, 5, 6)
	tree, err := BlockRangePlan(in)
	c.Assert(err, qt.IsNil)
	c.Assert(tree.FirstBlock, qt.Equals, uint64(4))
	c.Assert(tree.LastBlock, qt.Equals, uint64(7))

	var leaves, fulls, partials int
	for _, input := range walkInputs(c, tree.Plan) {
		switch input.(type) {
		case BlockLeafInput:
			leaves++
		case FullNodeInput:
			fulls++
		case PartialNodeInput:
			partials++
		}
	}
	c.Assert(leaves, qt.Equals, 2)
	c.Assert(fulls, qt.Equals, 1)
	// One partial per boundary pair, then one per level above the
	// merged pair up to the tree root.
	c.Assert(partials, qt.Equals, 2+revelation.BlockTreeDepth-2)

	// The plan root must equal an independently folded tree root.
	level := map[uint64]*big.Int{}
	for b, trieRoot := range in.TrieRoots {
		level[b] = blockrange.LeafRoot(b, trieRoot)
	}
	empty := big.NewInt(0)
	for i := 0; i < revelation.BlockTreeDepth; i++ {
		next := map[uint64]*big.Int{}
		for pos, h := range level {
			parent := pos / 2
			if _, done := next[parent]; done {
				continue
			}
			sibling, ok := level[pos^1]
			if !ok {
				sibling = empty
			}
			if pos%2 == 0 {
				next[parent] = circuits.HashMiMC(h, sibling)
			} else {
				next[parent] = circuits.HashMiMC(sibling, h)
			}
		}
		level = next
		empty = circuits.HashMiMC(empty, empty)
	}
	c.Assert(tree.Root.Cmp(level[0]), qt.Equals, 0)
}

func TestBlockRangePlanErrors(t *testing.T) {
	c := qt.New(t)

	in := testBlockInput(c, []uint64{4, 5, 7}, 5, 6)
	_, err := BlockRangePlan(in)
	c.Assert(err, qt.ErrorMatches, "block 6 not in the database")

	in = testBlockInput(c, []uint64{5, 6}, 5, 6)
	delete(in.StoragePlans, 6)
	_, err = BlockRangePlan(in)
	c.Assert(err, qt.ErrorMatches, "block 6 has no storage plan")

	in = testBlockInput(c, []uint64{5}, 6, 5)
	_, err = BlockRangePlan(in)
	c.Assert(err, qt.ErrorMatches, `empty block interval \[6, 5\]`)
}

func TestRevelationPlanWiring(t *testing.T) {
	c := qt.New(t)

	in := testBlockInput(c, []uint64{3}, 3, 3)
	tree, err := BlockRangePlan(in)
	c.Assert(err, qt.IsNil)

	header := [2]*big.Int{big.NewInt(1), big.NewInt(2)}
	plan := RevelationPlan(tree, header, 2, 9)
	inputs := walkInputs(c, plan)

	last := inputs[len(inputs)-1]
	rev, ok := last.(RevelationInput)
	c.Assert(ok, qt.IsTrue)
	c.Assert(rev.MinBlock, qt.Equals, uint64(2))
	c.Assert(rev.MaxBlock, qt.Equals, uint64(9))

	var db DatabaseInput
	for _, input := range inputs {
		if d, ok := input.(DatabaseInput); ok {
			db = d
		}
	}
	c.Assert(db.FirstBlock, qt.Equals, uint64(3))
	c.Assert(db.LastBlock, qt.Equals, uint64(3))
	c.Assert(db.LastRoot.Cmp(tree.Root), qt.Equals, 0)
}
