package prover

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/chainquery/chainquery/circuits"
	"github.com/chainquery/chainquery/circuits/blockrange"
	"github.com/chainquery/chainquery/circuits/revelation"
	"github.com/chainquery/chainquery/circuits/storagetrie"
)

func TestBranchArity(t *testing.T) {
	c := qt.New(t)

	arity, member, err := branchArity(1)
	c.Assert(err, qt.IsNil)
	c.Assert(arity, qt.Equals, 2)
	c.Assert(member, qt.Equals, StorageBranch2Member)

	arity, member, err = branchArity(3)
	c.Assert(err, qt.IsNil)
	c.Assert(arity, qt.Equals, 9)
	c.Assert(member, qt.Equals, StorageBranch9Member)

	arity, member, err = branchArity(16)
	c.Assert(err, qt.IsNil)
	c.Assert(arity, qt.Equals, 16)
	c.Assert(member, qt.Equals, StorageBranch16Member)

	_, _, err = branchArity(0)
	c.Assert(err, qt.ErrorIs, ErrNoChildren)

	_, _, err = branchArity(17)
	c.Assert(err, qt.ErrorIs, ErrTooManyChildren)
}

// stubGenerator fakes proving with a short sleep, tracking how many
// proofs run at once.
type stubGenerator struct {
	mu     sync.Mutex
	active int
	peak   int
}

func (g *stubGenerator) GenerateProof(input CircuitInput) (*Proof, error) {
	g.mu.Lock()
	g.active++
	if g.active > g.peak {
		g.peak = g.active
	}
	g.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	g.mu.Lock()
	g.active--
	g.mu.Unlock()

	in, ok := input.(LeafInput)
	if !ok {
		return nil, fmt.Errorf("stub only proves leaves, got %T", input)
	}
	return &Proof{Inputs: []*big.Int{in.Value}}, nil
}

func stubLeaf(v int64) *PlanNode {
	return Leaf(LeafInput{Value: big.NewInt(v)})
}

func TestRunPlanBoundsWorkers(t *testing.T) {
	c := qt.New(t)

	// A sum-the-children root over eight leaves; the stub "proves" the
	// root as another leaf carrying the sum.
	leaves := make([]*PlanNode, 8)
	for i := range leaves {
		leaves[i] = stubLeaf(int64(i + 1))
	}
	root := &PlanNode{
		Children: leaves,
		Build: func(children []*Proof) (CircuitInput, error) {
			sum := new(big.Int)
			for _, ch := range children {
				sum.Add(sum, ch.Inputs[0])
			}
			return LeafInput{Value: sum}, nil
		},
	}

	gen := &stubGenerator{}
	proof, err := RunPlan(context.Background(), gen, root, 3)
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Inputs[0].Int64(), qt.Equals, int64(36))
	c.Assert(gen.peak <= 3, qt.IsTrue, qt.Commentf("peak concurrency %d", gen.peak))
}

func TestRunPlanAbortsOnFailure(t *testing.T) {
	c := qt.New(t)

	boom := fmt.Errorf("no witness for this node")
	root := &PlanNode{
		Children: []*PlanNode{
			stubLeaf(1),
			{Build: func([]*Proof) (CircuitInput, error) { return nil, boom }},
		},
		Build: func(children []*Proof) (CircuitInput, error) {
			return LeafInput{Value: big.NewInt(0)}, nil
		},
	}

	_, err := RunPlan(context.Background(), &stubGenerator{}, root, 2)
	c.Assert(err, qt.ErrorIs, boom)
}

func TestRunPlanHonorsCancellation(t *testing.T) {
	c := qt.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunPlan(ctx, &stubGenerator{}, stubLeaf(1), 1)
	c.Assert(err, qt.ErrorIs, context.Canceled)
}

// TestEndToEndProofChain drives the whole recursion: storage leaf,
// branch, extension, two block leaves, full node, partial node, the
// stand-in database and the terminal revelation proof. It compiles and
// sets up every circuit, so it takes a long time and a lot of memory.
func TestEndToEndProofChain(t *testing.T) {
	if os.Getenv("RUN_CIRCUIT_TESTS") == "" || os.Getenv("RUN_CIRCUIT_TESTS") == "false" {
		t.Skip("skipping heavy proving test")
	}
	c := qt.New(t)

	params, err := NewParams()
	c.Assert(err, qt.IsNil)

	var key [32]byte
	key[31] = 0x0c
	owner := [storagetrie.OwnerLen]*big.Int{
		big.NewInt(0xaaaa), big.NewInt(0xbbbb), big.NewInt(0xcccc),
		big.NewInt(0xdddd), big.NewInt(0xeeee),
	}
	value := big.NewInt(1000)

	leaf, err := params.GenerateProof(LeafInput{Key: key, Value: value, Owner: owner})
	c.Assert(err, qt.IsNil)

	// The branch consumes the leaf-side nibble of the key; its slot
	// table must carry the leaf root at that nibble's index.
	leafPI := storagetrie.FromVector(leaf.Inputs[:storagetrie.NumPublicInputs])
	nibbles := storagetrie.KeyNibbles(key)
	var slots [circuits.BranchSlots]*big.Int
	slots[nibbles[circuits.KeyNibbles-1]] = leafPI.Root()

	branch, err := params.GenerateProof(BranchInput{Slots: slots, Children: []*Proof{leaf}})
	c.Assert(err, qt.IsNil)

	// The extension consumes the remaining 63 nibbles, leaving a fully
	// resolved proof the block leaf accepts.
	ext, err := params.GenerateProof(ExtensionInput{PrefixLen: circuits.KeyNibbles - 1, Child: branch})
	c.Assert(err, qt.IsNil)

	query := blockrange.LeafQuery{
		Contract: [blockrange.ContractLen]*big.Int{
			big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(4), big.NewInt(5),
		},
		MappingSlot: 7,
		SlotLength:  1,
		RewardsRate: big.NewInt(50),
		TotalSupply: big.NewInt(1000),
	}

	blockA, err := params.GenerateProof(BlockLeafInput{BlockNumber: 91, Query: query, Storage: ext})
	c.Assert(err, qt.IsNil)
	blockB, err := params.GenerateProof(BlockLeafInput{BlockNumber: 92, Query: query, Storage: ext})
	c.Assert(err, qt.IsNil)

	merged, err := params.GenerateProof(FullNodeInput{Left: blockA, Right: blockB})
	c.Assert(err, qt.IsNil)

	sibling := big.NewInt(777)
	partial, err := params.GenerateProof(PartialNodeInput{
		Child: merged, SiblingHash: sibling, SiblingOnLeft: false,
	})
	c.Assert(err, qt.IsNil)
	partialPI := blockrange.FromVector(partial.Inputs[:blockrange.NumPublicInputs])

	header := [2]*big.Int{big.NewInt(0x1111), big.NewInt(0x2222)}
	db, err := params.GenerateProof(DatabaseInput{
		FirstBlock: 91, LastBlock: 92,
		LastRoot: partialPI.Root(), Header: header,
	})
	c.Assert(err, qt.IsNil)

	rev, err := params.GenerateProof(RevelationInput{
		Range: partial, Database: db, MinBlock: 91, MaxBlock: 92,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(params.VerifyRevelation(rev), qt.IsNil)

	// Two blocks of rate*value/supply = 50 each.
	revPI := revelation.FromVector(rev.Inputs)
	c.Assert(revPI.Result()[0].Int64(), qt.Equals, int64(100))
	c.Assert(revPI.Range().Int64(), qt.Equals, int64(2))
	c.Assert(revPI.BlockNumber().Int64(), qt.Equals, int64(92))
}
