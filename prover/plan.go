package prover

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Generator produces a proof from one circuit input. *Params implements
// it; tests substitute lighter generators.
type Generator interface {
	GenerateProof(input CircuitInput) (*Proof, error)
}

// PlanNode is one node of a proving plan: its children are proved
// first, then Build turns their proofs into this node's circuit input.
// For leaves, Build receives an empty slice.
type PlanNode struct {
	Build    func(children []*Proof) (CircuitInput, error)
	Children []*PlanNode
}

// Leaf makes a childless plan node for a fixed input.
func Leaf(input CircuitInput) *PlanNode {
	return &PlanNode{
		Build: func([]*Proof) (CircuitInput, error) { return input, nil },
	}
}

// RunPlan proves the plan tree bottom-up. Sibling subtrees run
// concurrently; at most workers proofs are generated at a time across
// the whole tree. The first failure cancels everything in flight and is
// returned; there are no retries, a node that cannot be proved aborts
// its branch.
func RunPlan(ctx context.Context, gen Generator, root *PlanNode, workers int) (*Proof, error) {
	if root == nil {
		return nil, fmt.Errorf("empty proving plan")
	}
	if workers < 1 {
		workers = 1
	}
	r := &planRunner{gen: gen, sem: make(chan struct{}, workers)}
	return r.run(ctx, root)
}

type planRunner struct {
	gen Generator
	sem chan struct{}
}

func (r *planRunner) run(ctx context.Context, n *PlanNode) (*Proof, error) {
	results := make([]*Proof, len(n.Children))
	if len(n.Children) > 0 {
		g, ctx := errgroup.WithContext(ctx)
		for i, child := range n.Children {
			g.Go(func() error {
				proof, err := r.run(ctx, child)
				if err != nil {
					return err
				}
				results[i] = proof
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	input, err := n.Build(results)
	if err != nil {
		return nil, err
	}

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-r.sem }()
	return r.gen.GenerateProof(input)
}
