package processor

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/chainquery/chainquery/circuits"
	"github.com/chainquery/chainquery/circuits/blockrange"
	"github.com/chainquery/chainquery/circuits/revelation"
	"github.com/chainquery/chainquery/prover"
	"github.com/chainquery/chainquery/storage"
	"github.com/chainquery/chainquery/types"
)

// addressByteLen is the expected length of contract and owner addresses.
const addressByteLen = 20

// processQuery composes the whole proof chain of one query: per-block
// storage trie plans for the clamped interval, the block-range plan
// over the database tree, and the terminal revelation proof.
func (p *QueryProcessor) processQuery(ctx context.Context, id []byte, q *storage.Query) (*storage.Result, error) {
	snaps, err := p.stg.BlockSnapshots(0, math.MaxUint64)
	if err != nil {
		return nil, fmt.Errorf("load block snapshots: %w", err)
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("no blocks ingested")
	}
	b0, b1 := snaps[0].Number, snaps[len(snaps)-1].Number

	lower, upper := revelation.ClampBounds(b0, b1, q.MinBlock, q.MaxBlock)
	if lower > upper {
		return nil, fmt.Errorf("query interval [%d, %d] does not intersect database coverage [%d, %d]",
			q.MinBlock, q.MaxBlock, b0, b1)
	}

	if q.RewardsRate == nil {
		return nil, fmt.Errorf("query has no rewards rate")
	}
	owner, err := addressLimbs(q.Owner)
	if err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	contract, err := addressLimbs(q.Contract)
	if err != nil {
		return nil, fmt.Errorf("contract: %w", err)
	}

	trieRoots := make(map[uint64]*big.Int, len(snaps))
	storagePlans := make(map[uint64]*prover.PlanNode)
	totalSupplies := make(map[uint64]*big.Int)
	for _, snap := range snaps {
		entries, err := trieEntries(snap)
		if err != nil {
			return nil, err
		}
		if snap.Number >= lower && snap.Number <= upper {
			if snap.TotalSupply == nil {
				return nil, fmt.Errorf("block %d snapshot has no total supply", snap.Number)
			}
			plan, root, err := prover.StorageTriePlan(entries, owner)
			if err != nil {
				return nil, fmt.Errorf("block %d: %w", snap.Number, err)
			}
			trieRoots[snap.Number] = root
			storagePlans[snap.Number] = plan
			totalSupplies[snap.Number] = snap.TotalSupply
			continue
		}
		// outside the interval only the leaf hash is needed
		root, err := prover.StorageTrieRoot(entries)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", snap.Number, err)
		}
		trieRoots[snap.Number] = root
	}

	tree, err := prover.BlockRangePlan(prover.BlockRangePlanInput{
		TrieRoots:    trieRoots,
		StoragePlans: storagePlans,
		Query: blockrange.LeafQuery{
			Contract:    contract,
			MappingSlot: q.MappingSlot,
			SlotLength:  q.SlotLength,
			RewardsRate: q.RewardsRate,
			TotalSupply: big.NewInt(0),
		},
		TotalSupplies: totalSupplies,
		Lower:         lower,
		Upper:         upper,
	})
	if err != nil {
		return nil, err
	}

	plan := prover.RevelationPlan(tree, dbHeader(tree), q.MinBlock, q.MaxBlock)
	proof, err := prover.RunPlan(ctx, p.params, plan, p.workers)
	if err != nil {
		return nil, err
	}
	if err := p.params.VerifyRevelation(proof); err != nil {
		return nil, fmt.Errorf("terminal proof does not verify: %w", err)
	}

	var buf bytes.Buffer
	if _, err := proof.Proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serialize proof: %w", err)
	}
	sig := revelation.FromVector(proof.Inputs)
	return &storage.Result{
		QueryID:    id,
		FirstBlock: lower,
		LastBlock:  upper,
		Results:    sig.Result(),
		Proof:      buf.Bytes(),
		Signals:    proof.Inputs,
	}, nil
}

// dbHeader derives the chain-head commitment the stand-in database
// proof exposes. The collaborator proof replaces it with the committed
// header of the last tracked block.
func dbHeader(tree *prover.BlockRangeTree) [2]*big.Int {
	return [2]*big.Int{
		circuits.HashMiMC(tree.Root, new(big.Int).SetUint64(tree.FirstBlock)),
		circuits.HashMiMC(tree.Root, new(big.Int).SetUint64(tree.LastBlock)),
	}
}

// trieEntries converts a snapshot's slots into trie builder entries.
func trieEntries(snap *storage.BlockSnapshot) ([]prover.Entry, error) {
	entries := make([]prover.Entry, len(snap.Entries))
	for i, e := range snap.Entries {
		if len(e.Key) != 32 {
			return nil, fmt.Errorf("block %d entry %d: key is %d bytes, want 32", snap.Number, i, len(e.Key))
		}
		if e.Value == nil {
			return nil, fmt.Errorf("block %d entry %d: missing value", snap.Number, i)
		}
		owner, err := addressLimbs(e.Owner)
		if err != nil {
			return nil, fmt.Errorf("block %d entry %d: %w", snap.Number, i, err)
		}
		copy(entries[i].Key[:], e.Key)
		entries[i].Owner = owner
		entries[i].Value = e.Value
	}
	return entries, nil
}

// addressLimbs packs a 20-byte address into big-endian 32-bit limbs,
// most significant limb first.
func addressLimbs(addr types.HexBytes) ([circuits.AddressLimbs]*big.Int, error) {
	var limbs [circuits.AddressLimbs]*big.Int
	if len(addr) != addressByteLen {
		return limbs, fmt.Errorf("address is %d bytes, want %d", len(addr), addressByteLen)
	}
	for i := range limbs {
		limbs[i] = new(big.Int).SetBytes(addr[i*4 : i*4+4])
	}
	return limbs, nil
}
