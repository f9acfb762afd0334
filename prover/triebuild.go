package prover

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"

	"github.com/chainquery/chainquery/circuits"
	"github.com/chainquery/chainquery/circuits/storagetrie"
)

// Entry is one stored mapping slot: its key, the owning address packed
// into 32-bit limbs and the stored value.
type Entry struct {
	Key   [32]byte
	Owner [storagetrie.OwnerLen]*big.Int
	Value *big.Int
}

// trieNode is one node of the natively built storage trie: its
// reference commitment, and the proving plan covering the queried
// owner's entries below it (nil when the subtree holds none).
type trieNode struct {
	root *big.Int
	plan *PlanNode
}

// StorageTriePlan builds the storage trie over all entries and returns
// the proving plan aggregating those owned by the queried address,
// together with the trie root. Entries of other owners shape the trie
// and appear in the proof as bare slot hashes, but are never proved.
// The returned plan's proof consumes the whole key, so it is directly
// consumable by a block leaf.
func StorageTriePlan(entries []Entry, owner [storagetrie.OwnerLen]*big.Int) (*PlanNode, *big.Int, error) {
	if len(entries) == 0 {
		return nil, nil, fmt.Errorf("empty entry set")
	}
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Key[:], sorted[j].Key[:]) < 0
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Key == sorted[i-1].Key {
			return nil, nil, fmt.Errorf("duplicate entry key %x", sorted[i].Key)
		}
	}
	node, err := buildTrieSubtree(sorted, 0, owner)
	if err != nil {
		return nil, nil, err
	}
	if node.plan == nil {
		return nil, nil, fmt.Errorf("no entries owned by the queried address")
	}
	return node.plan, node.root, nil
}

// StorageTrieRoot computes just the trie root over the entries, for
// blocks whose proof is never materialized.
func StorageTrieRoot(entries []Entry) (*big.Int, error) {
	_, root, err := StorageTriePlan(entries, anyOwner(entries))
	return root, err
}

func anyOwner(entries []Entry) [storagetrie.OwnerLen]*big.Int {
	if len(entries) == 0 {
		return [storagetrie.OwnerLen]*big.Int{}
	}
	return entries[0].Owner
}

// buildTrieSubtree builds the subtree of entries sharing their first
// depth nibbles. Entries must be sorted and key-distinct.
func buildTrieSubtree(entries []Entry, depth int, owner [storagetrie.OwnerLen]*big.Int) (trieNode, error) {
	if len(entries) == 1 {
		return buildTrieLeaf(entries[0], depth, owner)
	}

	// Extend the shared prefix as far as the entries agree, then split
	// them by the nibble where they first diverge.
	first := storagetrie.KeyNibbles(entries[0].Key)
	last := storagetrie.KeyNibbles(entries[len(entries)-1].Key)
	split := depth
	for split < circuits.KeyNibbles && first[split] == last[split] {
		split++
	}

	var slots [circuits.BranchSlots]*big.Int
	var children []*PlanNode
	for start := 0; start < len(entries); {
		nib := storagetrie.KeyNibbles(entries[start].Key)[split]
		end := start + 1
		for end < len(entries) && storagetrie.KeyNibbles(entries[end].Key)[split] == nib {
			end++
		}
		child, err := buildTrieSubtree(entries[start:end], split+1, owner)
		if err != nil {
			return trieNode{}, err
		}
		slots[nib] = child.root
		if child.plan != nil {
			children = append(children, child.plan)
		}
		start = end
	}

	node := trieNode{root: storagetrie.BranchRoot(slots)}
	if len(children) > 0 {
		node.plan = &PlanNode{
			Children: children,
			Build: func(proofs []*Proof) (CircuitInput, error) {
				return BranchInput{Slots: slots, Children: proofs}, nil
			},
		}
	}
	return extendTrieNode(node, first, depth, split), nil
}

// buildTrieLeaf builds a leaf and, when the leaf sits deeper than the
// parent consumed, the extension bridging the remaining nibbles.
func buildTrieLeaf(e Entry, depth int, owner [storagetrie.OwnerLen]*big.Int) (trieNode, error) {
	nibbles := storagetrie.KeyNibbles(e.Key)
	root, err := storagetrie.LeafRoot(nibbles, e.Value)
	if err != nil {
		return trieNode{}, err
	}
	node := trieNode{root: root}
	if sameOwner(e.Owner, owner) {
		node.plan = Leaf(LeafInput{Key: e.Key, Value: e.Value, Owner: e.Owner})
	}
	return extendTrieNode(node, nibbles, depth, circuits.KeyNibbles), nil
}

// extendTrieNode wraps a node whose own consumption starts at position
// split with an extension consuming positions [depth, split).
func extendTrieNode(node trieNode, nibbles [circuits.KeyNibbles]byte, depth, split int) trieNode {
	if split == depth {
		return node
	}
	var aligned [circuits.KeyNibbles]byte
	copy(aligned[depth:split], nibbles[depth:split])
	n := split - depth
	out := trieNode{root: storagetrie.ExtensionRoot(n, aligned, node.root)}
	if node.plan != nil {
		child := node.plan
		out.plan = &PlanNode{
			Children: []*PlanNode{child},
			Build: func(proofs []*Proof) (CircuitInput, error) {
				return ExtensionInput{PrefixLen: n, Child: proofs[0]}, nil
			},
		}
	}
	return out
}

func sameOwner(a, b [storagetrie.OwnerLen]*big.Int) bool {
	for i := range a {
		if a[i] == nil || b[i] == nil || a[i].Cmp(b[i]) != 0 {
			return false
		}
	}
	return true
}
