package storage

import (
	"math/big"

	"github.com/chainquery/chainquery/types"
)

// QueryStatus is the lifecycle state of a query in the processing queue.
type QueryStatus int

const (
	// StatusPending means the query is queued and waiting for a worker.
	StatusPending QueryStatus = iota
	// StatusProving means a worker holds a reservation and is composing
	// the proof chain.
	StatusProving
	// StatusDone means the recursive proof is stored under the result
	// prefix.
	StatusDone
	// StatusFailed means proving was aborted; the status record carries
	// the error.
	StatusFailed
)

// String returns the lowercase name used in the API responses.
func (qs QueryStatus) String() string {
	switch qs {
	case StatusPending:
		return "pending"
	case StatusProving:
		return "proving"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Query is a request to prove the reward share of a token holder over a
// range of blocks.
type Query struct {
	Contract    types.HexBytes `json:"contract"`
	Owner       types.HexBytes `json:"owner"`
	MappingSlot uint32         `json:"mappingSlot"`
	SlotLength  uint32         `json:"slotLength"`
	RewardsRate *big.Int       `json:"rewardsRate"`
	MinBlock    uint64         `json:"minBlock"`
	MaxBlock    uint64         `json:"maxBlock"`
}

// StatusRecord tracks the progress of a query after it leaves the pending
// queue.
type StatusRecord struct {
	Status QueryStatus `json:"status"`
	Error  string      `json:"error,omitempty"`
}

// Result is the terminal proof of a query together with its decoded public
// signals. Proof is the gnark-serialized groth16 proof.
type Result struct {
	QueryID    types.HexBytes `json:"queryId"`
	FirstBlock uint64         `json:"firstBlock"`
	LastBlock  uint64         `json:"lastBlock"`
	Results    []*big.Int     `json:"results"`
	Proof      types.HexBytes `json:"proof"`
	Signals    []*big.Int     `json:"signals"`
}

// StorageEntry is one slot of a contract storage snapshot.
type StorageEntry struct {
	Key   types.HexBytes `json:"key"`
	Owner types.HexBytes `json:"owner"`
	Value *big.Int       `json:"value"`
}

// BlockSnapshot is the contract state observed at one block, as ingested by
// the API. Entries must cover every occupied slot of the tracked mapping so
// the rebuilt trie root matches the one committed to the block database.
type BlockSnapshot struct {
	Number      uint64         `json:"number"`
	Contract    types.HexBytes `json:"contract"`
	TotalSupply *big.Int       `json:"totalSupply"`
	Entries     []StorageEntry `json:"entries"`
}
