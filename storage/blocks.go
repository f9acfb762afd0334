package storage

import (
	"encoding/binary"
	"fmt"

	"go.vocdoni.io/dvote/db/prefixeddb"
)

// SetBlockSnapshot stores the contract state observed at a block, keyed by
// block number. Ingesting the same block again overwrites the previous
// snapshot.
func (s *Storage) SetBlockSnapshot(b *BlockSnapshot) error {
	if b == nil {
		return fmt.Errorf("nil block snapshot")
	}
	return s.setArtifact(blockPrefix, blockKey(b.Number), b)
}

// BlockSnapshot retrieves the snapshot of a block. Returns ErrNotFound if
// the block has not been ingested.
func (s *Storage) BlockSnapshot(number uint64) (*BlockSnapshot, error) {
	var b BlockSnapshot
	if err := s.getArtifact(blockPrefix, blockKey(number), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// BlockSnapshots retrieves every ingested snapshot in [from, to], in block
// order. Blocks missing from the range are simply absent from the result.
func (s *Storage) BlockSnapshots(from, to uint64) ([]*BlockSnapshot, error) {
	rd := prefixeddb.NewPrefixedReader(s.db, blockPrefix)
	var out []*BlockSnapshot
	var decodeErr error
	if err := rd.Iterate(nil, func(k, v []byte) bool {
		number := binary.BigEndian.Uint64(k)
		if number < from {
			return true
		}
		if number > to {
			return false
		}
		var b BlockSnapshot
		if decodeErr = decodeArtifact(v, &b); decodeErr != nil {
			return false
		}
		out = append(out, &b)
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode block snapshot: %w", decodeErr)
	}
	return out, nil
}

// LastBlock returns the highest ingested block number. Returns ErrNotFound
// when no blocks have been ingested yet.
func (s *Storage) LastBlock() (uint64, error) {
	rd := prefixeddb.NewPrefixedReader(s.db, blockPrefix)
	var last uint64
	found := false
	if err := rd.Iterate(nil, func(k, _ []byte) bool {
		last = binary.BigEndian.Uint64(k)
		found = true
		return true
	}); err != nil {
		return 0, fmt.Errorf("iterate blocks: %w", err)
	}
	if !found {
		return 0, ErrNotFound
	}
	return last, nil
}

// blockKey is the big-endian block number, so prefixed iteration walks
// blocks in ascending order.
func blockKey(number uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, number)
	return k
}
