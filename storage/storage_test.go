package storage

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/chainquery/chainquery/types"
	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"
)

func testQuery(minBlock, maxBlock uint64) *Query {
	return &Query{
		Contract:    types.HexBytes{0xde, 0xad, 0xbe, 0xef},
		Owner:       types.HexBytes{0x01, 0x02, 0x03},
		MappingSlot: 3,
		SlotLength:  1,
		RewardsRate: big.NewInt(50),
		MinBlock:    minBlock,
		MaxBlock:    maxBlock,
	}
}

func TestQueryQueue(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	_, _, err := stg.NextQuery()
	c.Assert(err, qt.ErrorIs, ErrNoMoreElements)

	id, err := stg.PushQuery(testQuery(10, 20))
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.HasLen, 12)

	q, rec, err := stg.Query(id)
	c.Assert(err, qt.IsNil)
	c.Assert(rec.Status, qt.Equals, StatusPending)
	c.Assert(q.MinBlock, qt.Equals, uint64(10))
	c.Assert(q.RewardsRate.Int64(), qt.Equals, int64(50))

	q, key, err := stg.NextQuery()
	c.Assert(err, qt.IsNil)
	c.Assert(key, qt.DeepEquals, id)
	c.Assert(q.MaxBlock, qt.Equals, uint64(20))

	_, rec, err = stg.Query(id)
	c.Assert(err, qt.IsNil)
	c.Assert(rec.Status, qt.Equals, StatusProving)

	// reserved, so a second worker sees an empty queue
	_, _, err = stg.NextQuery()
	c.Assert(err, qt.ErrorIs, ErrNoMoreElements)

	res := &Result{
		QueryID:    id,
		FirstBlock: 10,
		LastBlock:  20,
		Results:    []*big.Int{big.NewInt(100)},
		Proof:      types.HexBytes{0xaa, 0xbb},
		Signals:    []*big.Int{big.NewInt(1), big.NewInt(2)},
	}
	c.Assert(stg.MarkQueryDone(key, res), qt.IsNil)

	q, rec, err = stg.Query(id)
	c.Assert(err, qt.IsNil)
	c.Assert(rec.Status, qt.Equals, StatusDone)
	c.Assert(q.MinBlock, qt.Equals, uint64(10))

	got, err := stg.Result(id)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Results[0].Int64(), qt.Equals, int64(100))
	c.Assert(got.Signals, qt.HasLen, 2)

	// resolved queries do not come back
	_, _, err = stg.NextQuery()
	c.Assert(err, qt.ErrorIs, ErrNoMoreElements)
}

func TestQueryFailureAndRelease(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	id, err := stg.PushQuery(testQuery(1, 2))
	c.Assert(err, qt.IsNil)

	_, key, err := stg.NextQuery()
	c.Assert(err, qt.IsNil)

	// released queries return to the pending queue
	c.Assert(stg.ReleaseQuery(key), qt.IsNil)
	_, rec, err := stg.Query(id)
	c.Assert(err, qt.IsNil)
	c.Assert(rec.Status, qt.Equals, StatusPending)

	_, key, err = stg.NextQuery()
	c.Assert(err, qt.IsNil)
	c.Assert(stg.MarkQueryFailed(key, fmt.Errorf("block 2 not in the database")), qt.IsNil)

	_, rec, err = stg.Query(id)
	c.Assert(err, qt.IsNil)
	c.Assert(rec.Status, qt.Equals, StatusFailed)
	c.Assert(rec.Error, qt.Contains, "not in the database")

	_, err = stg.Result(id)
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	_, _, err = stg.NextQuery()
	c.Assert(err, qt.ErrorIs, ErrNoMoreElements)
}

func TestQueryNotFound(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	_, _, err := stg.Query([]byte("missing"))
	c.Assert(err, qt.ErrorIs, ErrNotFound)
}

func TestBlockSnapshots(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	_, err := stg.LastBlock()
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	for _, n := range []uint64{7, 5, 6} {
		snap := &BlockSnapshot{
			Number:      n,
			Contract:    types.HexBytes{0xde, 0xad},
			TotalSupply: big.NewInt(int64(n) * 1000),
			Entries: []StorageEntry{{
				Key:   make(types.HexBytes, 32),
				Owner: types.HexBytes{0x01},
				Value: big.NewInt(int64(n)),
			}},
		}
		c.Assert(stg.SetBlockSnapshot(snap), qt.IsNil)
	}

	last, err := stg.LastBlock()
	c.Assert(err, qt.IsNil)
	c.Assert(last, qt.Equals, uint64(7))

	snap, err := stg.BlockSnapshot(6)
	c.Assert(err, qt.IsNil)
	c.Assert(snap.TotalSupply.Int64(), qt.Equals, int64(6000))
	c.Assert(snap.Entries, qt.HasLen, 1)

	_, err = stg.BlockSnapshot(9)
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	snaps, err := stg.BlockSnapshots(6, 10)
	c.Assert(err, qt.IsNil)
	c.Assert(snaps, qt.HasLen, 2)
	c.Assert(snaps[0].Number, qt.Equals, uint64(6))
	c.Assert(snaps[1].Number, qt.Equals, uint64(7))
}
