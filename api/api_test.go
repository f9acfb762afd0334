package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chainquery/chainquery/storage"
	"github.com/chainquery/chainquery/types"
	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"
)

func testServer(t *testing.T) (*httptest.Server, *storage.Storage) {
	stg := storage.New(metadb.NewTest(t))
	a := &API{storage: stg}
	a.initRouter()
	srv := httptest.NewServer(a.router)
	t.Cleanup(srv.Close)
	return srv, stg
}

func doJSON(c *qt.C, method, url string, body, out any) int {
	var reqBody bytes.Buffer
	if body != nil {
		c.Assert(json.NewEncoder(&reqBody).Encode(body), qt.IsNil)
	}
	req, err := http.NewRequest(method, url, &reqBody)
	c.Assert(err, qt.IsNil)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	c.Assert(err, qt.IsNil)
	defer func() { c.Assert(resp.Body.Close(), qt.IsNil) }()
	if out != nil && resp.StatusCode == http.StatusOK {
		c.Assert(json.NewDecoder(resp.Body).Decode(out), qt.IsNil)
	}
	return resp.StatusCode
}

func testAddress(last byte) types.HexBytes {
	addr := make(types.HexBytes, 20)
	addr[19] = last
	return addr
}

func TestQueryLifecycle(t *testing.T) {
	c := qt.New(t)
	srv, stg := testServer(t)

	query := &storage.Query{
		Contract:    testAddress(0xcc),
		Owner:       testAddress(0x01),
		MappingSlot: 3,
		SlotLength:  1,
		RewardsRate: big.NewInt(50),
		MinBlock:    10,
		MaxBlock:    20,
	}

	var created NewQueryResponse
	status := doJSON(c, http.MethodPost, srv.URL+QueriesEndpoint, query, &created)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(created.ID, qt.Not(qt.HasLen), 0)

	var got QueryResponse
	status = doJSON(c, http.MethodGet, srv.URL+QueriesEndpoint+"/"+created.ID.String(), nil, &got)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(got.Status, qt.Equals, "pending")
	c.Assert(got.Query.MaxBlock, qt.Equals, uint64(20))

	// proof is not there yet
	status = doJSON(c, http.MethodGet, srv.URL+QueriesEndpoint+"/"+created.ID.String()+"/proof", nil, nil)
	c.Assert(status, qt.Equals, http.StatusNotFound)

	// resolve the query through the queue, as the processor would
	_, key, err := stg.NextQuery()
	c.Assert(err, qt.IsNil)
	c.Assert(stg.MarkQueryDone(key, &storage.Result{
		QueryID:    created.ID,
		FirstBlock: 10,
		LastBlock:  20,
		Results:    []*big.Int{big.NewInt(100)},
		Proof:      types.HexBytes{0xaa},
		Signals:    []*big.Int{big.NewInt(1)},
	}), qt.IsNil)

	status = doJSON(c, http.MethodGet, srv.URL+QueriesEndpoint+"/"+created.ID.String(), nil, &got)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(got.Status, qt.Equals, "done")

	var res storage.Result
	status = doJSON(c, http.MethodGet, srv.URL+QueriesEndpoint+"/"+created.ID.String()+"/proof", nil, &res)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(res.Results[0].Int64(), qt.Equals, int64(100))
	c.Assert(res.Proof, qt.DeepEquals, types.HexBytes{0xaa})
}

func TestQueryValidation(t *testing.T) {
	c := qt.New(t)
	srv, _ := testServer(t)

	// missing addresses
	status := doJSON(c, http.MethodPost, srv.URL+QueriesEndpoint, &storage.Query{RewardsRate: big.NewInt(1)}, nil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)

	// missing rewards rate
	status = doJSON(c, http.MethodPost, srv.URL+QueriesEndpoint, &storage.Query{
		Contract: testAddress(0xcc),
		Owner:    testAddress(0x01),
	}, nil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)

	// inverted interval
	status = doJSON(c, http.MethodPost, srv.URL+QueriesEndpoint, &storage.Query{
		Contract:    testAddress(0xcc),
		Owner:       testAddress(0x01),
		RewardsRate: big.NewInt(1),
		MinBlock:    20,
		MaxBlock:    10,
	}, nil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)

	// unknown query
	status = doJSON(c, http.MethodGet, srv.URL+QueriesEndpoint+"/0xdeadbeef", nil, nil)
	c.Assert(status, qt.Equals, http.StatusNotFound)

	// malformed query ID
	status = doJSON(c, http.MethodGet, srv.URL+QueriesEndpoint+"/zz", nil, nil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)
}

func TestBlockIngestion(t *testing.T) {
	c := qt.New(t)
	srv, _ := testServer(t)

	// empty database
	status := doJSON(c, http.MethodGet, srv.URL+BlocksEndpoint, nil, nil)
	c.Assert(status, qt.Equals, http.StatusNotFound)

	key := make(types.HexBytes, 32)
	key[31] = 0x0c
	snap := &storage.BlockSnapshot{
		Number:      42,
		Contract:    testAddress(0xcc),
		TotalSupply: big.NewInt(1000),
		Entries: []storage.StorageEntry{{
			Key:   key,
			Owner: testAddress(0x01),
			Value: big.NewInt(7),
		}},
	}
	status = doJSON(c, http.MethodPost, srv.URL+BlocksEndpoint, snap, nil)
	c.Assert(status, qt.Equals, http.StatusOK)

	var cov CoverageResponse
	status = doJSON(c, http.MethodGet, srv.URL+BlocksEndpoint, nil, &cov)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(cov.LastBlock, qt.Equals, uint64(42))

	var got storage.BlockSnapshot
	status = doJSON(c, http.MethodGet, fmt.Sprintf("%s%s/%d", srv.URL, BlocksEndpoint, 42), nil, &got)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(got.TotalSupply.Cmp(big.NewInt(1000)), qt.Equals, 0)
	c.Assert(got.Entries, qt.HasLen, 1)

	status = doJSON(c, http.MethodGet, fmt.Sprintf("%s%s/%d", srv.URL, BlocksEndpoint, 43), nil, nil)
	c.Assert(status, qt.Equals, http.StatusNotFound)

	// snapshots without entries are rejected
	status = doJSON(c, http.MethodPost, srv.URL+BlocksEndpoint, &storage.BlockSnapshot{Number: 1}, nil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)
}
