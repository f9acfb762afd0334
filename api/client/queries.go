package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/chainquery/chainquery/api"
	"github.com/chainquery/chainquery/storage"
	"github.com/chainquery/chainquery/types"
)

// SubmitQuery enqueues a query and returns its identifier.
func (c *HTTPclient) SubmitQuery(query *storage.Query) (types.HexBytes, error) {
	data, status, err := c.Request(HTTPPOST, query, nil, api.QueriesEndpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	resp := &api.NewQueryResponse{}
	if err := json.Unmarshal(data, resp); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}
	return resp.ID, nil
}

// Query fetches a query and its processing status.
func (c *HTTPclient) Query(id types.HexBytes) (*api.QueryResponse, error) {
	data, status, err := c.Request(HTTPGET, nil, nil, api.QueriesEndpoint, id.String())
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	resp := &api.QueryResponse{}
	if err := json.Unmarshal(data, resp); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}
	return resp, nil
}

// QueryProof fetches the terminal proof of a finished query. It returns
// (nil, nil) while the proof is not ready yet.
func (c *HTTPclient) QueryProof(id types.HexBytes) (*storage.Result, error) {
	data, status, err := c.Request(HTTPGET, nil, nil, api.QueriesEndpoint, id.String(), "proof")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	res := &storage.Result{}
	if err := json.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}
	return res, nil
}

// IngestBlock submits a block snapshot to the database.
func (c *HTTPclient) IngestBlock(snap *storage.BlockSnapshot) error {
	data, status, err := c.Request(HTTPPOST, snap, nil, api.BlocksEndpoint)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	return nil
}

// Coverage returns the highest ingested block number.
func (c *HTTPclient) Coverage() (uint64, error) {
	data, status, err := c.Request(HTTPGET, nil, nil, api.BlocksEndpoint)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	resp := &api.CoverageResponse{}
	if err := json.Unmarshal(data, resp); err != nil {
		return 0, fmt.Errorf("could not decode response: %w", err)
	}
	return resp.LastBlock, nil
}

// Block fetches one ingested block snapshot.
func (c *HTTPclient) Block(number uint64) (*storage.BlockSnapshot, error) {
	data, status, err := c.Request(HTTPGET, nil, nil,
		api.BlocksEndpoint, strconv.FormatUint(number, 10))
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	snap := &storage.BlockSnapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}
	return snap, nil
}
