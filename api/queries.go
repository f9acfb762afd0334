package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chainquery/chainquery/storage"
	"github.com/chainquery/chainquery/types"
	"github.com/go-chi/chi/v5"
)

// QueryResponse wraps a stored query with its processing state.
type QueryResponse struct {
	ID     types.HexBytes `json:"id"`
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	Query  *storage.Query `json:"query"`
}

// NewQueryResponse is the response of a query submission.
type NewQueryResponse struct {
	ID types.HexBytes `json:"id"`
}

// newQuery enqueues a new query
// POST /queries
func (a *API) newQuery(w http.ResponseWriter, r *http.Request) {
	query := &storage.Query{}
	if err := json.NewDecoder(r.Body).Decode(query); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if len(query.Contract) == 0 || len(query.Owner) == 0 {
		ErrMalformedQuery.With("missing contract or owner address").Write(w)
		return
	}
	if query.RewardsRate == nil {
		ErrMalformedQuery.With("missing rewards rate").Write(w)
		return
	}
	if query.MinBlock > query.MaxBlock {
		ErrMalformedQuery.Withf("empty block interval [%d, %d]", query.MinBlock, query.MaxBlock).Write(w)
		return
	}
	id, err := a.storage.PushQuery(query)
	if err != nil {
		ErrGenericInternalServerError.Withf("could not push query: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, &NewQueryResponse{ID: id})
}

// query returns the query info and its processing status
// GET /queries/{queryId}
func (a *API) query(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	query, rec, err := a.storage.Query(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrQueryNotFound.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &QueryResponse{
		ID:     id,
		Status: rec.Status.String(),
		Error:  rec.Error,
		Query:  query,
	})
}

// queryProof returns the terminal proof of a finished query
// GET /queries/{queryId}/proof
func (a *API) queryProof(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	res, err := a.storage.Result(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// distinguish unknown queries from unfinished ones
			if _, _, qErr := a.storage.Query(id); errors.Is(qErr, storage.ErrNotFound) {
				ErrQueryNotFound.Write(w)
				return
			}
			ErrProofNotReady.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, res)
}

// queryID decodes the query ID URL parameter, writing the error
// response itself when the parameter is malformed.
func queryID(w http.ResponseWriter, r *http.Request) (types.HexBytes, bool) {
	var id types.HexBytes
	if err := id.SetString(chi.URLParam(r, QueryURLParam)); err != nil {
		ErrMalformedQueryID.WithErr(err).Write(w)
		return nil, false
	}
	return id, true
}
