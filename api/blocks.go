package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/chainquery/chainquery/storage"
	"github.com/go-chi/chi/v5"
)

// CoverageResponse describes the block interval the database covers.
type CoverageResponse struct {
	LastBlock uint64 `json:"lastBlock"`
}

// newBlock ingests a contract state snapshot for one block
// POST /blocks
func (a *API) newBlock(w http.ResponseWriter, r *http.Request) {
	snap := &storage.BlockSnapshot{}
	if err := json.NewDecoder(r.Body).Decode(snap); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if len(snap.Entries) == 0 {
		ErrMalformedBlock.With("snapshot has no storage entries").Write(w)
		return
	}
	if snap.TotalSupply == nil {
		ErrMalformedBlock.With("missing total supply").Write(w)
		return
	}
	if err := a.storage.SetBlockSnapshot(snap); err != nil {
		ErrGenericInternalServerError.Withf("could not store snapshot: %v", err).Write(w)
		return
	}
	httpWriteOK(w)
}

// blocks returns the database coverage
// GET /blocks
func (a *API) blocks(w http.ResponseWriter, _ *http.Request) {
	last, err := a.storage.LastBlock()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrBlockNotFound.With("no blocks ingested").Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &CoverageResponse{LastBlock: last})
}

// block returns one ingested snapshot
// GET /blocks/{blockNumber}
func (a *API) block(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.ParseUint(chi.URLParam(r, BlockURLParam), 10, 64)
	if err != nil {
		ErrMalformedBlock.Withf("invalid block number: %v", err).Write(w)
		return
	}
	snap, err := a.storage.BlockSnapshot(number)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrBlockNotFound.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, snap)
}
