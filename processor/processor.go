// Package processor runs the query worker: it pulls pending queries
// from storage, composes the recursive proof chain over the ingested
// block snapshots, and stores the terminal proof back as the query
// result.
package processor

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/chainquery/chainquery/log"
	"github.com/chainquery/chainquery/prover"
	"github.com/chainquery/chainquery/storage"
)

// QueryProcessor is a worker that takes pending queries and composes
// their proof chains. It processes one query at a time; parallelism
// lives inside the proving plan.
type QueryProcessor struct {
	stg     *storage.Storage
	params  *prover.Params
	workers int
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a new QueryProcessor over the given storage and proving
// parameters. workers bounds the number of concurrent proofs of one
// plan.
func New(stg *storage.Storage, params *prover.Params, workers int) *QueryProcessor {
	if workers < 1 {
		workers = 1
	}
	return &QueryProcessor{stg: stg, params: params, workers: workers}
}

// Start begins processing queries in the background until the context
// is cancelled.
func (p *QueryProcessor) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	const tickInterval = time.Second
	ticker := time.NewTicker(tickInterval)

	go func() {
		defer ticker.Stop()
		log.Infow("query processor started")

		for {
			select {
			case <-p.ctx.Done():
				log.Infow("query processor stopped")
				return
			default:
			}

			query, key, err := p.stg.NextQuery()
			if err != nil {
				if err != storage.ErrNoMoreElements {
					log.Errorw(err, "failed to get next query")
				} else {
					select {
					case <-ticker.C:
					case <-p.ctx.Done():
						log.Infow("query processor stopped")
						return
					}
				}
				continue
			}

			log.Debugw("processing query",
				"id", hex.EncodeToString(key),
				"minBlock", query.MinBlock,
				"maxBlock", query.MaxBlock,
			)
			startTime := time.Now()

			result, err := p.processQuery(p.ctx, key, query)
			if err != nil {
				if p.ctx.Err() != nil {
					// shutting down; put the query back for the next run
					if relErr := p.stg.ReleaseQuery(key); relErr != nil {
						log.Warnw("failed to release query", "id", hex.EncodeToString(key), "error", relErr.Error())
					}
					continue
				}
				log.Warnw("query failed",
					"id", hex.EncodeToString(key),
					"error", err.Error(),
				)
				if markErr := p.stg.MarkQueryFailed(key, err); markErr != nil {
					log.Warnw("failed to mark query as failed", "id", hex.EncodeToString(key), "error", markErr.Error())
				}
				continue
			}

			if err := p.stg.MarkQueryDone(key, result); err != nil {
				log.Warnw("failed to mark query as done",
					"id", hex.EncodeToString(key),
					"error", err.Error(),
				)
				continue
			}

			log.Infow("query proved",
				"id", hex.EncodeToString(key),
				"firstBlock", result.FirstBlock,
				"lastBlock", result.LastBlock,
				"duration", time.Since(startTime).String(),
			)
		}
	}()
	return nil
}

// Stop halts the processor. It's safe to call Stop multiple times.
func (p *QueryProcessor) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
}
