package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/chainquery/chainquery/processor"
	"github.com/chainquery/chainquery/prover"
	"github.com/chainquery/chainquery/storage"
)

// ProcessorService represents a service that handles background query
// proving.
type ProcessorService struct {
	queryProcessor *processor.QueryProcessor
	mu             sync.Mutex
	cancel         context.CancelFunc
}

// NewProcessor creates a new ProcessorService instance. workers bounds
// the number of concurrent proofs of one proving plan.
func NewProcessor(stg *storage.Storage, params *prover.Params, workers int) *ProcessorService {
	return &ProcessorService{
		queryProcessor: processor.New(stg, params, workers),
	}
}

// Start begins the query processing service. It returns an error if the
// service is already running.
func (ps *ProcessorService) Start(ctx context.Context) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.cancel != nil {
		return fmt.Errorf("query processor service already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	ps.cancel = cancel

	return ps.queryProcessor.Start(ctx)
}

// Stop halts the query processing service.
func (ps *ProcessorService) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.cancel == nil {
		return
	}
	ps.queryProcessor.Stop()
	ps.cancel()
	ps.cancel = nil
}
