package web3

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/chainquery/chainquery/log"
	"github.com/chainquery/chainquery/storage"
	"github.com/chainquery/chainquery/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ethClient is the part of the ethclient surface the fetcher needs.
type ethClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error)
}

// FetcherConfig configures a contract state fetcher.
type FetcherConfig struct {
	// Endpoint is the web3 RPC endpoint to poll.
	Endpoint string
	// Contract is the tracked token contract.
	Contract common.Address
	// MappingSlot is the base slot of the balances mapping.
	MappingSlot uint64
	// TotalSupplySlot is the slot of the total supply variable.
	TotalSupplySlot uint64
	// Owners are the tracked holders.
	Owners []common.Address
	// StartBlock is the first block to ingest.
	StartBlock uint64
	// PollInterval is how often to look for new blocks. Defaults to
	// 12 seconds, one mainnet slot.
	PollInterval time.Duration
}

// Fetcher polls the chain and ingests one snapshot per new block.
type Fetcher struct {
	cfg    FetcherConfig
	client ethClient
	stg    *storage.Storage
	next   uint64
	cancel context.CancelFunc
}

// NewFetcher connects to the configured endpoint and returns a fetcher
// that resumes after the last ingested block.
func NewFetcher(cfg FetcherConfig, stg *storage.Storage) (*Fetcher, error) {
	if len(cfg.Owners) == 0 {
		return nil, fmt.Errorf("no tracked owners")
	}
	client, err := ethclient.Dial(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Endpoint, err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 12 * time.Second
	}
	f := &Fetcher{cfg: cfg, client: client, stg: stg, next: cfg.StartBlock}
	if last, err := stg.LastBlock(); err == nil && last+1 > f.next {
		f.next = last + 1
	}
	return f, nil
}

// Start polls for new blocks in the background until the context is
// cancelled.
func (f *Fetcher) Start(ctx context.Context) error {
	ctx, f.cancel = context.WithCancel(ctx)

	ticker := time.NewTicker(f.cfg.PollInterval)
	go func() {
		defer ticker.Stop()
		log.Infow("block fetcher started", "contract", f.cfg.Contract.Hex(), "nextBlock", f.next)
		for {
			if err := f.sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warnw("block sync failed", "error", err.Error())
			}
			select {
			case <-ctx.Done():
				log.Infow("block fetcher stopped")
				return
			case <-ticker.C:
			}
		}
	}()
	return nil
}

// Stop halts the fetcher.
func (f *Fetcher) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
}

// sync ingests every block between the last ingested one and the chain
// head.
func (f *Fetcher) sync(ctx context.Context) error {
	head, err := f.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("block number: %w", err)
	}
	for n := f.next; n <= head; n++ {
		snap, err := f.snapshotAt(ctx, n)
		if err != nil {
			return fmt.Errorf("block %d: %w", n, err)
		}
		if err := f.stg.SetBlockSnapshot(snap); err != nil {
			return fmt.Errorf("store block %d: %w", n, err)
		}
		log.Debugw("block ingested", "number", n, "entries", len(snap.Entries))
		f.next = n + 1
	}
	return nil
}

// snapshotAt reads the tracked slots of one block.
func (f *Fetcher) snapshotAt(ctx context.Context, number uint64) (*storage.BlockSnapshot, error) {
	blk := new(big.Int).SetUint64(number)

	supplyWord, err := f.client.StorageAt(ctx, f.cfg.Contract, SupplySlot(f.cfg.TotalSupplySlot), blk)
	if err != nil {
		return nil, fmt.Errorf("total supply: %w", err)
	}

	snap := &storage.BlockSnapshot{
		Number:      number,
		Contract:    f.cfg.Contract.Bytes(),
		TotalSupply: new(big.Int).SetBytes(supplyWord),
	}
	for _, owner := range f.cfg.Owners {
		key := BalanceSlot(owner, f.cfg.MappingSlot)
		word, err := f.client.StorageAt(ctx, f.cfg.Contract, key, blk)
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", owner.Hex(), err)
		}
		value := new(big.Int).SetBytes(word)
		if value.Sign() == 0 {
			// empty slots are not part of the storage trie
			continue
		}
		snap.Entries = append(snap.Entries, storage.StorageEntry{
			Key:   types.HexBytes(key.Bytes()),
			Owner: types.HexBytes(owner.Bytes()),
			Value: value,
		})
	}
	return snap, nil
}
