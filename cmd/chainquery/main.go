package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainquery/chainquery/config"
	"github.com/chainquery/chainquery/log"
	"github.com/chainquery/chainquery/prover"
	"github.com/chainquery/chainquery/service"
	"github.com/chainquery/chainquery/storage"
	"github.com/chainquery/chainquery/web3"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

func main() {
	cfg := config.ParseFlags()
	log.Init(cfg.LogLevel, "stdout", nil)

	database, err := metadb.New(db.TypePebble, cfg.DataDir)
	if err != nil {
		log.Fatalf("could not open database at %s: %v", cfg.DataDir, err)
	}
	stg := storage.New(database)

	log.Info("compiling circuits, this takes a while on first run")
	params, err := prover.NewParams()
	if err != nil {
		log.Fatalf("could not set up proving parameters: %v", err)
	}
	log.Infow("circuits ready",
		"storageSetRoot", params.StorageSetRoot().String(),
		"blockSetRoot", params.BlockSetRoot().String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	apiSrv := service.NewAPI(stg, cfg.Host, cfg.Port)
	if err := apiSrv.Start(ctx); err != nil {
		log.Fatalf("could not start API service: %v", err)
	}
	defer apiSrv.Stop()
	log.Infow("API service started", "host", cfg.Host, "port", cfg.Port)

	procSrv := service.NewProcessor(stg, params, cfg.Workers)
	if err := procSrv.Start(ctx); err != nil {
		log.Fatalf("could not start query processor: %v", err)
	}
	defer procSrv.Stop()
	log.Infow("query processor started", "workers", cfg.Workers)

	if cfg.FetcherEnabled() {
		contract, err := cfg.ContractAddress()
		if err != nil {
			log.Fatal(err)
		}
		owners, err := cfg.OwnerAddresses()
		if err != nil {
			log.Fatal(err)
		}
		fetcher, err := web3.NewFetcher(web3.FetcherConfig{
			Endpoint:        cfg.Web3Endpoint,
			Contract:        contract,
			MappingSlot:     cfg.MappingSlot,
			TotalSupplySlot: cfg.TotalSupplySlot,
			Owners:          owners,
			StartBlock:      cfg.StartBlock,
			PollInterval:    cfg.PollInterval,
		}, stg)
		if err != nil {
			log.Fatalf("could not start chain fetcher: %v", err)
		}
		if err := fetcher.Start(ctx); err != nil {
			log.Fatalf("could not start chain fetcher: %v", err)
		}
		defer fetcher.Stop()
		log.Infow("chain fetcher started",
			"endpoint", cfg.Web3Endpoint, "contract", cfg.Contract,
			"owners", len(owners), "startBlock", cfg.StartBlock)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Infow("shutting down", "signal", sig.String())
}
