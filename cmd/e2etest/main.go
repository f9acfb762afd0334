// Command e2etest runs a full round trip against a running chainquery
// service: it ingests a handful of synthetic block snapshots, submits a
// reward query over them and polls until the recursive proof comes back.
package main

import (
	"flag"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/chainquery/chainquery/api/client"
	"github.com/chainquery/chainquery/log"
	"github.com/chainquery/chainquery/storage"
	"github.com/chainquery/chainquery/types"
	"github.com/chainquery/chainquery/web3"
	"github.com/ethereum/go-ethereum/common"
)

func main() {
	host := flag.String("host", "http://127.0.0.1:8080", "chainquery API base URL")
	blocks := flag.Uint64("blocks", 4, "number of synthetic blocks to ingest")
	firstBlock := flag.Uint64("firstBlock", 100, "number of the first synthetic block")
	mappingSlot := flag.Uint64("mappingSlot", 0, "base slot of the balances mapping")
	timeout := flag.Duration("timeout", 30*time.Minute, "how long to wait for the proof")
	flag.Parse()
	log.Init("debug", "stdout", nil)

	contract := common.HexToAddress("0x00000000000000000000000000000000000c0ffe")
	owner := common.HexToAddress("0x000000000000000000000000000000000000da7a")
	other := common.HexToAddress("0x000000000000000000000000000000000000beef")

	c, err := client.New(*host)
	if err != nil {
		log.Fatalf("could not reach %s: %v", *host, err)
	}

	start := time.Now()
	for i := uint64(0); i < *blocks; i++ {
		number := *firstBlock + i
		if err := c.IngestBlock(syntheticSnapshot(number, contract, *mappingSlot, owner, other)); err != nil {
			log.Fatalf("could not ingest block %d: %v", number, err)
		}
	}
	last, err := c.Coverage()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("ingested %d blocks in %s, coverage up to block %d\n",
		*blocks, time.Since(start), last)

	id, err := c.SubmitQuery(&storage.Query{
		Contract:    types.HexBytes(contract.Bytes()),
		Owner:       types.HexBytes(owner.Bytes()),
		MappingSlot: uint32(*mappingSlot),
		SlotLength:  1,
		RewardsRate: big.NewInt(7),
		MinBlock:    *firstBlock,
		MaxBlock:    *firstBlock + *blocks - 1,
	})
	if err != nil {
		log.Fatalf("could not submit query: %v", err)
	}
	fmt.Printf("query %s submitted, waiting for the proof\n", id)

	start = time.Now()
	deadline := time.Now().Add(*timeout)
	for done := false; !done; {
		if time.Now().After(deadline) {
			log.Fatalf("no proof after %s", *timeout)
		}
		resp, err := c.Query(id)
		if err != nil {
			log.Fatal(err)
		}
		switch resp.Status {
		case storage.StatusDone.String():
			done = true
		case storage.StatusFailed.String():
			log.Fatalf("proving failed: %s", resp.Error)
		default:
			time.Sleep(5 * time.Second)
		}
	}

	res, err := c.QueryProof(id)
	if err != nil {
		log.Fatal(err)
	}
	if res == nil {
		log.Fatal("query done but proof not available")
	}
	fmt.Printf("proof ready in %s, blocks [%d, %d]\n",
		time.Since(start), res.FirstBlock, res.LastBlock)
	for i, r := range res.Results {
		fmt.Printf("result[%d] = %s\n", i, r.String())
	}
	fmt.Printf("proof size: %d bytes\n", len(res.Proof))
	os.Exit(0)
}

// syntheticSnapshot builds a snapshot where the tracked owner's balance
// grows with the block number and a second holder keeps a flat balance,
// so the storage trie has more than one occupied slot.
func syntheticSnapshot(number uint64, contract common.Address, mappingSlot uint64,
	owner, other common.Address,
) *storage.BlockSnapshot {
	ownerBalance := new(big.Int).SetUint64(1000 + number)
	otherBalance := big.NewInt(500)
	return &storage.BlockSnapshot{
		Number:      number,
		Contract:    types.HexBytes(contract.Bytes()),
		TotalSupply: new(big.Int).Add(ownerBalance, otherBalance),
		Entries: []storage.StorageEntry{
			{
				Key:   types.HexBytes(web3.BalanceSlot(owner, mappingSlot).Bytes()),
				Owner: types.HexBytes(owner.Bytes()),
				Value: ownerBalance,
			},
			{
				Key:   types.HexBytes(web3.BalanceSlot(other, mappingSlot).Bytes()),
				Owner: types.HexBytes(other.Bytes()),
				Value: otherBalance,
			},
		},
	}
}
