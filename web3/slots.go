// Package web3 tracks a token contract on an Ethereum chain: it polls
// an RPC endpoint for new blocks, reads the tracked holders' balance
// slots and the total supply, and ingests the observed state as block
// snapshots for the prover to consume.
package web3

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// BalanceSlot returns the storage slot of owner's entry in a Solidity
// mapping(address => uint256) rooted at the given slot, following the
// storage layout rule keccak256(pad32(owner) || pad32(slot)).
func BalanceSlot(owner common.Address, slot uint64) common.Hash {
	var buf [64]byte
	copy(buf[12:32], owner.Bytes())
	binary.BigEndian.PutUint64(buf[56:], slot)
	return common.BytesToHash(ethcrypto.Keccak256(buf[:]))
}

// SupplySlot returns the storage slot of a scalar contract variable.
func SupplySlot(slot uint64) common.Hash {
	var buf [32]byte
	binary.BigEndian.PutUint64(buf[24:], slot)
	return common.BytesToHash(buf[:])
}
