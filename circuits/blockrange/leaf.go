package blockrange

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
	"github.com/consensys/gnark/std/math/bits"

	"github.com/chainquery/chainquery/circuits"
	"github.com/chainquery/chainquery/circuits/circuitset"
	"github.com/chainquery/chainquery/circuits/storagetrie"
	"github.com/chainquery/chainquery/circuits/uint256"
)

// BlockLeafCircuit anchors one storage-trie proof to a block. The
// storage proof must have consumed its whole key, so its root is the
// contract's storage root at that block. The exposed result is the
// reward share RewardsRate·Value / TotalSupply, with the intermediate
// product's overflow flag and the division-by-zero flag both asserted
// false, so a proof simply cannot exist for degenerate inputs.
type BlockLeafCircuit struct {
	BlockNumber frontend.Variable                 `gnark:",public"`
	Range       frontend.Variable                 `gnark:",public"`
	Root        frontend.Variable                 `gnark:",public"`
	Contract    [ContractLen]frontend.Variable    `gnark:",public"`
	Owner       [OwnerLen]frontend.Variable       `gnark:",public"`
	MappingSlot frontend.Variable                 `gnark:",public"`
	SlotLength  frontend.Variable                 `gnark:",public"`
	Result      [ResultLen]frontend.Variable      `gnark:",public"`
	RewardsRate [RewardsRateLen]frontend.Variable `gnark:",public"`

	// SetRoot is the root of the circuit set this leaf belongs to,
	// re-exposed so an outer verifier can bind membership to it.
	SetRoot frontend.Variable `gnark:",public"`

	// TotalSupply is the divisor of the reward computation, witnessed
	// at the leaf and committed through the asserted result.
	TotalSupply [uint256.NumLimbs]frontend.Variable

	Storage circuitset.VerifiedProof

	StorageVerifier circuitset.Verifier

	// StorageSetRoot pins the storage-trie circuit set this leaf
	// accepts proofs from. Baked in at compile time.
	StorageSetRoot *big.Int `gnark:"-"`
}

// Define implements frontend.Circuit.
func (c *BlockLeafCircuit) Define(api frontend.API) error {
	vec, err := c.StorageVerifier.Verify(api, c.StorageSetRoot, c.Storage)
	if err != nil {
		return err
	}
	st := storagetrie.FromVector(vec)

	// The storage proof must cover the full key down from the trie
	// root.
	api.AssertIsEqual(st.Pointer(), circuits.KeyNibbles)
	api.AssertIsEqual(c.Range, 1)
	bits.ToBinary(api, c.BlockNumber, bits.WithNbDigits(64))
	api.AssertIsLessOrEqual(c.MappingSlot, uint64(1)<<32-1)
	api.AssertIsLessOrEqual(c.SlotLength, uint64(1)<<32-1)
	for i := range c.Contract {
		api.AssertIsLessOrEqual(c.Contract[i], uint64(1)<<32-1)
	}
	for i := range c.Owner {
		api.AssertIsEqual(c.Owner[i], st.Owner()[i])
	}

	var valueLimbs [uint256.NumLimbs]frontend.Variable
	copy(valueLimbs[:], st.Value())
	value := uint256.New(api, valueLimbs)
	rate := uint256.New(api, c.RewardsRate)
	supply := uint256.New(api, c.TotalSupply)

	product, overflow := uint256.Mul(api, rate, value)
	api.AssertIsEqual(overflow, 0)
	share, _, divByZero := uint256.Div(api, product, supply)
	api.AssertIsEqual(divByZero, 0)
	for i := range c.Result {
		api.AssertIsEqual(c.Result[i], share.Limbs[i])
	}

	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(circuits.BlockLeafHashPrefix)
	h.Write(c.BlockNumber)
	h.Write(st.Root())
	api.AssertIsEqual(c.Root, h.Sum())
	return nil
}

// PlaceholderBlockLeaf returns a compilation placeholder for the block
// leaf. memberCCS is the constraint system of any storage-trie set
// member; storageRoot is the root of the storage circuit set the leaf
// will accept proofs from.
func PlaceholderBlockLeaf(memberCCS constraint.ConstraintSystem, storageRoot *big.Int) *BlockLeafCircuit {
	return &BlockLeafCircuit{
		Storage:         circuitset.PlaceholderVerifiedProof(memberCCS),
		StorageVerifier: circuitset.NewVerifier(storagetrie.NumPublicInputs),
		StorageSetRoot:  storageRoot,
	}
}

// LeafRoot computes the native block-leaf commitment binding a block
// number to a storage-trie root.
func LeafRoot(blockNumber uint64, trieRoot *big.Int) *big.Int {
	return circuits.HashMiMC(circuits.BlockLeafHashPrefix,
		new(big.Int).SetUint64(blockNumber), trieRoot)
}

// LeafQuery carries the query identity a block leaf exposes.
type LeafQuery struct {
	Contract    [ContractLen]*big.Int
	MappingSlot uint32
	SlotLength  uint32
	RewardsRate *big.Int
	TotalSupply *big.Int
}

// BlockLeafAssignment builds a block-leaf witness over a verified
// storage proof. The reward share is recomputed natively so the
// assignment fails early, and with a usable error, on inputs the
// circuit would reject.
func BlockLeafAssignment(blockNumber uint64, st storagetrie.PublicInputs[*big.Int],
	q LeafQuery, setRoot *big.Int, proof circuitset.VerifiedProof) (*BlockLeafCircuit, error) {
	if ptr := st.Pointer().Int64(); ptr != circuits.KeyNibbles {
		return nil, fmt.Errorf("storage proof pointer %d, want fully consumed key", ptr)
	}
	if q.TotalSupply.Sign() == 0 {
		return nil, fmt.Errorf("zero total supply")
	}
	value := new(big.Int)
	for i := len(st.Value()) - 1; i >= 0; i-- {
		value.Lsh(value, 32)
		value.Add(value, st.Value()[i])
	}
	product := new(big.Int).Mul(q.RewardsRate, value)
	if product.BitLen() > 256 {
		return nil, fmt.Errorf("reward product overflows 256 bits")
	}
	share := new(big.Int).Div(product, q.TotalSupply)

	shareLimbs, err := uint256.LimbsFromBig(share)
	if err != nil {
		return nil, err
	}
	rateLimbs, err := uint256.LimbsFromBig(q.RewardsRate)
	if err != nil {
		return nil, err
	}
	supplyLimbs, err := uint256.LimbsFromBig(q.TotalSupply)
	if err != nil {
		return nil, err
	}

	a := &BlockLeafCircuit{
		BlockNumber: blockNumber,
		Range:       1,
		Root:        LeafRoot(blockNumber, st.Root()),
		MappingSlot: q.MappingSlot,
		SlotLength:  q.SlotLength,
		SetRoot:     setRoot,
		Storage:     proof,
	}
	for i := range a.Contract {
		a.Contract[i] = q.Contract[i]
	}
	for i := range a.Owner {
		a.Owner[i] = st.Owner()[i]
	}
	for i := 0; i < uint256.NumLimbs; i++ {
		a.Result[i] = shareLimbs[i]
		a.RewardsRate[i] = rateLimbs[i]
		a.TotalSupply[i] = supplyLimbs[i]
	}
	return a, nil
}
