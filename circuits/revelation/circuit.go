package revelation

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/math/bits"

	"github.com/chainquery/chainquery/circuits"
	"github.com/chainquery/chainquery/circuits/blockrange"
	"github.com/chainquery/chainquery/circuits/circuitset"
)

// Circuit is the terminal binding of the proof chain. It verifies an
// aggregated block-range proof against the block circuit set and the
// collaborator's database proof against its pinned key, ties the two
// to the same tree root, and enforces that the range proof covers
// exactly the requested block interval clamped to what the database
// knows: [max(FirstBlock, MinBlock), min(LastBlock, MaxBlock)].
type Circuit struct {
	BlockNumber frontend.Variable                 `gnark:",public"`
	Range       frontend.Variable                 `gnark:",public"`
	MinBlock    frontend.Variable                 `gnark:",public"`
	MaxBlock    frontend.Variable                 `gnark:",public"`
	Contract    [ContractLen]frontend.Variable    `gnark:",public"`
	Owner       [OwnerLen]frontend.Variable       `gnark:",public"`
	MappingSlot frontend.Variable                 `gnark:",public"`
	SlotLength  frontend.Variable                 `gnark:",public"`
	Header      [HeaderLen]frontend.Variable      `gnark:",public"`
	Result      [ResultLen]frontend.Variable      `gnark:",public"`
	RewardsRate [RewardsRateLen]frontend.Variable `gnark:",public"`

	RangeProof circuitset.VerifiedProof
	DBProof    circuits.InnerProof

	RangeVerifier circuitset.Verifier
	DBVerifier    circuitset.FixedVerifier

	// BlockSetRoot pins the block-range circuit set the range proof
	// must be a member of. Baked in at compile time, so a revelation
	// key is only valid for one generation of the aggregation
	// circuits.
	BlockSetRoot *big.Int `gnark:"-"`
}

// lessThan64 returns 1 iff a < b, for values already range-checked to
// 64 bits.
func lessThan64(api frontend.API, a, b frontend.Variable) frontend.Variable {
	shifted := api.Add(api.Sub(a, b), new(big.Int).Lsh(big.NewInt(1), 64))
	bs := bits.ToBinary(api, shifted, bits.WithNbDigits(65))
	return api.Sub(1, bs[64])
}

// Define implements frontend.Circuit.
func (c *Circuit) Define(api frontend.API) error {
	rangeVec, err := c.RangeVerifier.Verify(api, c.BlockSetRoot, c.RangeProof)
	if err != nil {
		return err
	}
	dbVec, err := c.DBVerifier.Verify(api, c.DBProof)
	if err != nil {
		return err
	}
	rng := blockrange.FromVector(rangeVec)
	db := DBFromVector(dbVec)

	// Both proofs must speak about the same block tree, and the
	// database must have grown from an empty tree.
	api.AssertIsEqual(rng.Root(), db.LastRoot())
	api.AssertIsEqual(db.InitRoot(), EmptyRoot(BlockTreeDepth))

	bits.ToBinary(api, c.MinBlock, bits.WithNbDigits(64))
	bits.ToBinary(api, c.MaxBlock, bits.WithNbDigits(64))
	bits.ToBinary(api, db.FirstBlock(), bits.WithNbDigits(64))
	bits.ToBinary(api, db.LastBlock(), bits.WithNbDigits(64))
	bits.ToBinary(api, rng.Range(), bits.WithNbDigits(64))

	// Clamp the requested interval to the database's coverage. The
	// range proof must end at the clamped upper bound and start at the
	// clamped lower bound.
	lower := api.Select(lessThan64(api, db.FirstBlock(), c.MinBlock), c.MinBlock, db.FirstBlock())
	upper := api.Select(lessThan64(api, c.MaxBlock, db.LastBlock()), c.MaxBlock, db.LastBlock())
	api.AssertIsEqual(rng.BlockNumber(), upper)
	firstCovered := api.Add(api.Sub(rng.BlockNumber(), rng.Range()), 1)
	api.AssertIsEqual(firstCovered, lower)
	// A degenerate clamp (empty interval) cannot be proved.
	api.AssertIsLessOrEqual(lower, upper)

	api.AssertIsEqual(c.BlockNumber, rng.BlockNumber())
	api.AssertIsEqual(c.Range, rng.Range())
	for i := range c.Contract {
		api.AssertIsEqual(c.Contract[i], rng.Contract()[i])
	}
	for i := range c.Owner {
		api.AssertIsEqual(c.Owner[i], rng.Owner()[i])
	}
	api.AssertIsEqual(c.MappingSlot, rng.MappingSlot())
	api.AssertIsEqual(c.SlotLength, rng.SlotLength())
	for i := range c.Header {
		api.AssertIsEqual(c.Header[i], db.Header()[i])
	}
	for i := range c.Result {
		api.AssertIsEqual(c.Result[i], rng.Result()[i])
	}
	for i := range c.RewardsRate {
		api.AssertIsEqual(c.RewardsRate[i], rng.RewardsRate()[i])
	}
	return nil
}

// Placeholder returns a compilation placeholder for the revelation
// circuit. blockMemberCCS is the constraint system of any block-range
// set member, dbCCS the database circuit's, dbKey its verifying key,
// and blockRoot the root of the block-range circuit set.
func Placeholder(blockMemberCCS, dbCCS constraint.ConstraintSystem,
	dbKey groth16.VerifyingKey, blockRoot *big.Int) (*Circuit, error) {
	dbVerifier, err := circuitset.NewFixedVerifier(dbKey, DBNumPublicInputs)
	if err != nil {
		return nil, err
	}
	return &Circuit{
		RangeProof:    circuitset.PlaceholderVerifiedProof(blockMemberCCS),
		DBProof:       circuits.PlaceholderInnerProof(dbCCS),
		RangeVerifier: circuitset.NewVerifier(blockrange.NumPublicInputs),
		DBVerifier:    dbVerifier,
		BlockSetRoot:  blockRoot,
	}, nil
}

// ClampBounds computes the enforced interval [max(b0, qmin), min(b1,
// qmax)] natively, mirroring the in-circuit clamp.
func ClampBounds(b0, b1, qmin, qmax uint64) (lower, upper uint64) {
	lower = b0
	if qmin > b0 {
		lower = qmin
	}
	upper = b1
	if qmax < b1 {
		upper = qmax
	}
	return lower, upper
}

// Assignment builds the revelation witness over a verified range proof
// and the database proof's public inputs. It re-runs the clamp
// natively and rejects requests whose effective interval is empty or
// does not match what the range proof covers.
func Assignment(rng blockrange.PublicInputs[*big.Int], db DBPublicInputs[*big.Int],
	qmin, qmax uint64, rangeProof circuitset.VerifiedProof, dbProof circuits.InnerProof) (*Circuit, error) {
	if rng.Root().Cmp(db.LastRoot()) != 0 {
		return nil, fmt.Errorf("range proof root does not match database root")
	}
	if db.InitRoot().Cmp(EmptyRoot(BlockTreeDepth)) != 0 {
		return nil, fmt.Errorf("database initial root is not the empty tree")
	}
	lower, upper := ClampBounds(db.FirstBlock().Uint64(), db.LastBlock().Uint64(), qmin, qmax)
	if lower > upper {
		return nil, fmt.Errorf("empty block interval after clamping: [%d, %d]", lower, upper)
	}
	if rng.BlockNumber().Uint64() != upper {
		return nil, fmt.Errorf("range proof ends at block %d, clamp requires %d", rng.BlockNumber(), upper)
	}
	if got := rng.BlockNumber().Uint64() - rng.Range().Uint64() + 1; got != lower {
		return nil, fmt.Errorf("range proof starts at block %d, clamp requires %d", got, lower)
	}

	a := &Circuit{
		BlockNumber: rng.BlockNumber(),
		Range:       rng.Range(),
		MinBlock:    qmin,
		MaxBlock:    qmax,
		MappingSlot: rng.MappingSlot(),
		SlotLength:  rng.SlotLength(),
		RangeProof:  rangeProof,
		DBProof:     dbProof,
	}
	for i := range a.Contract {
		a.Contract[i] = rng.Contract()[i]
	}
	for i := range a.Owner {
		a.Owner[i] = rng.Owner()[i]
	}
	for i := range a.Header {
		a.Header[i] = db.Header()[i]
	}
	for i := range a.Result {
		a.Result[i] = rng.Result()[i]
		a.RewardsRate[i] = rng.RewardsRate()[i]
	}
	return a, nil
}
