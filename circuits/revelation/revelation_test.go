package revelation

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/test"
	qt "github.com/frankban/quicktest"

	"github.com/chainquery/chainquery/circuits"
)

func TestClampBounds(t *testing.T) {
	c := qt.New(t)
	// Query fully inside the database coverage.
	lo, hi := ClampBounds(10, 100, 20, 30)
	c.Assert(lo, qt.Equals, uint64(20))
	c.Assert(hi, qt.Equals, uint64(30))
	// Query spilling over both ends clamps to the database.
	lo, hi = ClampBounds(10, 100, 5, 200)
	c.Assert(lo, qt.Equals, uint64(10))
	c.Assert(hi, qt.Equals, uint64(100))
	// Query entirely outside coverage yields an empty interval.
	lo, hi = ClampBounds(10, 100, 150, 200)
	c.Assert(lo > hi, qt.IsTrue)
}

func TestEmptyRootChain(t *testing.T) {
	c := qt.New(t)
	e1 := EmptyRoot(1)
	c.Assert(e1.Cmp(circuits.HashMiMC(big.NewInt(0), big.NewInt(0))), qt.Equals, 0)
	e2 := EmptyRoot(2)
	c.Assert(e2.Cmp(circuits.HashMiMC(e1, e1)), qt.Equals, 0)
	c.Assert(e1.Cmp(e2), qt.Not(qt.Equals), 0)
}

func TestStandInDBCircuit(t *testing.T) {
	c := qt.New(t)
	header := [2]*big.Int{big.NewInt(0xaaaa), big.NewInt(0xbbbb)}
	assignment := StandInDBAssignment(10, 100, big.NewInt(777), header)
	c.Assert(test.IsSolved(StandInDBPlaceholder(100), assignment, ecc.BN254.ScalarField()), qt.IsNil)

	// An inverted interval must not solve.
	bad := StandInDBAssignment(100, 10, big.NewInt(777), header)
	c.Assert(test.IsSolved(StandInDBPlaceholder(100), bad, ecc.BN254.ScalarField()), qt.IsNotNil)
}

func TestDistinctResults(t *testing.T) {
	c := qt.New(t)
	field := ecc.BN254.ScalarField()

	ok := DistinctResultsAssignment([]uint64{3, 7, 9, 100})
	c.Assert(test.IsSolved(&DistinctResultsCircuit{}, ok, field), qt.IsNil)

	// Duplicates are rejected.
	dup := DistinctResultsAssignment([]uint64{3, 7, 7, 100})
	c.Assert(test.IsSolved(&DistinctResultsCircuit{}, dup, field), qt.IsNotNil)

	// Out-of-order entries are rejected.
	unordered := DistinctResultsAssignment([]uint64{7, 3})
	c.Assert(test.IsSolved(&DistinctResultsCircuit{}, unordered, field), qt.IsNotNil)

	// Nonzero padding past the declared count is rejected.
	padded := DistinctResultsAssignment([]uint64{3, 7})
	padded.Entries[5] = 99
	c.Assert(test.IsSolved(&DistinctResultsCircuit{}, padded, field), qt.IsNotNil)

	// Empty set solves trivially.
	empty := DistinctResultsAssignment(nil)
	c.Assert(test.IsSolved(&DistinctResultsCircuit{}, empty, field), qt.IsNil)
}
