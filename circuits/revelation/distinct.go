package revelation

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/math/bits"

	"github.com/chainquery/chainquery/circuits"
)

// MaxResultEntries is the capacity of the distinct-results vector.
const MaxResultEntries = 16

// AssertSortedDistinct enforces that the first count entries are
// strictly increasing, which gives both uniqueness and a canonical
// order, and that every entry past count is zero so padding cannot
// smuggle values. Entries are range-checked to 64 bits.
func AssertSortedDistinct(api frontend.API, entries []frontend.Variable, count frontend.Variable) {
	api.AssertIsLessOrEqual(count, len(entries))
	active := circuits.MaskLessThan(api, len(entries), count)
	for i := range entries {
		bits.ToBinary(api, entries[i], bits.WithNbDigits(64))
		api.AssertIsEqual(api.Mul(api.Sub(1, active[i]), entries[i]), 0)
	}
	for i := 0; i < len(entries)-1; i++ {
		lt := lessThan64(api, entries[i], entries[i+1])
		api.AssertIsEqual(api.Mul(active[i+1], api.Sub(1, lt)), 0)
	}
}

// DistinctResultsCircuit exposes a fixed-capacity result set with an
// entry count, for queries revealing a set of matching entries rather
// than a single accumulated value.
type DistinctResultsCircuit struct {
	Entries    [MaxResultEntries]frontend.Variable `gnark:",public"`
	NumEntries frontend.Variable                   `gnark:",public"`
}

// Define implements frontend.Circuit.
func (c *DistinctResultsCircuit) Define(api frontend.API) error {
	AssertSortedDistinct(api, c.Entries[:], c.NumEntries)
	return nil
}

// DistinctResultsAssignment pads the given entries with zeroes up to
// capacity. Entries must already be sorted and unique.
func DistinctResultsAssignment(entries []uint64) *DistinctResultsCircuit {
	a := &DistinctResultsCircuit{NumEntries: len(entries)}
	for i := range a.Entries {
		if i < len(entries) {
			a.Entries[i] = entries[i]
		} else {
			a.Entries[i] = 0
		}
	}
	return a
}
