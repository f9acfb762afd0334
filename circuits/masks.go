package circuits

import "github.com/consensys/gnark/frontend"

// MaskLessThan returns n boolean variables where mask[i] == 1 iff i <
// bound, for a bound known to lie in [0, n]. It is built with a running
// flag that drops to zero at i == bound, which is considerably cheaper
// than a generic comparator at every position.
func MaskLessThan(api frontend.API, n int, bound frontend.Variable) []frontend.Variable {
	mask := make([]frontend.Variable, n)
	run := frontend.Variable(1)
	for i := 0; i < n; i++ {
		hit := api.IsZero(api.Sub(bound, i))
		run = api.Mul(run, api.Sub(1, hit))
		mask[i] = run
	}
	return mask
}

// AssertNibbles range-checks every variable to a 4-bit value.
func AssertNibbles(api frontend.API, nibbles []frontend.Variable) {
	for i := range nibbles {
		api.AssertIsLessOrEqual(nibbles[i], 15)
	}
}
