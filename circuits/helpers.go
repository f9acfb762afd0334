package circuits

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/emulated/sw_bn254"
	stdgroth16 "github.com/consensys/gnark/std/recursion/groth16"
	"github.com/vocdoni/gnark-crypto-primitives/utils"
)

// FrontendError is an in-circuit helper to print an error message with its
// trace and make the circuit fail.
func FrontendError(api frontend.API, msg string, trace error) {
	err := fmt.Errorf("%s", msg)
	if trace != nil {
		err = fmt.Errorf("%w: %v", err, trace)
	}
	api.Println(err.Error())
	api.AssertIsEqual(1, 0)
}

// PublicInputsFromWitness converts the public inputs of a recursively
// verified proof into native variables usable by the outer circuit. The
// inner and outer circuits share the BN254 scalar field, so packing the
// emulated elements back into variables is exact.
func PublicInputsFromWitness(api frontend.API,
	w stdgroth16.Witness[sw_bn254.ScalarField], total int,
) ([]frontend.Variable, error) {
	if len(w.Public) != total {
		return nil, fmt.Errorf("inner witness exposes %d public inputs, expected %d", len(w.Public), total)
	}
	vars := make([]frontend.Variable, total)
	for i := range w.Public {
		v, err := utils.PackScalarToVar(api, w.Public[i])
		if err != nil {
			return nil, fmt.Errorf("pack public input %d: %w", i, err)
		}
		vars[i] = v
	}
	return vars, nil
}

// BigIntArrayToN pads the big.Int array to n elements with zeros.
func BigIntArrayToN(arr []*big.Int, n int) []*big.Int {
	out := make([]*big.Int, n)
	for i := range out {
		if i < len(arr) {
			out[i] = arr[i]
		} else {
			out[i] = big.NewInt(0)
		}
	}
	return out
}

// VariablesFromBigInts lifts native values into frontend assignments.
func VariablesFromBigInts(values []*big.Int) []frontend.Variable {
	vars := make([]frontend.Variable, len(values))
	for i, v := range values {
		vars[i] = v
	}
	return vars
}
