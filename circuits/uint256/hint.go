package uint256

import (
	"errors"
	"math/big"

	"github.com/consensys/gnark/constraint/solver"
)

func init() {
	solver.RegisterHint(divHint)
}

// divHint computes the quotient and remainder of a 256-bit division outside
// the circuit. Inputs are the 8 dividend limbs followed by the 8 divisor
// limbs (little-endian); outputs are the quotient and remainder limbs in
// the same form. For a zero divisor the quotient is zero and the remainder
// is the dividend, matching the in-circuit reconstruction identity. The
// hint output is never trusted: Div re-validates it with constraints.
func divHint(_ *big.Int, inputs, outputs []*big.Int) error {
	if len(inputs) != 2*NumLimbs || len(outputs) != 2*NumLimbs {
		return errors.New("divHint: expected 16 inputs and 16 outputs")
	}
	a := bigFromLimbInts(inputs[:NumLimbs])
	b := bigFromLimbInts(inputs[NumLimbs:])
	q := new(big.Int)
	r := new(big.Int)
	if b.Sign() == 0 {
		r.Set(a)
	} else {
		q.QuoRem(a, b, r)
	}
	qLimbs := limbIntsFromBig(q)
	rLimbs := limbIntsFromBig(r)
	for i := 0; i < NumLimbs; i++ {
		outputs[i].Set(qLimbs[i])
		outputs[NumLimbs+i].Set(rLimbs[i])
	}
	return nil
}
