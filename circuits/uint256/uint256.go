// Package uint256 implements unsigned 256-bit arithmetic gadgets over the
// native field, packing values as 8 little-endian 32-bit limbs. Every
// operation that can leave the 256-bit range reports it through an explicit
// flag; callers are expected to assert the flag against the value they
// accept instead of letting wraparound pass silently.
package uint256

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/math/bits"
)

// NumLimbs is the number of 32-bit limbs of a packed U256.
const NumLimbs = 8

// limbBits is the width of a single limb.
const limbBits = 32

// U256 is a 256-bit unsigned integer in little-endian 32-bit limbs.
type U256 struct {
	Limbs [NumLimbs]frontend.Variable
}

// New builds a U256 from limb variables, range-checking each limb to 32
// bits. All values entering the circuit through witnesses must go through
// here before being used in arithmetic.
func New(api frontend.API, limbs [NumLimbs]frontend.Variable) U256 {
	for i := range limbs {
		bits.ToBinary(api, limbs[i], bits.WithNbDigits(limbBits))
	}
	return U256{Limbs: limbs}
}

// Zero returns the constant zero value.
func Zero() U256 {
	var z U256
	for i := range z.Limbs {
		z.Limbs[i] = 0
	}
	return z
}

// Add returns a+b and a carry flag. The caller must assert the flag equals
// the expected value; there is no silent wraparound.
func Add(api frontend.API, a, b U256) (U256, frontend.Variable) {
	var out U256
	carry := frontend.Variable(0)
	for i := 0; i < NumLimbs; i++ {
		sum := api.Add(api.Add(a.Limbs[i], b.Limbs[i]), carry)
		// sum < 2^33, split into limb and carry bit
		sumBits := bits.ToBinary(api, sum, bits.WithNbDigits(limbBits+1))
		out.Limbs[i] = bits.FromBinary(api, sumBits[:limbBits])
		carry = sumBits[limbBits]
	}
	return out, carry
}

// Sub returns a-b and a borrow flag (1 when b > a).
func Sub(api frontend.API, a, b U256) (U256, frontend.Variable) {
	var out U256
	borrow := frontend.Variable(0)
	shift := uint64(1) << limbBits
	for i := 0; i < NumLimbs; i++ {
		// a - b - borrow + 2^32 is non-negative and below 2^33
		d := api.Add(api.Sub(api.Sub(a.Limbs[i], b.Limbs[i]), borrow), shift)
		dBits := bits.ToBinary(api, d, bits.WithNbDigits(limbBits+1))
		out.Limbs[i] = bits.FromBinary(api, dBits[:limbBits])
		// the top bit is set exactly when no borrow was needed
		borrow = api.Sub(1, dBits[limbBits])
	}
	return out, borrow
}

// Mul returns a*b truncated to 256 bits and an overflow flag. Partial
// products landing beyond the 8th limb are diverted into an accumulator
// instead of discarded; the flag is true iff that accumulator is nonzero.
// Callers performing balance or reward math must connect the flag to false
// to reject overflowing multiplications.
func Mul(api frontend.API, a, b U256) (U256, frontend.Variable) {
	var out U256
	carry := frontend.Variable(0)
	overflowAcc := frontend.Variable(0)
	for pos := 0; pos < 2*NumLimbs-1; pos++ {
		acc := carry
		for i := 0; i < NumLimbs; i++ {
			j := pos - i
			if j < 0 || j >= NumLimbs {
				continue
			}
			acc = api.Add(acc, api.Mul(a.Limbs[i], b.Limbs[j]))
		}
		if pos < NumLimbs {
			// up to 8 products of 64 bits each plus the carry: 68 bits
			accBits := bits.ToBinary(api, acc, bits.WithNbDigits(70))
			out.Limbs[pos] = bits.FromBinary(api, accBits[:limbBits])
			carry = bits.FromBinary(api, accBits[limbBits:])
		} else {
			overflowAcc = api.Add(overflowAcc, acc)
			carry = 0
		}
	}
	overflow := api.Sub(1, api.IsZero(overflowAcc))
	return out, overflow
}

// Div returns the quotient and remainder of a/b together with a
// division-by-zero flag. Quotient and remainder are supplied as
// unconstrained hint witnesses and validated in-circuit: the remainder must
// be below the divisor (for a nonzero divisor) and a == q*b + r must
// reconstruct without overflow. When b is zero the quotient is pinned to
// zero and the remainder is, by the reconstruction identity, the dividend.
// An inconsistent hint witness fails these constraints outright.
func Div(api frontend.API, a, b U256) (q, r U256, divByZero frontend.Variable) {
	ins := make([]frontend.Variable, 0, 2*NumLimbs)
	ins = append(ins, a.Limbs[:]...)
	ins = append(ins, b.Limbs[:]...)
	hinted, err := api.Compiler().NewHint(divHint, 2*NumLimbs, ins...)
	if err != nil {
		panic(err) // hint registration failure is a programming error
	}
	var qLimbs, rLimbs [NumLimbs]frontend.Variable
	copy(qLimbs[:], hinted[:NumLimbs])
	copy(rLimbs[:], hinted[NumLimbs:])
	q = New(api, qLimbs)
	r = New(api, rLimbs)

	divByZero = IsZero(api, b)
	// r < b unless dividing by zero
	ltFlag := IsLessThan(api, r, b)
	api.AssertIsEqual(api.Select(divByZero, 1, ltFlag), 1)
	// pin the quotient on division by zero
	for i := range q.Limbs {
		api.AssertIsEqual(api.Mul(divByZero, q.Limbs[i]), 0)
	}
	// a == q*b + r with no overflow in the reconstruction
	prod, mulOverflow := Mul(api, q, b)
	api.AssertIsEqual(mulOverflow, 0)
	sum, addCarry := Add(api, prod, r)
	api.AssertIsEqual(addCarry, 0)
	AssertIsEqual(api, sum, a)
	return q, r, divByZero
}

// IsLessThan returns 1 when a < b, computed as "the subtraction a-b
// requires a borrow".
func IsLessThan(api frontend.API, a, b U256) frontend.Variable {
	_, borrow := Sub(api, a, b)
	return borrow
}

// IsZero returns 1 when every limb is zero. Limbs are range-checked on
// introduction, so their sum cannot wrap the native field.
func IsZero(api frontend.API, a U256) frontend.Variable {
	sum := frontend.Variable(0)
	for i := range a.Limbs {
		sum = api.Add(sum, a.Limbs[i])
	}
	return api.IsZero(sum)
}

// IsEqual returns 1 when a == b.
func IsEqual(api frontend.API, a, b U256) frontend.Variable {
	eq := frontend.Variable(1)
	for i := range a.Limbs {
		eq = api.Mul(eq, api.IsZero(api.Sub(a.Limbs[i], b.Limbs[i])))
	}
	return eq
}

// Select returns a when sel is 1 and b otherwise, limb-wise.
func Select(api frontend.API, sel frontend.Variable, a, b U256) U256 {
	var out U256
	for i := range out.Limbs {
		out.Limbs[i] = api.Select(sel, a.Limbs[i], b.Limbs[i])
	}
	return out
}

// AssertIsEqual constrains a == b limb-wise.
func AssertIsEqual(api frontend.API, a, b U256) {
	for i := range a.Limbs {
		api.AssertIsEqual(a.Limbs[i], b.Limbs[i])
	}
}

// BigEndianLimbs returns the limbs in big-endian order, the form required
// when a value feeds a domain-separated hash preimage. The conversion is a
// deliberate explicit step: internal arithmetic order is little-endian.
func (u U256) BigEndianLimbs() [NumLimbs]frontend.Variable {
	var out [NumLimbs]frontend.Variable
	for i := range u.Limbs {
		out[NumLimbs-1-i] = u.Limbs[i]
	}
	return out
}
