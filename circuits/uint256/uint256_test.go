package uint256

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
	qt "github.com/frankban/quicktest"
)

type binOpCircuit struct {
	A, B [NumLimbs]frontend.Variable
	Out  [NumLimbs]frontend.Variable
	Flag frontend.Variable
	op   string
}

func (c *binOpCircuit) Define(api frontend.API) error {
	a := New(api, c.A)
	b := New(api, c.B)
	var out U256
	var flag frontend.Variable
	switch c.op {
	case "add":
		out, flag = Add(api, a, b)
	case "sub":
		out, flag = Sub(api, a, b)
	case "mul":
		out, flag = Mul(api, a, b)
	default:
		panic("unknown op")
	}
	AssertIsEqual(api, out, New(api, c.Out))
	api.AssertIsEqual(flag, c.Flag)
	return nil
}

type divCircuit struct {
	A, B      [NumLimbs]frontend.Variable
	Quot, Rem [NumLimbs]frontend.Variable
	DivByZero frontend.Variable
}

func (c *divCircuit) Define(api frontend.API) error {
	q, r, dz := Div(api, New(api, c.A), New(api, c.B))
	AssertIsEqual(api, q, New(api, c.Quot))
	AssertIsEqual(api, r, New(api, c.Rem))
	api.AssertIsEqual(dz, c.DivByZero)
	return nil
}

func limbVars(c *qt.C, v *big.Int) [NumLimbs]frontend.Variable {
	limbs, err := LimbsFromBig(v)
	c.Assert(err, qt.IsNil)
	var out [NumLimbs]frontend.Variable
	for i := range limbs {
		out[i] = limbs[i]
	}
	return out
}

func random256(c *qt.C) *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	v, err := rand.Int(rand.Reader, max)
	c.Assert(err, qt.IsNil)
	return v
}

func mod256(v *big.Int) (*big.Int, bool) {
	mod := new(big.Int).Lsh(big.NewInt(1), 256)
	wrapped := new(big.Int).Mod(v, mod)
	return wrapped, v.Cmp(wrapped) != 0
}

func solveBinOp(c *qt.C, op string, a, b, out *big.Int, flag int) error {
	circuit := &binOpCircuit{op: op}
	assignment := &binOpCircuit{
		A: limbVars(c, a), B: limbVars(c, b), Out: limbVars(c, out),
		Flag: flag, op: op,
	}
	return test.IsSolved(circuit, assignment, ecc.BN254.ScalarField())
}

func TestAddSubCarry(t *testing.T) {
	c := qt.New(t)
	for i := 0; i < 8; i++ {
		a, b := random256(c), random256(c)
		sum, carried := mod256(new(big.Int).Add(a, b))
		flag := 0
		if carried {
			flag = 1
		}
		c.Assert(solveBinOp(c, "add", a, b, sum, flag), qt.IsNil)

		diff := new(big.Int).Sub(a, b)
		borrow := 0
		if diff.Sign() < 0 {
			diff.Add(diff, new(big.Int).Lsh(big.NewInt(1), 256))
			borrow = 1
		}
		c.Assert(solveBinOp(c, "sub", a, b, diff, borrow), qt.IsNil)
	}
	// a wrong carry flag must not solve
	a := big.NewInt(1)
	b := big.NewInt(2)
	c.Assert(solveBinOp(c, "add", a, b, big.NewInt(3), 1), qt.IsNotNil)
}

func TestMulOverflowFlag(t *testing.T) {
	c := qt.New(t)
	for i := 0; i < 8; i++ {
		a, b := random256(c), random256(c)
		prod, overflowed := mod256(new(big.Int).Mul(a, b))
		flag := 0
		if overflowed {
			flag = 1
		}
		c.Assert(solveBinOp(c, "mul", a, b, prod, flag), qt.IsNil)
	}
	// small values never overflow
	c.Assert(solveBinOp(c, "mul", big.NewInt(12345), big.NewInt(67890),
		big.NewInt(12345*67890), 0), qt.IsNil)
	// claiming no overflow on an overflowing product must not solve
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	wrapped, _ := mod256(new(big.Int).Mul(max, max))
	c.Assert(solveBinOp(c, "mul", max, max, wrapped, 0), qt.IsNotNil)
}

func TestDivIsInverseOfMul(t *testing.T) {
	c := qt.New(t)
	max128 := new(big.Int).Lsh(big.NewInt(1), 128)
	for i := 0; i < 8; i++ {
		// a*b below 2^256, so div must recover (a, 0)
		a, err := rand.Int(rand.Reader, max128)
		c.Assert(err, qt.IsNil)
		b, err := rand.Int(rand.Reader, max128)
		c.Assert(err, qt.IsNil)
		if b.Sign() == 0 {
			b = big.NewInt(1)
		}
		prod := new(big.Int).Mul(a, b)
		assignment := &divCircuit{
			A: limbVars(c, prod), B: limbVars(c, b),
			Quot: limbVars(c, a), Rem: limbVars(c, new(big.Int)),
			DivByZero: 0,
		}
		c.Assert(test.IsSolved(&divCircuit{}, assignment, ecc.BN254.ScalarField()), qt.IsNil)
	}
}

func TestDivByZero(t *testing.T) {
	c := qt.New(t)
	a := random256(c)
	assignment := &divCircuit{
		A: limbVars(c, a), B: limbVars(c, new(big.Int)),
		Quot: limbVars(c, new(big.Int)), Rem: limbVars(c, a),
		DivByZero: 1,
	}
	c.Assert(test.IsSolved(&divCircuit{}, assignment, ecc.BN254.ScalarField()), qt.IsNil)
}

type cmpCircuit struct {
	A, B              [NumLimbs]frontend.Variable
	Less, Zero, Equal frontend.Variable
}

func (c *cmpCircuit) Define(api frontend.API) error {
	a := New(api, c.A)
	b := New(api, c.B)
	api.AssertIsEqual(IsLessThan(api, a, b), c.Less)
	api.AssertIsEqual(IsZero(api, a), c.Zero)
	api.AssertIsEqual(IsEqual(api, a, b), c.Equal)
	return nil
}

func TestComparisons(t *testing.T) {
	c := qt.New(t)
	cases := []struct {
		a, b              *big.Int
		less, zero, equal int
	}{
		{big.NewInt(1), big.NewInt(2), 1, 0, 0},
		{big.NewInt(2), big.NewInt(1), 0, 0, 0},
		{big.NewInt(7), big.NewInt(7), 0, 0, 1},
		{new(big.Int), big.NewInt(1), 1, 1, 0},
	}
	for _, tc := range cases {
		assignment := &cmpCircuit{
			A: limbVars(c, tc.a), B: limbVars(c, tc.b),
			Less: tc.less, Zero: tc.zero, Equal: tc.equal,
		}
		c.Assert(test.IsSolved(&cmpCircuit{}, assignment, ecc.BN254.ScalarField()), qt.IsNil)
	}
}

func TestByteOrderConversion(t *testing.T) {
	c := qt.New(t)
	v := random256(c)
	limbs, err := LimbsFromBig(v)
	c.Assert(err, qt.IsNil)
	c.Assert(BigFromLimbs(limbs).Cmp(v), qt.Equals, 0)

	be := BigEndianBytes(limbs)
	c.Assert(new(big.Int).SetBytes(be[:]).Cmp(v), qt.Equals, 0)
	back := LimbsFromBigEndianBytes(be)
	c.Assert(BigFromLimbs(back).Cmp(v), qt.Equals, 0)

	// a value beyond 256 bits is rejected on introduction
	big257 := new(big.Int).Lsh(big.NewInt(1), 256)
	_, err = LimbsFromBig(big257)
	c.Assert(err, qt.IsNotNil)
}
