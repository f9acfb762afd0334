// Package circuitset implements the universal verifier framework: circuit
// digests, the committed circuit set a universal verifier accepts, the
// in-circuit gadget that verifies a proof against any member of the set,
// and the fixed-key variant that pins one specific trusted circuit.
package circuitset

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/emulated/fields_bn254"
	"github.com/consensys/gnark/std/algebra/emulated/sw_bn254"
	"github.com/consensys/gnark/std/hash/mimc"
	stdgroth16 "github.com/consensys/gnark/std/recursion/groth16"

	"github.com/chainquery/chainquery/circuits"
)

type emuVerifyingKey = stdgroth16.VerifyingKey[sw_bn254.G1Affine, sw_bn254.G2Affine, sw_bn254.GTEl]

// vkPreimage flattens a verifying key into the fixed sequence of values
// its digest commits to: shape prefixes first, then the limbs of every
// curve element in declaration order. The same traversal runs natively
// over a key value (where every entry is a constant) and in-circuit over
// a witnessed key, so the two digests agree by construction. Pairing
// line precomputations are deliberately excluded: they are derived data
// a witnessed key does not carry.
func vkPreimage(vk *emuVerifyingKey) []frontend.Variable {
	out := []frontend.Variable{len(vk.G1.K), len(vk.CommitmentKeys)}
	for _, committed := range vk.PublicAndCommitmentCommitted {
		out = append(out, len(committed))
		for _, idx := range committed {
			out = append(out, idx)
		}
	}
	e2 := func(e *fields_bn254.E2) {
		out = append(out, e.A0.Limbs...)
		out = append(out, e.A1.Limbs...)
	}
	e6 := func(e *fields_bn254.E6) { e2(&e.B0); e2(&e.B1); e2(&e.B2) }
	e6(&vk.E.C0)
	e6(&vk.E.C1)
	for i := range vk.G1.K {
		out = append(out, vk.G1.K[i].X.Limbs...)
		out = append(out, vk.G1.K[i].Y.Limbs...)
	}
	e2(&vk.G2.GammaNeg.P.X)
	e2(&vk.G2.GammaNeg.P.Y)
	e2(&vk.G2.DeltaNeg.P.X)
	e2(&vk.G2.DeltaNeg.P.Y)
	for i := range vk.CommitmentKeys {
		e2(&vk.CommitmentKeys[i].G.P.X)
		e2(&vk.CommitmentKeys[i].G.P.Y)
		e2(&vk.CommitmentKeys[i].GSigmaNeg.P.X)
		e2(&vk.CommitmentKeys[i].GSigmaNeg.P.Y)
	}
	return out
}

// CircuitDigest commits to a compiled circuit through its verifying key:
// the key's emulated limb representation is MiMC-hashed. Two parties
// agreeing on a digest agree on the exact circuit a proof must verify
// against.
func CircuitDigest(vk groth16.VerifyingKey) (*big.Int, error) {
	emuVK, err := stdgroth16.ValueOfVerifyingKey[sw_bn254.G1Affine, sw_bn254.G2Affine, sw_bn254.GTEl](vk)
	if err != nil {
		return nil, fmt.Errorf("emulated key: %w", err)
	}
	preimage := vkPreimage(&emuVK)
	values := make([]*big.Int, len(preimage))
	for i, v := range preimage {
		values[i], err = constToBig(v)
		if err != nil {
			return nil, fmt.Errorf("preimage entry %d: %w", i, err)
		}
	}
	return circuits.HashMiMC(values...), nil
}

// digestInCircuit recomputes a witnessed key's digest inside the outer
// circuit, with the exact traversal CircuitDigest uses natively.
func digestInCircuit(api frontend.API, vk *emuVerifyingKey) (frontend.Variable, error) {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return nil, err
	}
	h.Write(vkPreimage(vk)...)
	return h.Sum(), nil
}

func constToBig(v frontend.Variable) (*big.Int, error) {
	switch c := v.(type) {
	case *big.Int:
		return c, nil
	case big.Int:
		return &c, nil
	case int:
		return big.NewInt(int64(c)), nil
	case int64:
		return big.NewInt(c), nil
	case uint64:
		return new(big.Int).SetUint64(c), nil
	case string:
		out, ok := new(big.Int).SetString(c, 10)
		if !ok {
			return nil, fmt.Errorf("non-numeric constant %q", c)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected constant type %T", v)
	}
}
