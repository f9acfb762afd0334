package circuitset

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	fr_bn254 "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
)

// bundleVersion tags the serialized layout below. Any change to the field
// order or encoding must bump it: both producer and consumer of a bundle
// agree on this layout out-of-band.
const bundleVersion = 1

// ProofWithVK is the bundle exchanged at every layer boundary: a proof,
// its public witness and the verifying key it verifies against, tagged
// with the circuit digest so a consumer can select the right set member
// without external context.
type ProofWithVK struct {
	CircuitDigest *big.Int
	Proof         groth16.Proof
	VK            groth16.VerifyingKey
	PublicWitness witness.Witness
}

// NewProofWithVK tags a generated proof with its circuit identity.
func NewProofWithVK(proof groth16.Proof, vk groth16.VerifyingKey, pubWitness witness.Witness) (*ProofWithVK, error) {
	digest, err := CircuitDigest(vk)
	if err != nil {
		return nil, err
	}
	return &ProofWithVK{CircuitDigest: digest, Proof: proof, VK: vk, PublicWitness: pubWitness}, nil
}

// Serialize encodes the bundle as a versioned, length-prefixed binary
// layout: version byte, 32-byte digest, then proof, verifying key and
// public witness blobs each preceded by a uint32 length.
func (p *ProofWithVK) Serialize() ([]byte, error) {
	var out bytes.Buffer
	out.WriteByte(bundleVersion)
	var digest [32]byte
	p.CircuitDigest.FillBytes(digest[:])
	out.Write(digest[:])

	sections := make([][]byte, 0, 3)
	var buf bytes.Buffer
	if _, err := p.Proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serialize proof: %w", err)
	}
	sections = append(sections, append([]byte(nil), buf.Bytes()...))
	buf.Reset()
	if _, err := p.VK.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serialize verifying key: %w", err)
	}
	sections = append(sections, append([]byte(nil), buf.Bytes()...))
	wBytes, err := p.PublicWitness.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("serialize public witness: %w", err)
	}
	sections = append(sections, wBytes)

	for _, section := range sections {
		if err := binary.Write(&out, binary.BigEndian, uint32(len(section))); err != nil {
			return nil, err
		}
		out.Write(section)
	}
	return out.Bytes(), nil
}

// Deserialize decodes a bundle. Failures here are caller errors: the input
// bytes are corrupt or from an incompatible version, and the caller may
// retry with corrected input.
func Deserialize(data []byte) (*ProofWithVK, error) {
	buf := bytes.NewReader(data)
	version, err := buf.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != bundleVersion {
		return nil, fmt.Errorf("unsupported bundle version %d", version)
	}
	var digest [32]byte
	if _, err := buf.Read(digest[:]); err != nil {
		return nil, fmt.Errorf("read digest: %w", err)
	}
	readSection := func() ([]byte, error) {
		var length uint32
		if err := binary.Read(buf, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		section := make([]byte, length)
		if _, err := buf.Read(section); err != nil {
			return nil, err
		}
		return section, nil
	}
	proofBytes, err := readSection()
	if err != nil {
		return nil, fmt.Errorf("read proof: %w", err)
	}
	vkBytes, err := readSection()
	if err != nil {
		return nil, fmt.Errorf("read verifying key: %w", err)
	}
	witnessBytes, err := readSection()
	if err != nil {
		return nil, fmt.Errorf("read public witness: %w", err)
	}

	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return nil, fmt.Errorf("decode proof: %w", err)
	}
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(vkBytes)); err != nil {
		return nil, fmt.Errorf("decode verifying key: %w", err)
	}
	pubWitness, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}
	if err := pubWitness.UnmarshalBinary(witnessBytes); err != nil {
		return nil, fmt.Errorf("decode public witness: %w", err)
	}
	return &ProofWithVK{
		CircuitDigest: new(big.Int).SetBytes(digest[:]),
		Proof:         proof,
		VK:            vk,
		PublicWitness: pubWitness,
	}, nil
}

// PublicInputs returns the bundle's public inputs as big integers, in the
// positional order of the producing family's layout.
func (p *ProofWithVK) PublicInputs() ([]*big.Int, error) {
	vec, ok := p.PublicWitness.Vector().(fr_bn254.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected witness vector type %T", p.PublicWitness.Vector())
	}
	out := make([]*big.Int, len(vec))
	for i := range vec {
		out[i] = new(big.Int)
		vec[i].BigInt(out[i])
	}
	return out, nil
}
