// Package storagetrie implements the trie-node aggregation circuits:
// leaf, extension and branch. Every circuit in the family exposes the
// same flat public-input vector so that an aggregating parent can
// consume a child proof without knowing which node shape produced it.
//
// The key is exposed in root-to-leaf nibble order and the pointer
// counts how many trailing nibbles have already been consumed, so a
// leaf starts at pointer 0 and every aggregation step moves the
// pointer towards the root.
package storagetrie

import (
	"github.com/chainquery/chainquery/circuits"
)

// Field lengths of the public-input vector, in declaration order.
const (
	KeyLen     = circuits.KeyNibbles
	PointerLen = 1
	RootLen    = 1
	DigestLen  = 2
	OwnerLen   = circuits.AddressLimbs
	ValueLen   = circuits.U256Limbs
	CountLen   = 1

	// NumPublicInputs is the total length of the family's public-input
	// vector.
	NumPublicInputs = KeyLen + PointerLen + RootLen + DigestLen + OwnerLen + ValueLen + CountLen
)

// Field names of the public-input layout.
const (
	FieldKey     = "key"
	FieldPointer = "pointer"
	FieldRoot    = "root"
	FieldDigest  = "digest"
	FieldOwner   = "owner"
	FieldValue   = "value"
	FieldCount   = "count"
)

// Layout describes the family's public-input vector.
var Layout = circuits.NewLayout(
	circuits.LayoutField{Name: FieldKey, Len: KeyLen},
	circuits.LayoutField{Name: FieldPointer, Len: PointerLen},
	circuits.LayoutField{Name: FieldRoot, Len: RootLen},
	circuits.LayoutField{Name: FieldDigest, Len: DigestLen},
	circuits.LayoutField{Name: FieldOwner, Len: OwnerLen},
	circuits.LayoutField{Name: FieldValue, Len: ValueLen},
	circuits.LayoutField{Name: FieldCount, Len: CountLen},
)

func init() {
	if Layout.Total() != NumPublicInputs {
		panic("storagetrie: layout total mismatch")
	}
}

// PublicInputs is a typed view over a flat public-input vector of the
// family layout. It works both over frontend.Variable (in-circuit,
// e.g. the recovered public inputs of a verified child proof) and over
// native values when assigning or checking witnesses.
type PublicInputs[T any] struct {
	vec []T
}

// FromVector wraps the flat vector. It panics when the length does not
// match the layout, which is a programming error at a layer boundary.
func FromVector[T any](vec []T) PublicInputs[T] {
	if len(vec) != NumPublicInputs {
		panic("storagetrie: public-input vector length mismatch")
	}
	return PublicInputs[T]{vec: vec}
}

func (p PublicInputs[T]) Key() []T    { return circuits.Slice(Layout, p.vec, FieldKey) }
func (p PublicInputs[T]) Pointer() T  { return circuits.At(Layout, p.vec, FieldPointer) }
func (p PublicInputs[T]) Root() T     { return circuits.At(Layout, p.vec, FieldRoot) }
func (p PublicInputs[T]) Digest() []T { return circuits.Slice(Layout, p.vec, FieldDigest) }
func (p PublicInputs[T]) Owner() []T  { return circuits.Slice(Layout, p.vec, FieldOwner) }
func (p PublicInputs[T]) Value() []T  { return circuits.Slice(Layout, p.vec, FieldValue) }
func (p PublicInputs[T]) Count() T    { return circuits.At(Layout, p.vec, FieldCount) }
func (p PublicInputs[T]) Vector() []T { return p.vec }
