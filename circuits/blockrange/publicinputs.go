// Package blockrange implements the block-range aggregation circuits.
// A block leaf binds a fully consumed storage-trie proof to one block;
// full nodes merge two adjacent ranges and partial nodes hash over an
// unproved sibling subtree. Every circuit exposes the same flat
// public-input vector.
package blockrange

import (
	"github.com/chainquery/chainquery/circuits"
)

// Field lengths of the public-input vector, in declaration order.
const (
	BlockNumberLen = 1
	RangeLen       = 1
	RootLen        = 1
	ContractLen    = circuits.AddressLimbs
	OwnerLen       = circuits.AddressLimbs
	MappingSlotLen = 1
	SlotLengthLen  = 1
	ResultLen      = circuits.U256Limbs
	RewardsRateLen = circuits.U256Limbs

	// NumPublicInputs is the total length of the family's public-input
	// vector.
	NumPublicInputs = BlockNumberLen + RangeLen + RootLen + ContractLen +
		OwnerLen + MappingSlotLen + SlotLengthLen + ResultLen + RewardsRateLen
)

// Field names of the public-input layout.
const (
	FieldBlockNumber = "blockNumber"
	FieldRange       = "range"
	FieldRoot        = "root"
	FieldContract    = "contract"
	FieldOwner       = "owner"
	FieldMappingSlot = "mappingSlot"
	FieldSlotLength  = "slotLength"
	FieldResult      = "result"
	FieldRewardsRate = "rewardsRate"
)

// Layout describes the family's public-input vector.
var Layout = circuits.NewLayout(
	circuits.LayoutField{Name: FieldBlockNumber, Len: BlockNumberLen},
	circuits.LayoutField{Name: FieldRange, Len: RangeLen},
	circuits.LayoutField{Name: FieldRoot, Len: RootLen},
	circuits.LayoutField{Name: FieldContract, Len: ContractLen},
	circuits.LayoutField{Name: FieldOwner, Len: OwnerLen},
	circuits.LayoutField{Name: FieldMappingSlot, Len: MappingSlotLen},
	circuits.LayoutField{Name: FieldSlotLength, Len: SlotLengthLen},
	circuits.LayoutField{Name: FieldResult, Len: ResultLen},
	circuits.LayoutField{Name: FieldRewardsRate, Len: RewardsRateLen},
)

func init() {
	if Layout.Total() != NumPublicInputs {
		panic("blockrange: layout total mismatch")
	}
}

// PublicInputs is a typed view over a flat public-input vector of the
// family layout, generic over in-circuit variables and native values.
type PublicInputs[T any] struct {
	vec []T
}

// FromVector wraps the flat vector, panicking on a length mismatch.
func FromVector[T any](vec []T) PublicInputs[T] {
	if len(vec) != NumPublicInputs {
		panic("blockrange: public-input vector length mismatch")
	}
	return PublicInputs[T]{vec: vec}
}

func (p PublicInputs[T]) BlockNumber() T   { return circuits.At(Layout, p.vec, FieldBlockNumber) }
func (p PublicInputs[T]) Range() T         { return circuits.At(Layout, p.vec, FieldRange) }
func (p PublicInputs[T]) Root() T          { return circuits.At(Layout, p.vec, FieldRoot) }
func (p PublicInputs[T]) Contract() []T    { return circuits.Slice(Layout, p.vec, FieldContract) }
func (p PublicInputs[T]) Owner() []T       { return circuits.Slice(Layout, p.vec, FieldOwner) }
func (p PublicInputs[T]) MappingSlot() T   { return circuits.At(Layout, p.vec, FieldMappingSlot) }
func (p PublicInputs[T]) SlotLength() T    { return circuits.At(Layout, p.vec, FieldSlotLength) }
func (p PublicInputs[T]) Result() []T      { return circuits.Slice(Layout, p.vec, FieldResult) }
func (p PublicInputs[T]) RewardsRate() []T { return circuits.Slice(Layout, p.vec, FieldRewardsRate) }
func (p PublicInputs[T]) Vector() []T      { return p.vec }
