// Package revelation implements the terminal circuit of the proof
// chain. It binds an aggregated block-range proof to a block-database
// proof supplied by an external collaborator and exposes the final,
// externally consumable public-input vector.
package revelation

import (
	"github.com/chainquery/chainquery/circuits"
)

// Field lengths of the revelation public-input vector.
const (
	BlockNumberLen = 1
	RangeLen       = 1
	MinBlockLen    = 1
	MaxBlockLen    = 1
	ContractLen    = circuits.AddressLimbs
	OwnerLen       = circuits.AddressLimbs
	MappingSlotLen = 1
	SlotLengthLen  = 1
	HeaderLen      = circuits.HeaderLimbs
	ResultLen      = circuits.U256Limbs
	RewardsRateLen = circuits.U256Limbs

	// NumPublicInputs is the total length of the revelation vector.
	NumPublicInputs = BlockNumberLen + RangeLen + MinBlockLen + MaxBlockLen +
		ContractLen + OwnerLen + MappingSlotLen + SlotLengthLen + HeaderLen +
		ResultLen + RewardsRateLen
)

// Field names of the revelation layout.
const (
	FieldBlockNumber = "blockNumber"
	FieldRange       = "range"
	FieldMinBlock    = "minBlock"
	FieldMaxBlock    = "maxBlock"
	FieldContract    = "contract"
	FieldOwner       = "owner"
	FieldMappingSlot = "mappingSlot"
	FieldSlotLength  = "slotLength"
	FieldHeader      = "header"
	FieldResult      = "result"
	FieldRewardsRate = "rewardsRate"
)

// Layout describes the revelation public-input vector: the range
// proof's identity fields plus the requested query bounds and the
// database block header, with the internal root dropped.
var Layout = circuits.NewLayout(
	circuits.LayoutField{Name: FieldBlockNumber, Len: BlockNumberLen},
	circuits.LayoutField{Name: FieldRange, Len: RangeLen},
	circuits.LayoutField{Name: FieldMinBlock, Len: MinBlockLen},
	circuits.LayoutField{Name: FieldMaxBlock, Len: MaxBlockLen},
	circuits.LayoutField{Name: FieldContract, Len: ContractLen},
	circuits.LayoutField{Name: FieldOwner, Len: OwnerLen},
	circuits.LayoutField{Name: FieldMappingSlot, Len: MappingSlotLen},
	circuits.LayoutField{Name: FieldSlotLength, Len: SlotLengthLen},
	circuits.LayoutField{Name: FieldHeader, Len: HeaderLen},
	circuits.LayoutField{Name: FieldResult, Len: ResultLen},
	circuits.LayoutField{Name: FieldRewardsRate, Len: RewardsRateLen},
)

func init() {
	if Layout.Total() != NumPublicInputs {
		panic("revelation: layout total mismatch")
	}
}

// PublicInputs is a typed view over the revelation vector.
type PublicInputs[T any] struct {
	vec []T
}

// FromVector wraps the flat vector, panicking on a length mismatch.
func FromVector[T any](vec []T) PublicInputs[T] {
	if len(vec) != NumPublicInputs {
		panic("revelation: public-input vector length mismatch")
	}
	return PublicInputs[T]{vec: vec}
}

func (p PublicInputs[T]) BlockNumber() T   { return circuits.At(Layout, p.vec, FieldBlockNumber) }
func (p PublicInputs[T]) Range() T         { return circuits.At(Layout, p.vec, FieldRange) }
func (p PublicInputs[T]) MinBlock() T      { return circuits.At(Layout, p.vec, FieldMinBlock) }
func (p PublicInputs[T]) MaxBlock() T      { return circuits.At(Layout, p.vec, FieldMaxBlock) }
func (p PublicInputs[T]) Contract() []T    { return circuits.Slice(Layout, p.vec, FieldContract) }
func (p PublicInputs[T]) Owner() []T       { return circuits.Slice(Layout, p.vec, FieldOwner) }
func (p PublicInputs[T]) MappingSlot() T   { return circuits.At(Layout, p.vec, FieldMappingSlot) }
func (p PublicInputs[T]) SlotLength() T    { return circuits.At(Layout, p.vec, FieldSlotLength) }
func (p PublicInputs[T]) Header() []T      { return circuits.Slice(Layout, p.vec, FieldHeader) }
func (p PublicInputs[T]) Result() []T      { return circuits.Slice(Layout, p.vec, FieldResult) }
func (p PublicInputs[T]) RewardsRate() []T { return circuits.Slice(Layout, p.vec, FieldRewardsRate) }
func (p PublicInputs[T]) Vector() []T      { return p.vec }
