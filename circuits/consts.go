// Package circuits contains the shared framework pieces used by every
// circuit family in the repository: the public-input layout codec, the
// recursive inner-proof types and the hash/packing helpers. Families
// (storagetrie, blockrange, revelation) build on top of these and on the
// universal verifier from circuits/circuitset.
package circuits

import "math/big"

const (
	// KeyNibbles is the length of a storage mapping key in nibbles. Keys
	// are exposed in root-to-leaf order in the public inputs.
	KeyNibbles = 64
	// U256Limbs is the number of 32-bit little-endian limbs packing an
	// unsigned 256-bit value.
	U256Limbs = 8
	// AddressLimbs is the number of 32-bit limbs packing a 20-byte address.
	AddressLimbs = 5
	// HeaderLimbs is the number of 128-bit limbs packing a keccak block
	// header hash.
	HeaderLimbs = 2
	// BranchSlots is the number of child slots of a trie branch node.
	BranchSlots = 16
	// SetMaxLevels is the fixed depth of the circuit-set membership tree.
	SetMaxLevels = 8
)

// BranchArities lists the supported branch circuit arities in increasing
// order. Proof generation picks the smallest arity that fits the number of
// real children and pads the rest by duplicating the first child proof.
var BranchArities = []int{2, 9, 16}

// Domain separation prefixes for the node hash constructions. The values
// are the big-endian interpretation of the ASCII tags.
var (
	LeafHashPrefix      = new(big.Int).SetBytes([]byte("LEAF"))
	ExtensionHashPrefix = new(big.Int).SetBytes([]byte("EXT"))
	BranchHashPrefix    = new(big.Int).SetBytes([]byte("BRANCH"))
	BlockLeafHashPrefix = new(big.Int).SetBytes([]byte("BLOCK"))
)
