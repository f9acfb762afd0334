package types

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// BigInt is a big.Int wrapper which marshals JSON to a string representation
// of the big number.
type BigInt big.Int

// MarshalText returns the decimal string representation.
func (i *BigInt) MarshalText() ([]byte, error) {
	return []byte((*big.Int)(i).String()), nil
}

// UnmarshalText parses a decimal string into the receiver.
func (i *BigInt) UnmarshalText(data []byte) error {
	if _, ok := (*big.Int)(i).SetString(string(data), 10); !ok {
		return fmt.Errorf("invalid big integer %q", data)
	}
	return nil
}

// MarshalCBOR encodes the wrapped big.Int, so small values stay plain
// integers and large ones become bignum tags.
func (i *BigInt) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal((*big.Int)(i))
}

// UnmarshalCBOR decodes an integer or bignum into the receiver.
func (i *BigInt) UnmarshalCBOR(data []byte) error {
	var b big.Int
	if err := cbor.Unmarshal(data, &b); err != nil {
		return err
	}
	*i = BigInt(b)
	return nil
}

// MathBigInt converts b to a standard big.Int.
func (i *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(i)
}

// String returns the decimal string representation.
func (i *BigInt) String() string {
	return (*big.Int)(i).String()
}
