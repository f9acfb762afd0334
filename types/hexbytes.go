package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HexBytes is a []byte which encodes as hexadecimal in json, as in "0x08…".
type HexBytes []byte

// String returns the 0x-prefixed hexadecimal representation.
func (b HexBytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

// SetString decodes a hex string, with or without the 0x prefix, into b.
func (b *HexBytes) SetString(s string) error {
	s = strings.TrimPrefix(s, "0x")
	dec, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*b = dec
	return nil
}

// MarshalJSON encodes as a quoted 0x-prefixed hex string.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	enc := make([]byte, hex.EncodedLen(len(b))+4)
	enc[0] = '"'
	enc[1] = '0'
	enc[2] = 'x'
	hex.Encode(enc[3:], b)
	enc[len(enc)-1] = '"'
	return enc, nil
}

// UnmarshalJSON accepts a quoted hex string, with or without the 0x prefix.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid JSON string: %q", data)
	}
	data = data[1 : len(data)-1]
	if len(data) >= 2 && data[0] == '0' && (data[1] == 'x' || data[1] == 'X') {
		data = data[2:]
	}
	dec := make([]byte, hex.DecodedLen(len(data)))
	if _, err := hex.Decode(dec, data); err != nil {
		return err
	}
	*b = dec
	return nil
}

// HexStringToHexBytes converts a hex string to HexBytes. It panics on
// invalid input, so it is meant for hardcoded constants and tests.
func HexStringToHexBytes(s string) HexBytes {
	var b HexBytes
	if err := b.SetString(s); err != nil {
		panic(err)
	}
	return b
}
