package types

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// HexBytes is a byte slice that marshals to and from a JSON hex string.
// The "0x" prefix is accepted on input and omitted on output.
type HexBytes []byte

func (b HexBytes) String() string {
	return hex.EncodeToString(b)
}

func (b HexBytes) MarshalJSON() ([]byte, error) {
	return []byte(`"` + hex.EncodeToString(b) + `"`), nil
}

func (b *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid hex string %q", data)
	}
	s := strings.TrimPrefix(string(data[1:len(data)-1]), "0x")
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// BigInt wraps big.Int to marshal as a JSON decimal string, which is how
// field elements travel on the wire (snarkjs convention).
type BigInt big.Int

// NewBigInt returns a BigInt wrapping a copy of v. A nil v yields zero.
func NewBigInt(v *big.Int) *BigInt {
	if v == nil {
		return (*BigInt)(new(big.Int))
	}
	return (*BigInt)(new(big.Int).Set(v))
}

// MathBigInt converts b to the standard math/big type.
func (b *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(b)
}

func (b *BigInt) String() string {
	return (*big.Int)(b).String()
}

func (b *BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + (*big.Int)(b).String() + `"`), nil
}

func (b *BigInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("invalid big integer %q", s)
	}
	*b = BigInt(*v)
	return nil
}
