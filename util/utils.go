package util

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// RandomBytes generates a random byte slice of length n.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	return b
}

// Random32 generates a random 32-byte array.
func Random32() [32]byte {
	var bytes [32]byte
	copy(bytes[:], RandomBytes(32))
	return bytes
}

// RandomHex generates a random hex string of length n.
func RandomHex(n int) string {
	return fmt.Sprintf("%x", RandomBytes(n))
}

// TrimHex trims the '0x' prefix from a hex string.
func TrimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// scalarField is the bn254 scalar field modulus, the field all public
// signals (roots, nullifiers, commitments, scopes) live in.
var scalarField = fr.Modulus()

// BigToFF reduces the provided big.Int into the bn254 scalar field using
// the Euclidean modulus.
func BigToFF(iv *big.Int) *big.Int {
	z := big.NewInt(0)
	if c := iv.Cmp(scalarField); c == 0 {
		return z
	} else if c != 1 && iv.Cmp(z) != -1 {
		return iv
	}
	return z.Mod(iv, scalarField)
}

// InField reports whether v is a canonical bn254 scalar field element.
func InField(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(scalarField) < 0
}

// BigToBytes32 returns the 32-byte big-endian encoding of v, which must fit.
func BigToBytes32(v *big.Int) []byte {
	var out [32]byte
	v.FillBytes(out[:])
	return out[:]
}
