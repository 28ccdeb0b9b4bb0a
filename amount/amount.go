// Package amount holds the signed 128-bit amount helpers shared by the message
// codec, the asset ledger and the forwarder.
//
// Go has no native int128 so amounts travel as *big.Int values that are
// checked against the i128 range at every boundary.
package amount

import (
	"errors"
	"math/big"
)

// Size is the byte length of a two's complement i128.
const Size = 16

var (
	// MaxI128 is 2^127 - 1.
	MaxI128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	// MinI128 is -2^127.
	MinI128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))

	two128 = new(big.Int).Lsh(big.NewInt(1), 128)
)

// ErrOutOfRange is returned when a value does not fit into an i128.
var ErrOutOfRange = errors.New("amount out of i128 range")

// Valid reports whether v fits into a signed 128-bit integer.
func Valid(v *big.Int) bool {
	return v != nil && v.Cmp(MinI128) >= 0 && v.Cmp(MaxI128) <= 0
}

// FromBytes interprets a 16-byte big-endian two's complement buffer as an
// i128. Shorter buffers are left padded with zeroes, longer ones keep only the
// trailing 16 bytes.
func FromBytes(b []byte) *big.Int {
	if len(b) > Size {
		b = b[len(b)-Size:]
	}
	v := new(big.Int).SetBytes(b)
	if len(b) == Size && b[0]&0x80 != 0 {
		v.Sub(v, two128)
	}
	return v
}

// Bytes encodes v as a 16-byte big-endian two's complement buffer.
func Bytes(v *big.Int) ([Size]byte, error) {
	var out [Size]byte
	if !Valid(v) {
		return out, ErrOutOfRange
	}
	u := new(big.Int).Set(v)
	if u.Sign() < 0 {
		u.Add(u, two128)
	}
	u.FillBytes(out[:])
	return out, nil
}

// Sub returns a - b without touching the operands. The difference must fit
// into an i128.
func Sub(a, b *big.Int) (*big.Int, error) {
	d := new(big.Int).Sub(a, b)
	if !Valid(d) {
		return nil, ErrOutOfRange
	}
	return d, nil
}
