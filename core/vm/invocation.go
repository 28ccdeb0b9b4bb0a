package vm

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/uuid"
	"github.com/stellar-cctp/forwarder/address"
	"github.com/stellar-cctp/forwarder/amount"
	"github.com/stellar-cctp/forwarder/recipient"
)

// Invocation describes one contract call: the target, the function name and
// the exact argument values. It doubles as the description of a call a
// contract authorizes on its own behalf.
//
// Supported argument types are []byte, string, bool, uint64, *big.Int (i128),
// address.Address and recipient.Recipient.
type Invocation struct {
	Contract address.Address
	Function string
	Args     []interface{}
}

// NewInvocation is a convenience constructor.
func NewInvocation(contract address.Address, fn string, args ...interface{}) Invocation {
	return Invocation{Contract: contract, Function: fn, Args: args}
}

const (
	argBytes uint8 = iota + 1
	argString
	argBool
	argUint64
	argI128
	argAddress
	argRecipient
)

type encodedArg struct {
	Tag  uint8
	Data []byte
}

type encodedInvocation struct {
	Contract []byte
	Function string
	Args     []encodedArg
}

func encodeArg(v interface{}) (encodedArg, error) {
	switch x := v.(type) {
	case []byte:
		return encodedArg{argBytes, x}, nil
	case string:
		return encodedArg{argString, []byte(x)}, nil
	case bool:
		if x {
			return encodedArg{argBool, []byte{1}}, nil
		}
		return encodedArg{argBool, []byte{0}}, nil
	case uint64:
		return encodedArg{argUint64, binary.BigEndian.AppendUint64(nil, x)}, nil
	case *big.Int:
		b, err := amount.Bytes(x)
		if err != nil {
			return encodedArg{}, fmt.Errorf("%w: %v", ErrBadArgument, err)
		}
		return encodedArg{argI128, b[:]}, nil
	case address.Address:
		return encodedArg{argAddress, x.Bytes()}, nil
	case recipient.Recipient:
		return encodedArg{argRecipient, x.Bytes()}, nil
	}
	return encodedArg{}, fmt.Errorf("%w: unsupported type %T", ErrBadArgument, v)
}

// Digest is the keccak256 hash of the canonical RLP encoding of the
// invocation. Two invocations match iff their digests are equal.
func (inv Invocation) Digest() (common.Hash, error) {
	enc := encodedInvocation{
		Contract: inv.Contract.Bytes(),
		Function: inv.Function,
		Args:     make([]encodedArg, len(inv.Args)),
	}
	for i, a := range inv.Args {
		e, err := encodeArg(a)
		if err != nil {
			return common.Hash{}, fmt.Errorf("arg %d: %w", i, err)
		}
		enc.Args[i] = e
	}
	raw, err := rlp.EncodeToBytes(&enc)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(raw), nil
}

func (inv Invocation) String() string {
	args := make([]string, len(inv.Args))
	for i, a := range inv.Args {
		switch x := a.(type) {
		case []byte:
			args[i] = fmt.Sprintf("bytes[%d]", len(x))
		default:
			args[i] = fmt.Sprint(x)
		}
	}
	return fmt.Sprintf("%s.%s(%s)", inv.Contract.TerminalString(), inv.Function, strings.Join(args, ", "))
}

// Grant is a single-use permission, issued by a contract for itself, that
// authorizes exactly one direct sub-invocation matching Invocation. Grants
// live only as long as the frame that created them.
type Grant struct {
	ID         uuid.UUID
	Invocation Invocation

	digest common.Hash
	used   bool
}

func newGrant(inv Invocation) (*Grant, error) {
	digest, err := inv.Digest()
	if err != nil {
		return nil, err
	}
	return &Grant{ID: uuid.New(), Invocation: inv, digest: digest}, nil
}

// Used reports whether the grant has been consumed.
func (g *Grant) Used() bool { return g.used }
