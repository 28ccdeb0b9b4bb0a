// Package message implements the fixed-layout CCTP message codec.
//
// Layout (big-endian, 32-byte aligned):
//
//	offset  length  field
//	0       32      recipient
//	32      32      destination_caller
//	64      32      mint_recipient
//	96      32      amount (uint256, only the low 16 bytes are kept)
//	128     -       hook_data
package message

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stellar-cctp/forwarder/address"
	"github.com/stellar-cctp/forwarder/amount"
)

const (
	wordSize = 32

	recipientOffset         = 0
	destinationCallerOffset = 32
	mintRecipientOffset     = 64
	amountOffset            = 96

	// HeaderSize is the length of the fixed part of a message.
	HeaderSize = 128
)

// ErrMalformedMessage is returned when a buffer cannot be decoded.
var ErrMalformedMessage = errors.New("malformed message")

var lowMask = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)

// Message is a decoded CCTP message.
type Message struct {
	// Recipient is the contract the message targets. It is not validated
	// against the forwarder's own address.
	Recipient address.Address
	// DestinationCaller is the only identity allowed to trigger minting.
	DestinationCaller address.Address
	Body              Body
}

// Body is the burn message carried by a Message.
type Body struct {
	MintRecipient address.Address
	// Amount is the low 128 bits of the wire amount, read as a signed i128.
	Amount *big.Int
	// RawAmount is the full 256-bit wire word, kept so callers can tell
	// whether the narrowing in Amount discarded anything.
	RawAmount *uint256.Int
	HookData  []byte
}

// Truncated reports whether the high 128 bits of the wire amount were non-zero.
func (b *Body) Truncated() bool {
	return b.RawAmount != nil && !new(uint256.Int).Rsh(b.RawAmount, 128).IsZero()
}

// Decode parses a raw message. The returned hook data aliases b.
func Decode(b []byte) (*Message, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("%w: message too short (%d < %d bytes)", ErrMalformedMessage, len(b), HeaderSize)
	}
	raw := new(uint256.Int).SetBytes32(b[amountOffset : amountOffset+wordSize])

	return &Message{
		Recipient:         address.ContractFromBytes32(b[recipientOffset : recipientOffset+wordSize]),
		DestinationCaller: address.ContractFromBytes32(b[destinationCallerOffset : destinationCallerOffset+wordSize]),
		Body: Body{
			MintRecipient: address.ContractFromBytes32(b[mintRecipientOffset : mintRecipientOffset+wordSize]),
			Amount:        narrow(raw),
			RawAmount:     raw,
			HookData:      b[HeaderSize:],
		},
	}, nil
}

// narrow keeps the low 128 bits of v and reinterprets them as an i128.
func narrow(v *uint256.Int) *big.Int {
	low := new(uint256.Int).And(v, lowMask)
	b := low.Bytes32()
	return amount.FromBytes(b[wordSize-amount.Size:])
}

// Encode renders m in wire format. The amount is written as an i128 into the
// low 16 bytes of its word; RawAmount is ignored.
func Encode(m *Message) ([]byte, error) {
	if m.Recipient.IsAccount() || m.DestinationCaller.IsAccount() || m.Body.MintRecipient.IsAccount() {
		return nil, fmt.Errorf("%w: header addresses must be contracts", ErrMalformedMessage)
	}
	amt := m.Body.Amount
	if amt == nil {
		amt = new(big.Int)
	}
	word, err := amount.Bytes(amt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	out := make([]byte, HeaderSize, HeaderSize+len(m.Body.HookData))
	copy(out[recipientOffset:], m.Recipient.Key[:])
	copy(out[destinationCallerOffset:], m.DestinationCaller.Key[:])
	copy(out[mintRecipientOffset:], m.Body.MintRecipient.Key[:])
	copy(out[amountOffset+wordSize-amount.Size:], word[:])
	return append(out, m.Body.HookData...), nil
}

// Build assembles a message the way the off-chain tooling does: recipient,
// destination caller and mint recipient all point at the forwarder.
func Build(forwarder address.Address, amt *big.Int, hookData []byte) ([]byte, error) {
	return Encode(&Message{
		Recipient:         forwarder,
		DestinationCaller: forwarder,
		Body: Body{
			MintRecipient: forwarder,
			Amount:        amt,
			HookData:      hookData,
		},
	})
}

// Hash returns the keccak256 digest of a raw message.
func Hash(b []byte) common.Hash {
	return crypto.Keccak256Hash(b)
}
