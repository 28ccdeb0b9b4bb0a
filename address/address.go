// Package address implements the two address flavours the forwarder deals
// with (ed25519 accounts and contracts), the muxed account extension, and
// their strkey and XDR renderings.
package address

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stellar/go/strkey"
)

// Kind distinguishes account addresses from contract addresses.
type Kind uint8

const (
	KindAccount Kind = iota
	KindContract
)

func (k Kind) String() string {
	switch k {
	case KindAccount:
		return "account"
	case KindContract:
		return "contract"
	}
	return "unknown"
}

// Address is a 32-byte key tagged with its kind. The zero value is the
// all-zero account and is never a valid holder.
type Address struct {
	Kind Kind
	Key  common.Hash
}

// AccountAddress wraps an ed25519 public key.
func AccountAddress(pub common.Hash) Address {
	return Address{Kind: KindAccount, Key: pub}
}

// ContractAddress wraps a contract id hash.
func ContractAddress(id common.Hash) Address {
	return Address{Kind: KindContract, Key: id}
}

// ContractFromBytes32 converts a 32-byte wire identifier into a contract
// address. Shorter or longer inputs are left padded or cropped from the left,
// following common.BytesToHash.
func ContractFromBytes32(b []byte) Address {
	return ContractAddress(common.BytesToHash(b))
}

// IsAccount reports whether a is an ed25519 account.
func (a Address) IsAccount() bool { return a.Kind == KindAccount }

// IsContract reports whether a is a contract.
func (a Address) IsContract() bool { return a.Kind == KindContract }

// Bytes returns the kind byte followed by the 32-byte key.
func (a Address) Bytes() []byte {
	out := make([]byte, 0, 1+common.HashLength)
	out = append(out, byte(a.Kind))
	return append(out, a.Key[:]...)
}

func (a Address) version() strkey.VersionByte {
	if a.Kind == KindContract {
		return strkey.VersionByteContract
	}
	return strkey.VersionByteAccountID
}

// String renders a as a G… or C… strkey.
func (a Address) String() string {
	s, err := strkey.Encode(a.version(), a.Key[:])
	if err != nil {
		return fmt.Sprintf("<invalid address %x>", a.Bytes())
	}
	return s
}

// TerminalString returns a shortened strkey for log output.
func (a Address) TerminalString() string {
	s := a.String()
	if len(s) <= 12 {
		return s
	}
	return s[:6] + "…" + s[len(s)-6:]
}

// Parse decodes a G… or C… strkey.
func Parse(s string) (Address, error) {
	version, payload, err := decodeStrkey(s)
	if err != nil {
		return Address{}, err
	}
	switch version {
	case strkey.VersionByteAccountID:
		return AccountAddress(common.BytesToHash(payload)), nil
	case strkey.VersionByteContract:
		return ContractAddress(common.BytesToHash(payload)), nil
	}
	return Address{}, fmt.Errorf("%w: %q is not an account or contract", ErrInvalidStrkey, s)
}

// MustParse is Parse for constants; it panics on malformed input.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// MuxedAddress is an account extended with a 64-bit sub-account id.
type MuxedAddress struct {
	Account Address
	ID      uint64
}

// NewMuxed extends an account address with id.
func NewMuxed(account Address, id uint64) (MuxedAddress, error) {
	if !account.IsAccount() {
		return MuxedAddress{}, fmt.Errorf("muxed base must be an account, have %s", account.Kind)
	}
	return MuxedAddress{Account: account, ID: id}, nil
}

// Bytes returns the account bytes followed by the big-endian id.
func (m MuxedAddress) Bytes() []byte {
	return binary.BigEndian.AppendUint64(m.Account.Bytes(), m.ID)
}

// String renders m as an M… strkey.
func (m MuxedAddress) String() string {
	payload := make([]byte, 0, muxedPayloadLen)
	payload = append(payload, m.Account.Key[:]...)
	payload = binary.BigEndian.AppendUint64(payload, m.ID)
	s, err := strkey.Encode(strkey.VersionByteMuxedAccount, payload)
	if err != nil {
		return fmt.Sprintf("<invalid muxed address %x>", m.Bytes())
	}
	return s
}

// ParseMuxed decodes an M… strkey.
func ParseMuxed(s string) (MuxedAddress, error) {
	if _, _, err := decodeStrkey(s); err != nil {
		return MuxedAddress{}, err
	}
	ma, err := strkey.DecodeMuxedAccount(s)
	if err != nil {
		return MuxedAddress{}, fmt.Errorf("%w: %q is not a muxed account", ErrInvalidStrkey, s)
	}
	key := ma.Ed25519()
	return MuxedAddress{Account: AccountAddress(common.Hash(key)), ID: ma.ID()}, nil
}
