// Package recipient resolves the final payee encoded in a message's hook
// data.
package recipient

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/stellar-cctp/forwarder/address"
)

// ErrInvalidEncoding is returned when hook data does not decode under the
// selected mode.
var ErrInvalidEncoding = errors.New("invalid recipient encoding")

// Mode selects how hook data is interpreted.
type Mode uint8

const (
	// ModeString reads hook data as strkey text (G…, C… or M…).
	ModeString Mode = iota
	// ModeSerialized reads hook data as an XDR ScVal address: an account, a
	// contract or a muxed account.
	ModeSerialized
)

func (m Mode) String() string {
	switch m {
	case ModeString:
		return "string"
	case ModeSerialized:
		return "serialized"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// Kind tags the Recipient union.
type Kind uint8

const (
	KindPlain Kind = iota
	KindExtended
)

// Recipient is either a plain address or a muxed (extended) account.
type Recipient struct {
	kind  Kind
	addr  address.Address
	muxed address.MuxedAddress
}

// Plain builds a recipient for a plain account or contract address.
func Plain(a address.Address) Recipient {
	return Recipient{kind: KindPlain, addr: a}
}

// Extended builds a recipient for a muxed account.
func Extended(m address.MuxedAddress) Recipient {
	return Recipient{kind: KindExtended, addr: m.Account, muxed: m}
}

// Kind reports which arm of the union r holds.
func (r Recipient) Kind() Kind { return r.kind }

// Address returns the holder whose balance is credited. For an extended
// recipient this is the base account.
func (r Recipient) Address() address.Address { return r.addr }

// Muxed returns the extended address and true for extended recipients.
func (r Recipient) Muxed() (address.MuxedAddress, bool) {
	return r.muxed, r.kind == KindExtended
}

// Bytes is a canonical, kind-prefixed binary form used when comparing
// authorized call arguments.
func (r Recipient) Bytes() []byte {
	if r.kind == KindExtended {
		return append([]byte{byte(KindExtended)}, r.muxed.Bytes()...)
	}
	return append([]byte{byte(KindPlain)}, r.addr.Bytes()...)
}

func (r Recipient) String() string {
	if r.kind == KindExtended {
		return r.muxed.String()
	}
	return r.addr.String()
}

// Resolve decodes hook data under mode. Empty hook data never resolves.
func Resolve(hookData []byte, mode Mode) (Recipient, error) {
	if len(hookData) == 0 {
		return Recipient{}, fmt.Errorf("%w: empty hook data", ErrInvalidEncoding)
	}
	switch mode {
	case ModeString:
		return resolveString(hookData)
	case ModeSerialized:
		return resolveSerialized(hookData)
	}
	return Recipient{}, fmt.Errorf("%w: unknown mode %s", ErrInvalidEncoding, mode)
}

// Infer picks the mode structurally: anything that is strkey-shaped text is
// read as a string, everything else as a serialized value.
func Infer(hookData []byte) (Recipient, Mode, error) {
	mode := InferMode(hookData)
	r, err := Resolve(hookData, mode)
	return r, mode, err
}

// InferMode returns ModeString when hook data looks like a strkey.
func InferMode(hookData []byte) Mode {
	if n := len(hookData); n != address.StrkeyLength && n != address.MuxedStrkeyLength {
		return ModeSerialized
	}
	if !utf8.Valid(hookData) {
		return ModeSerialized
	}
	for _, c := range hookData {
		if !(c >= 'A' && c <= 'Z' || c >= '2' && c <= '7') {
			return ModeSerialized
		}
	}
	return ModeString
}

func resolveString(hookData []byte) (Recipient, error) {
	s := string(hookData)
	if address.IsMuxed(s) {
		m, err := address.ParseMuxed(s)
		if err != nil {
			return Recipient{}, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
		}
		return Extended(m), nil
	}
	a, err := address.Parse(s)
	if err != nil {
		return Recipient{}, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return Plain(a), nil
}

func resolveSerialized(hookData []byte) (Recipient, error) {
	sc, err := address.UnmarshalScVal(hookData)
	if err != nil {
		return Recipient{}, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if sc.Type == address.ScAddressTypeMuxedAccount {
		return Extended(sc.Muxed), nil
	}
	return Plain(sc.Address), nil
}

// StringHookData renders r as strkey hook data.
func StringHookData(r Recipient) []byte {
	return []byte(r.String())
}

// SerializedHookData renders r as an XDR ScVal address.
func SerializedHookData(r Recipient) []byte {
	if m, ok := r.Muxed(); ok {
		return address.MarshalMuxedScVal(m)
	}
	return address.MarshalScVal(r.Address())
}
