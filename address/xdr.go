package address

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	xdr3 "github.com/stellar/go-xdr/xdr3"
	"github.com/stellar/go/xdr"
)

// ScAddressType mirrors the SCAddressType XDR union arm.
type ScAddressType int32

const (
	ScAddressTypeAccount      = ScAddressType(xdr.ScAddressTypeScAddressTypeAccount)
	ScAddressTypeContract     = ScAddressType(xdr.ScAddressTypeScAddressTypeContract)
	ScAddressTypeMuxedAccount = ScAddressType(xdr.ScAddressTypeScAddressTypeMuxedAccount)
)

func (t ScAddressType) String() string {
	switch t {
	case ScAddressTypeAccount:
		return "account"
	case ScAddressTypeContract:
		return "contract"
	case ScAddressTypeMuxedAccount:
		return "muxed_account"
	}
	return fmt.Sprintf("sc_address_type(%d)", int32(t))
}

// ErrInvalidXDR is returned when bytes are not a well-formed ScVal address.
var ErrInvalidXDR = errors.New("invalid xdr")

// ScAddress is a decoded SCV_ADDRESS value. Muxed is only meaningful when
// Type is ScAddressTypeMuxedAccount, Address otherwise.
type ScAddress struct {
	Type    ScAddressType
	Address Address
	Muxed   MuxedAddress
}

// MarshalScVal encodes a plain address as an XDR ScVal.
func MarshalScVal(a Address) []byte {
	if a.IsContract() {
		id := xdr.ContractId(a.Key)
		return marshalScAddress(xdr.ScAddress{
			Type:       xdr.ScAddressTypeScAddressTypeContract,
			ContractId: &id,
		})
	}
	key := xdr.Uint256(a.Key)
	return marshalScAddress(xdr.ScAddress{
		Type: xdr.ScAddressTypeScAddressTypeAccount,
		AccountId: &xdr.AccountId{
			Type:    xdr.PublicKeyTypePublicKeyTypeEd25519,
			Ed25519: &key,
		},
	})
}

// MarshalMuxedScVal encodes a muxed account as an XDR ScVal.
func MarshalMuxedScVal(m MuxedAddress) []byte {
	return marshalScAddress(xdr.ScAddress{
		Type: xdr.ScAddressTypeScAddressTypeMuxedAccount,
		MuxedAccount: &xdr.MuxedEd25519Account{
			Id:      xdr.Uint64(m.ID),
			Ed25519: xdr.Uint256(m.Account.Key),
		},
	})
}

func marshalScAddress(sc xdr.ScAddress) []byte {
	val := xdr.ScVal{Type: xdr.ScValTypeScvAddress, Address: &sc}
	b, err := val.MarshalBinary()
	if err != nil {
		// Every arm built above is fully populated.
		panic(fmt.Sprintf("address: marshal scval: %v", err))
	}
	return b
}

// UnmarshalScVal decodes an XDR ScVal that must hold an account, contract or
// muxed account address. Trailing bytes are rejected.
func UnmarshalScVal(b []byte) (ScAddress, error) {
	opts := xdr3.DefaultDecodeOptions
	opts.MaxInputLen = len(b)

	var val xdr.ScVal
	n, err := xdr.UnmarshalWithOptions(bytes.NewReader(b), &val, opts)
	if err != nil {
		return ScAddress{}, fmt.Errorf("%w: %v", ErrInvalidXDR, err)
	}
	if n != len(b) {
		return ScAddress{}, fmt.Errorf("%w: %d trailing bytes", ErrInvalidXDR, len(b)-n)
	}
	sc, ok := val.GetAddress()
	if !ok {
		return ScAddress{}, fmt.Errorf("%w: scval type %s is not an address", ErrInvalidXDR, val.Type)
	}
	switch sc.Type {
	case xdr.ScAddressTypeScAddressTypeAccount:
		aid := sc.MustAccountId()
		key, ok := aid.GetEd25519()
		if !ok {
			return ScAddress{}, fmt.Errorf("%w: public key type %d", ErrInvalidXDR, aid.Type)
		}
		return ScAddress{Type: ScAddressTypeAccount, Address: AccountAddress(common.Hash(key))}, nil
	case xdr.ScAddressTypeScAddressTypeContract:
		id := sc.MustContractId()
		return ScAddress{Type: ScAddressTypeContract, Address: ContractAddress(common.Hash(id))}, nil
	case xdr.ScAddressTypeScAddressTypeMuxedAccount:
		mux := sc.MustMuxedAccount()
		account := AccountAddress(common.Hash(mux.Ed25519))
		return ScAddress{
			Type:    ScAddressTypeMuxedAccount,
			Address: account,
			Muxed:   MuxedAddress{Account: account, ID: uint64(mux.Id)},
		}, nil
	}
	return ScAddress{}, fmt.Errorf("%w: unsupported address type %s", ErrInvalidXDR, ScAddressType(sc.Type))
}
