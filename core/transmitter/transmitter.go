// Package transmitter implements a reference message transmitter: it decodes
// an inbound message, checks that the destination caller authorized the
// delivery and mints the message amount of its asset to the mint recipient.
//
// Attestations are accepted but not verified.
package transmitter

import (
	"errors"
	"fmt"

	"github.com/stellar-cctp/forwarder/address"
	"github.com/stellar-cctp/forwarder/core/token"
	"github.com/stellar-cctp/forwarder/core/vm"
	"github.com/stellar-cctp/forwarder/message"
)

// Exported contract functions.
const (
	FnReceiveMessage = "receive_message"
	FnAsset          = "asset"
)

// ErrReplay is returned when a message is delivered twice and replay
// protection is enabled.
var ErrReplay = errors.New("message already received")

var (
	keyAsset         = []byte("asset")
	keyRejectReplays = []byte("reject_replays")
	seenPfx          = []byte("seen")
)

// Mock is the transmitter contract. Deploy it with (asset address.Address,
// rejectReplays bool); it must then be made the asset admin.
var Mock vm.Contract = mock{}

type mock struct{}

func (mock) Invoke(env *vm.Env, fn string, args []interface{}) ([]interface{}, error) {
	switch fn {
	case vm.ConstructorFunction:
		if err := vm.ExpectArgs(fn, args, 2); err != nil {
			return nil, err
		}
		asset, err := vm.Arg[address.Address](args, 0)
		if err != nil {
			return nil, err
		}
		reject, err := vm.Arg[bool](args, 1)
		if err != nil {
			return nil, err
		}
		if err := env.Storage().Set(keyAsset, asset); err != nil {
			return nil, err
		}
		return nil, env.Storage().Set(keyRejectReplays, reject)
	case FnAsset:
		asset, err := assetOf(env)
		if err != nil {
			return nil, err
		}
		return []interface{}{asset}, nil
	case FnReceiveMessage:
		return nil, receive(env, args)
	}
	return nil, vm.Unknown(fn)
}

func assetOf(env *vm.Env) (address.Address, error) {
	var asset address.Address
	ok, err := env.Storage().Get(keyAsset, &asset)
	if err != nil {
		return address.Address{}, err
	}
	if !ok {
		return address.Address{}, errors.New("transmitter has no asset")
	}
	return asset, nil
}

// receive handles receive_message(message[, attestation]).
func receive(env *vm.Env, args []interface{}) error {
	if len(args) != 1 && len(args) != 2 {
		return fmt.Errorf("%w: %s takes 1 or 2 arguments, got %d", vm.ErrBadArgument, FnReceiveMessage, len(args))
	}
	raw, err := vm.Arg[[]byte](args, 0)
	if err != nil {
		return err
	}
	if len(args) == 2 {
		if _, err := vm.Arg[[]byte](args, 1); err != nil {
			return err
		}
	}
	msg, err := message.Decode(raw)
	if err != nil {
		return err
	}
	if err := env.RequireAuth(msg.DestinationCaller); err != nil {
		return err
	}

	hash := message.Hash(raw)
	var reject bool
	if _, err := env.Storage().Get(keyRejectReplays, &reject); err != nil {
		return err
	}
	if reject {
		seen := vm.StorageKey(seenPfx, hash.Bytes())
		dup, err := env.Storage().Has(seen)
		if err != nil {
			return err
		}
		if dup {
			return fmt.Errorf("%w: %s", ErrReplay, hash.TerminalString())
		}
		if err := env.Storage().Set(seen, true); err != nil {
			return err
		}
	}

	asset, err := assetOf(env)
	if err != nil {
		return err
	}
	mint := token.MintInvocation(asset, msg.Body.MintRecipient, msg.Body.Amount)
	if _, err := env.AuthorizeAsCurrentContract(mint); err != nil {
		return err
	}
	if _, err := env.Call(mint.Contract, mint.Function, mint.Args...); err != nil {
		return err
	}
	env.Logger().Debug("Received message", "hash", hash, "mint_recipient", msg.Body.MintRecipient.TerminalString(), "amount", msg.Body.Amount)
	env.Emit([]interface{}{"message_received", msg.DestinationCaller}, map[string]interface{}{
		"hash":   hash,
		"amount": msg.Body.Amount,
	})
	return nil
}
