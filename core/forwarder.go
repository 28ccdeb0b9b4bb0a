// Package core implements the token forwarder: it has the transmitter mint a
// bridged amount to itself, verifies the minted delta against the message and
// pays the delta out to the recipient named in the message hook data.
package core

import (
	"fmt"
	"math/big"
	"time"

	"github.com/stellar-cctp/forwarder/address"
	"github.com/stellar-cctp/forwarder/amount"
	"github.com/stellar-cctp/forwarder/core/vm"
	"github.com/stellar-cctp/forwarder/message"
	"github.com/stellar-cctp/forwarder/recipient"
)

// Exported contract functions.
const (
	FnInitialize  = "initialize"
	FnForward     = "forward"
	FnAsset       = "asset"
	FnTransmitter = "transmitter"
)

var (
	keyAdmin       = []byte("Admin")
	keyAsset       = []byte("Asset")
	keyTransmitter = []byte("Transmitter")
)

// Forwarder is the forwarder contract. Its variant is fixed for the lifetime
// of the code; the asset and transmitter addresses live in storage. It is
// constructed with (asset, transmitter), or with (admin) followed by an
// initialize call that admin signs.
type Forwarder struct {
	variant Variant
}

// NewForwarder returns forwarder code for v.
func NewForwarder(v Variant) *Forwarder {
	return &Forwarder{variant: v}
}

// settings is the immutable per-deployment configuration.
type settings struct {
	asset       Ledger
	transmitter Transmitter
}

func loadSettings(env *vm.Env) (*settings, error) {
	var asset, tr address.Address
	ok, err := env.Storage().Get(keyAsset, &asset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	if _, err := env.Storage().Get(keyTransmitter, &tr); err != nil {
		return nil, err
	}
	return &settings{asset: NewLedger(asset), transmitter: NewTransmitter(tr)}, nil
}

func (f *Forwarder) Invoke(env *vm.Env, fn string, args []interface{}) ([]interface{}, error) {
	switch fn {
	case vm.ConstructorFunction:
		// A lone admin argument defers the wiring to initialize, which only
		// that admin may call.
		if len(args) == 1 {
			return nil, f.setAdmin(env, args)
		}
		return nil, f.initialize(env, args)
	case FnInitialize:
		if err := f.requireAdmin(env); err != nil {
			return nil, err
		}
		return nil, f.initialize(env, args)
	case FnAsset:
		s, err := loadSettings(env)
		if err != nil {
			return nil, err
		}
		return []interface{}{s.asset.Address()}, nil
	case FnTransmitter:
		s, err := loadSettings(env)
		if err != nil {
			return nil, err
		}
		return []interface{}{s.transmitter.Address()}, nil
	case FnForward:
		req, err := f.parseForward(args)
		if err != nil {
			return nil, err
		}
		amt, to, err := f.forward(env, req)
		if err != nil {
			return nil, err
		}
		return []interface{}{amt, to}, nil
	}
	return nil, vm.Unknown(fn)
}

func (f *Forwarder) setAdmin(env *vm.Env, args []interface{}) error {
	admin, err := vm.Arg[address.Address](args, 0)
	if err != nil {
		return err
	}
	return env.Storage().Set(keyAdmin, admin)
}

// requireAdmin checks the pending admin's authorization. The admin is
// dropped once the forwarder is wired.
func (f *Forwarder) requireAdmin(env *vm.Env) error {
	var admin address.Address
	ok, err := env.Storage().Get(keyAdmin, &admin)
	if err != nil {
		return err
	}
	if ok {
		return env.RequireAuth(admin)
	}
	done, err := env.Storage().Has(keyAsset)
	if err != nil {
		return err
	}
	if done {
		return ErrAlreadyInitialized
	}
	return fmt.Errorf("%w: forwarder has no admin", vm.ErrAuthorizationDenied)
}

func (f *Forwarder) initialize(env *vm.Env, args []interface{}) error {
	if err := vm.ExpectArgs(FnInitialize, args, 2); err != nil {
		return err
	}
	asset, err := vm.Arg[address.Address](args, 0)
	if err != nil {
		return err
	}
	tr, err := vm.Arg[address.Address](args, 1)
	if err != nil {
		return err
	}
	done, err := env.Storage().Has(keyAsset)
	if err != nil {
		return err
	}
	if done {
		return ErrAlreadyInitialized
	}
	if err := env.Storage().Set(keyAsset, asset); err != nil {
		return err
	}
	if err := env.Storage().Set(keyTransmitter, tr); err != nil {
		return err
	}
	env.Storage().Remove(keyAdmin)
	env.Logger().Info("Forwarder initialized", "variant", f.variant, "asset", asset, "transmitter", tr)
	return nil
}

type forwardRequest struct {
	message     []byte
	attestation []byte
	xdr         bool
}

// parseForward checks the argument list against the variant:
// forward(message[, attestation][, xdr_hook_data]).
func (f *Forwarder) parseForward(args []interface{}) (*forwardRequest, error) {
	if err := vm.ExpectArgs(FnForward, args, f.variant.arity()); err != nil {
		return nil, err
	}
	var (
		req = new(forwardRequest)
		err error
		i   int
	)
	if req.message, err = vm.Arg[[]byte](args, i); err != nil {
		return nil, err
	}
	i++
	if f.variant.Attestation {
		if req.attestation, err = vm.Arg[[]byte](args, i); err != nil {
			return nil, err
		}
		// An attestation is always passed on, even when empty.
		if req.attestation == nil {
			req.attestation = []byte{}
		}
		i++
	}
	if f.variant.Selection == SelectFlag {
		if req.xdr, err = vm.Arg[bool](args, i); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func (f *Forwarder) forward(env *vm.Env, req *forwardRequest) (*big.Int, recipient.Recipient, error) {
	start := time.Now()
	s, err := loadSettings(env)
	if err != nil {
		return nil, recipient.Recipient{}, err
	}
	self := env.CurrentContractAddress()
	logger := env.Logger().With("msg", message.Hash(req.message).TerminalString())

	before, err := s.asset.Balance(env, self)
	if err != nil {
		return nil, recipient.Recipient{}, err
	}
	if err := s.transmitter.ReceiveMessage(env, req.message, req.attestation); err != nil {
		return nil, recipient.Recipient{}, err
	}
	after, err := s.asset.Balance(env, self)
	if err != nil {
		return nil, recipient.Recipient{}, err
	}
	minted, err := amount.Sub(after, before)
	if err != nil {
		return nil, recipient.Recipient{}, fmt.Errorf("%w: balance moved from %v to %v", ErrAmountMismatch, before, after)
	}

	msg, err := message.Decode(req.message)
	if err != nil {
		return nil, recipient.Recipient{}, err
	}
	if msg.Body.Truncated() {
		logger.Warn("Message amount exceeds 128 bits, high bits ignored", "raw", msg.Body.RawAmount.Hex(), "amount", msg.Body.Amount)
	}
	if minted.Cmp(msg.Body.Amount) != 0 {
		forwardMismatchMeter.Mark(1)
		return nil, recipient.Recipient{}, fmt.Errorf("%w: minted %v, message declares %v", ErrAmountMismatch, minted, msg.Body.Amount)
	}

	to, mode, err := f.variant.resolve(msg.Body.HookData, req.xdr)
	if err != nil {
		return nil, recipient.Recipient{}, err
	}
	if err := s.asset.Transfer(env, to, minted); err != nil {
		return nil, recipient.Recipient{}, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	forwardMeter.Mark(1)
	if minted.IsInt64() {
		forwardVolumeCounter.Inc(minted.Int64())
	}
	forwardTimer.UpdateSince(start)
	env.Emit([]interface{}{FnForward, to.Address()}, map[string]interface{}{
		"amount": new(big.Int).Set(minted),
		"mode":   mode.String(),
	})
	logger.Debug("Forwarded", "amount", minted, "recipient", to, "mode", mode)
	return minted, to, nil
}
