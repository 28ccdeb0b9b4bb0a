package core

import (
	"math/big"

	"github.com/stellar-cctp/forwarder/address"
	"github.com/stellar-cctp/forwarder/core/token"
	"github.com/stellar-cctp/forwarder/core/transmitter"
	"github.com/stellar-cctp/forwarder/core/vm"
	"github.com/stellar-cctp/forwarder/recipient"
)

// Transmitter is the message transmitter as the forwarder drives it. The
// forwarder never talks to the transmitter contract directly so that the
// authorization it hands out stays in one place.
type Transmitter interface {
	// Address returns the transmitter contract address.
	Address() address.Address

	// ReceiveMessage authorizes, as the calling contract, exactly one
	// receive_message(msg[, attestation]) call and performs it.
	ReceiveMessage(env *vm.Env, msg, attestation []byte) error
}

// Ledger is the asset contract as the forwarder drives it.
type Ledger interface {
	Address() address.Address
	Balance(env *vm.Env, holder address.Address) (*big.Int, error)

	// Transfer authorizes, as the calling contract, exactly one
	// transfer(self, to, amt) call and performs it.
	Transfer(env *vm.Env, to recipient.Recipient, amt *big.Int) error
}

// NewTransmitter returns the contract-backed Transmitter at addr.
func NewTransmitter(addr address.Address) Transmitter {
	return &contractTransmitter{addr: addr}
}

// NewLedger returns the contract-backed Ledger at addr.
func NewLedger(addr address.Address) Ledger {
	return &contractLedger{addr: addr}
}

// contractTransmitter bridges the transmitter contract to the Transmitter
// interface.
type contractTransmitter struct {
	addr address.Address
}

func (t *contractTransmitter) Address() address.Address { return t.addr }

func (t *contractTransmitter) ReceiveMessage(env *vm.Env, msg, attestation []byte) error {
	return authorizedCall(env, transmitter.ReceiveInvocation(t.addr, msg, attestation))
}

type contractLedger struct {
	addr address.Address
}

func (l *contractLedger) Address() address.Address { return l.addr }

func (l *contractLedger) Balance(env *vm.Env, holder address.Address) (*big.Int, error) {
	return token.Balance(env, l.addr, holder)
}

func (l *contractLedger) Transfer(env *vm.Env, to recipient.Recipient, amt *big.Int) error {
	return authorizedCall(env, token.TransferInvocation(l.addr, env.CurrentContractAddress(), to, amt))
}

func authorizedCall(env *vm.Env, inv vm.Invocation) error {
	g, err := env.AuthorizeAsCurrentContract(inv)
	if err != nil {
		return err
	}
	if _, err := env.Call(inv.Contract, inv.Function, inv.Args...); err != nil {
		return err
	}
	if !g.Used() {
		env.Logger().Warn("Callee did not require the granted authorization", "grant", g.ID, "call", inv)
	}
	return nil
}
