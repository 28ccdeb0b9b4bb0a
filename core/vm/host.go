// Package vm is a small contract host: it dispatches invocations to native
// contracts, tracks the call stack and authorization grants, and makes every
// top-level invocation atomic over a key-value store.
package vm

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stellar-cctp/forwarder/address"
	"github.com/stellar-cctp/forwarder/core/state"
	"github.com/stellar-cctp/forwarder/tracing"
)

// Tx is a top-level invocation submitted to the host.
type Tx struct {
	// Signers are the accounts that authorized the transaction.
	Signers  []address.Address
	Contract address.Address
	Function string
	Args     []interface{}
}

// Host executes transactions against committed state. Invocations are
// serialized; each one either commits all of its writes or none.
type Host struct {
	mu       sync.Mutex
	db       ethdb.KeyValueStore
	registry *Registry
	hooks    *tracing.Hooks
	logger   log.Logger
}

// Option configures a Host.
type Option func(*Host)

// WithHooks installs tracing hooks.
func WithHooks(hooks *tracing.Hooks) Option {
	return func(h *Host) { h.hooks = hooks }
}

// WithLogger replaces the root logger.
func WithLogger(l log.Logger) Option {
	return func(h *Host) { h.logger = l }
}

// NewHost creates a host over db.
func NewHost(db ethdb.KeyValueStore, opts ...Option) *Host {
	h := &Host{
		db:       db,
		registry: NewRegistry(),
		logger:   log.Root(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register binds c to addr without running a constructor.
func (h *Host) Register(addr address.Address, c Contract) error {
	return h.registry.Register(addr, c)
}

// Deploy derives a contract address from deployer and salt, binds c to it
// and runs the constructor with args in a transaction signed by deployer.
// A nil salt picks a fresh one. If the constructor fails the binding is
// released.
func (h *Host) Deploy(deployer address.Address, salt []byte, c Contract, args ...interface{}) (address.Address, error) {
	if salt == nil {
		salt = h.registry.nextSalt()
	}
	addr := address.ContractAddress(crypto.Keccak256Hash(deployer.Bytes(), salt))
	if err := h.registry.Register(addr, c); err != nil {
		return address.Address{}, err
	}
	_, err := h.Invoke(Tx{
		Signers:  []address.Address{deployer},
		Contract: addr,
		Function: ConstructorFunction,
		Args:     args,
	})
	if err != nil {
		h.registry.Release(addr)
		return address.Address{}, fmt.Errorf("constructor of %s: %w", addr, err)
	}
	h.logger.Debug("Deployed contract", "address", addr, "deployer", deployer.TerminalString())
	return addr, nil
}

// Invoke executes tx and commits its effects on success.
func (h *Host) Invoke(tx Tx) (*Receipt, error) {
	invokeMeter.Mark(1)
	return h.execute(tx, true)
}

// Simulate executes tx and discards its effects, successful or not.
func (h *Host) Simulate(tx Tx) (*Receipt, error) {
	simulationsMeter.Mark(1)
	return h.execute(tx, false)
}

func (h *Host) execute(tx Tx, commit bool) (receipt *Receipt, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sdb := state.New(h.db)
	env := newEnv(h, sdb, tx.Signers)

	defer func() {
		if r := recover(); r != nil {
			panicCounter.Inc(1)
			sdb.Discard()
			receipt, err = nil, fmt.Errorf("%w: %v", ErrContractPanic, r)
			h.logger.Error("Contract panicked", "contract", tx.Contract, "fn", tx.Function, "err", err)
		}
	}()

	ret, err := env.Call(tx.Contract, tx.Function, tx.Args...)
	if err != nil {
		sdb.Discard()
		abortMeter.Mark(1)
		if errors.Is(err, ErrAuthorizationDenied) {
			authDeniedMeter.Mark(1)
		}
		h.logger.Debug("Invocation aborted", "contract", tx.Contract.TerminalString(), "fn", tx.Function, "err", err)
		return nil, err
	}
	if !commit {
		sdb.Discard()
		return &Receipt{Return: ret, Events: env.events}, nil
	}
	if !sdb.HasPending() {
		return &Receipt{Return: ret, Events: env.events, Committed: true}, nil
	}
	start := time.Now()
	if err := sdb.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	commitTimer.UpdateSince(start)
	return &Receipt{Return: ret, Events: env.events, Committed: true}, nil
}
