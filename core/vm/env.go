package vm

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stellar-cctp/forwarder/address"
	"github.com/stellar-cctp/forwarder/core/state"
	"github.com/stellar-cctp/forwarder/tracing"
)

// MaxCallDepth bounds nested contract calls within one invocation.
const MaxCallDepth = 32

type frame struct {
	contract address.Address
	fn       string
	digest   common.Hash
	grants   []*Grant
}

// Env is the execution environment handed to contract code. It is only valid
// for the duration of one top-level invocation and is not safe for
// concurrent use.
type Env struct {
	host    *Host
	sdb     *state.StateDB
	signers mapset.Set[address.Address]
	frames  []*frame
	events  []Event
}

func newEnv(h *Host, sdb *state.StateDB, signers []address.Address) *Env {
	return &Env{
		host:    h,
		sdb:     sdb,
		signers: mapset.NewThreadUnsafeSet(signers...),
	}
}

func (e *Env) top() *frame {
	return e.frames[len(e.frames)-1]
}

// CurrentContractAddress is the contract whose code is executing.
func (e *Env) CurrentContractAddress() address.Address {
	return e.top().contract
}

// Depth is 0 for the top-level invocation.
func (e *Env) Depth() int { return len(e.frames) - 1 }

// Storage returns the storage of the current contract.
func (e *Env) Storage() Storage {
	return Storage{sdb: e.sdb, contract: e.CurrentContractAddress()}
}

// Hooks returns the host's tracing hooks, or nil.
func (e *Env) Hooks() *tracing.Hooks { return e.host.hooks }

// Logger returns a logger tagged with the current contract.
func (e *Env) Logger() log.Logger {
	return e.host.logger.With("contract", e.CurrentContractAddress().TerminalString())
}

// Emit records an event from the current contract.
func (e *Env) Emit(topics []interface{}, data map[string]interface{}) {
	e.events = append(e.events, Event{Contract: e.CurrentContractAddress(), Topics: topics, Data: data})
}

// Call invokes fn on contract as a sub-invocation of the current frame.
func (e *Env) Call(contract address.Address, fn string, args ...interface{}) ([]interface{}, error) {
	if len(e.frames) >= MaxCallDepth {
		return nil, fmt.Errorf("%w: %d", ErrCallDepth, MaxCallDepth)
	}
	c, ok := e.host.registry.Lookup(contract)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, contract)
	}
	digest, err := Invocation{Contract: contract, Function: fn, Args: args}.Digest()
	if err != nil {
		return nil, err
	}
	e.frames = append(e.frames, &frame{contract: contract, fn: fn, digest: digest})
	depth := e.Depth()

	hooks := e.host.hooks
	if hooks != nil && hooks.OnEnter != nil {
		hooks.OnEnter(depth, contract, fn)
	}
	ret, err := c.Invoke(e, fn, args)
	if hooks != nil && hooks.OnExit != nil {
		hooks.OnExit(depth, contract, fn, err)
	}
	e.frames = e.frames[:len(e.frames)-1]
	return ret, err
}

// AuthorizeAsCurrentContract records a single-use grant from the current
// contract for exactly inv. The grant can only be consumed by a direct
// sub-invocation of the current frame.
func (e *Env) AuthorizeAsCurrentContract(inv Invocation) (*Grant, error) {
	g, err := newGrant(inv)
	if err != nil {
		return nil, err
	}
	f := e.top()
	f.grants = append(f.grants, g)
	log.Trace("Recorded authorization", "grant", g.ID, "by", f.contract.TerminalString(), "call", inv)
	return g, nil
}

// RequireAuth fails with ErrAuthorizationDenied unless addr authorized the
// current invocation. Accounts authorize by signing the transaction.
// Contracts authorize only through a prior AuthorizeAsCurrentContract grant
// in the direct caller's frame that matches this invocation exactly; being
// the caller is not enough on its own.
func (e *Env) RequireAuth(addr address.Address) error {
	cur := e.top()
	granted := e.checkAuth(addr, cur)

	if hooks := e.host.hooks; hooks != nil && hooks.OnAuth != nil {
		hooks.OnAuth(addr, cur.contract, cur.fn, granted)
	}
	if !granted {
		return fmt.Errorf("%w: %s for %s.%s", ErrAuthorizationDenied, addr, cur.contract.TerminalString(), cur.fn)
	}
	return nil
}

func (e *Env) checkAuth(addr address.Address, cur *frame) bool {
	if addr.IsAccount() {
		return e.signers.Contains(addr)
	}
	if len(e.frames) < 2 {
		return false
	}
	parent := e.frames[len(e.frames)-2]
	if parent.contract != addr {
		return false
	}
	for _, g := range parent.grants {
		if !g.used && g.digest == cur.digest {
			g.used = true
			return true
		}
	}
	return false
}
