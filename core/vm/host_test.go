package vm

import (
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/stellar-cctp/forwarder/address"
	"github.com/stellar-cctp/forwarder/tracing"
	"github.com/stretchr/testify/require"
)

var (
	alice    = address.AccountAddress(common.HexToHash("0xa11ce"))
	deployer = address.AccountAddress(common.HexToHash("0xdead"))
)

// counter keeps a single uint64 in storage.
var counter = ContractFunc(func(env *Env, fn string, args []interface{}) ([]interface{}, error) {
	key := []byte("n")
	var n uint64
	if _, err := env.Storage().Get(key, &n); err != nil {
		return nil, err
	}
	switch fn {
	case ConstructorFunction:
		return nil, nil
	case "get":
		return []interface{}{n}, nil
	case "incr":
		if err := env.Storage().Set(key, n+1); err != nil {
			return nil, err
		}
		return []interface{}{n + 1}, nil
	case "incr_then_fail":
		if err := env.Storage().Set(key, n+1); err != nil {
			return nil, err
		}
		return nil, errors.New("boom")
	case "incr_then_panic":
		if err := env.Storage().Set(key, n+1); err != nil {
			return nil, err
		}
		panic("boom")
	}
	return nil, Unknown(fn)
})

// guard requires authorization from its first argument.
var guard = ContractFunc(func(env *Env, fn string, args []interface{}) ([]interface{}, error) {
	if fn != "ping" {
		return nil, Unknown(fn)
	}
	who, err := Arg[address.Address](args, 0)
	if err != nil {
		return nil, err
	}
	if err := env.RequireAuth(who); err != nil {
		return nil, err
	}
	return []interface{}{args[1]}, nil
})

// relay forwards "ping" to a guard contract on behalf of who, optionally
// authorizing first. Args: target, who, grant value (or false for no grant),
// call values...
var relay = ContractFunc(func(env *Env, fn string, args []interface{}) ([]interface{}, error) {
	if fn == ConstructorFunction {
		return nil, nil
	}
	target, err := Arg[address.Address](args, 0)
	if err != nil {
		return nil, err
	}
	self := env.CurrentContractAddress()
	switch fn {
	case "relay":
		who, err := Arg[address.Address](args, 1)
		if err != nil {
			return nil, err
		}
		if g, ok := args[2].(uint64); ok {
			if _, err := env.AuthorizeAsCurrentContract(NewInvocation(target, "ping", who, g)); err != nil {
				return nil, err
			}
		}
		var out []interface{}
		for _, v := range args[3:] {
			ret, err := env.Call(target, "ping", who, v)
			if err != nil {
				return nil, err
			}
			out = append(out, ret...)
		}
		return out, nil
	case "via":
		// Authorize target.ping and then reach it through another relay.
		hop, err := Arg[address.Address](args, 1)
		if err != nil {
			return nil, err
		}
		if _, err := env.AuthorizeAsCurrentContract(NewInvocation(target, "ping", self, uint64(1))); err != nil {
			return nil, err
		}
		return env.Call(hop, "relay", target, self, false, uint64(1))
	case "spend":
		// Authorize target.ping(who, v), call it and report whether the
		// grant was consumed.
		who, err := Arg[address.Address](args, 1)
		if err != nil {
			return nil, err
		}
		grant, err := env.AuthorizeAsCurrentContract(NewInvocation(target, "ping", who, args[2]))
		if err != nil {
			return nil, err
		}
		if _, err := env.Call(target, "ping", who, args[2]); err != nil {
			return nil, err
		}
		return []interface{}{grant.Used()}, nil
	}
	return nil, Unknown(fn)
})

func newTestHost(t *testing.T, opts ...Option) *Host {
	t.Helper()
	return NewHost(memorydb.New(), opts...)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	addr := address.ContractAddress(common.HexToHash("0x01"))

	require.NoError(t, r.Register(addr, counter))
	_, ok := r.Lookup(addr)
	require.True(t, ok)

	require.ErrorIs(t, r.Register(addr, counter), ErrContractExists)
	require.Error(t, r.Register(alice, counter), "accounts cannot host code")

	r.Release(addr)
	_, ok = r.Lookup(addr)
	require.False(t, ok, "contract should have been removed after release")
}

// TestRegistryRace ensures that concurrent registrations are race-free and
// that deployment salts never repeat.
func TestRegistryRace(t *testing.T) {
	const n = 100
	r := NewRegistry()

	var wg sync.WaitGroup
	wg.Add(n)
	salts := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			s := r.nextSalt()
			errs <- r.Register(address.ContractAddress(common.BytesToHash(s)), counter)
			salts <- string(s)
		}()
	}
	wg.Wait()
	close(salts)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	seen := make(map[string]bool)
	for s := range salts {
		require.False(t, seen[s], "duplicate salt")
		seen[s] = true
		_, ok := r.Lookup(address.ContractAddress(common.BytesToHash([]byte(s))))
		require.True(t, ok)
	}
}

func TestInvokeCommitsAndSimulateDiscards(t *testing.T) {
	h := newTestHost(t)
	c, err := h.Deploy(deployer, nil, counter)
	require.NoError(t, err)

	rcpt, err := h.Invoke(Tx{Contract: c, Function: "incr"})
	require.NoError(t, err)
	require.True(t, rcpt.Committed)
	require.Equal(t, []interface{}{uint64(1)}, rcpt.Return)

	rcpt, err = h.Simulate(Tx{Contract: c, Function: "incr"})
	require.NoError(t, err)
	require.False(t, rcpt.Committed)
	require.Equal(t, []interface{}{uint64(2)}, rcpt.Return)

	rcpt, err = h.Invoke(Tx{Contract: c, Function: "get"})
	require.NoError(t, err)
	require.Equal(t, []interface{}{uint64(1)}, rcpt.Return)
}

func TestReadOnlyInvokeWritesNothing(t *testing.T) {
	db := memorydb.New()
	h := NewHost(db)
	c, err := h.Deploy(deployer, nil, counter)
	require.NoError(t, err)
	require.Zero(t, db.Len())

	rcpt, err := h.Invoke(Tx{Contract: c, Function: "get"})
	require.NoError(t, err)
	require.True(t, rcpt.Committed)
	require.Zero(t, db.Len())

	_, err = h.Invoke(Tx{Contract: c, Function: "incr"})
	require.NoError(t, err)
	require.Equal(t, 1, db.Len())
}

func TestAbortDiscardsWrites(t *testing.T) {
	var exits []error
	h := newTestHost(t, WithHooks(&tracing.Hooks{
		OnExit: func(depth int, contract address.Address, fn string, err error) { exits = append(exits, err) },
	}))
	c, err := h.Deploy(deployer, nil, counter)
	require.NoError(t, err)

	_, err = h.Invoke(Tx{Contract: c, Function: "incr_then_fail"})
	require.EqualError(t, err, "boom")

	_, err = h.Invoke(Tx{Contract: c, Function: "incr_then_panic"})
	require.ErrorIs(t, err, ErrContractPanic)

	rcpt, err := h.Invoke(Tx{Contract: c, Function: "get"})
	require.NoError(t, err)
	require.Equal(t, []interface{}{uint64(0)}, rcpt.Return)

	// constructor, incr_then_fail, get (the panicking call never exits)
	require.Len(t, exits, 3)
	require.EqualError(t, exits[1], "boom")
}

func TestUnknownContractAndFunction(t *testing.T) {
	h := newTestHost(t)
	_, err := h.Invoke(Tx{Contract: address.ContractAddress(common.HexToHash("0x99")), Function: "get"})
	require.ErrorIs(t, err, ErrContractNotFound)

	c, err := h.Deploy(deployer, nil, counter)
	require.NoError(t, err)
	_, err = h.Invoke(Tx{Contract: c, Function: "nope"})
	require.ErrorIs(t, err, ErrUnknownFunction)
}

func TestDeployReleasesOnConstructorFailure(t *testing.T) {
	h := newTestHost(t)
	salt := []byte("guard")
	_, err := h.Deploy(deployer, salt, guard)
	require.ErrorIs(t, err, ErrUnknownFunction)

	// The address is free again.
	_, err = h.Deploy(deployer, salt, counter)
	require.NoError(t, err)
	_, err = h.Deploy(deployer, salt, counter)
	require.ErrorIs(t, err, ErrContractExists)
}

func deployPair(t *testing.T, h *Host) (g, r address.Address) {
	t.Helper()
	g = address.ContractAddress(common.HexToHash("0x9a"))
	require.NoError(t, h.Register(g, guard))
	r, err := h.Deploy(deployer, nil, relay)
	require.NoError(t, err)
	return g, r
}

func TestAccountAuthBySigner(t *testing.T) {
	h := newTestHost(t)
	g, _ := deployPair(t, h)

	_, err := h.Invoke(Tx{Contract: g, Function: "ping", Args: []interface{}{alice, uint64(7)}})
	require.ErrorIs(t, err, ErrAuthorizationDenied)

	rcpt, err := h.Invoke(Tx{Signers: []address.Address{alice}, Contract: g, Function: "ping", Args: []interface{}{alice, uint64(7)}})
	require.NoError(t, err)
	require.Equal(t, []interface{}{uint64(7)}, rcpt.Return)
}

func TestGrantAuthorizesMatchingCall(t *testing.T) {
	var denied, granted int
	h := newTestHost(t, WithHooks(&tracing.Hooks{
		OnAuth: func(addr, contract address.Address, fn string, ok bool) {
			if ok {
				granted++
			} else {
				denied++
			}
		},
	}))
	g, r := deployPair(t, h)

	rcpt, err := h.Invoke(Tx{Contract: r, Function: "relay", Args: []interface{}{g, r, uint64(5), uint64(5)}})
	require.NoError(t, err)
	require.Equal(t, []interface{}{uint64(5)}, rcpt.Return)
	require.Equal(t, 1, granted)
	require.Zero(t, denied)
}

func TestGrantIsSingleUse(t *testing.T) {
	h := newTestHost(t)
	g, r := deployPair(t, h)

	_, err := h.Invoke(Tx{Contract: r, Function: "relay", Args: []interface{}{g, r, uint64(5), uint64(5), uint64(5)}})
	require.ErrorIs(t, err, ErrAuthorizationDenied)
}

func TestGrantUsedOnlyByContractAuth(t *testing.T) {
	h := newTestHost(t)
	g, r := deployPair(t, h)

	rcpt, err := h.Invoke(Tx{Contract: r, Function: "spend", Args: []interface{}{g, r, uint64(3)}})
	require.NoError(t, err)
	require.Equal(t, []interface{}{true}, rcpt.Return)

	// A signing account satisfies the guard, so the contract grant stays unused.
	rcpt, err = h.Invoke(Tx{Signers: []address.Address{alice}, Contract: r, Function: "spend", Args: []interface{}{g, alice, uint64(3)}})
	require.NoError(t, err)
	require.Equal(t, []interface{}{false}, rcpt.Return)
}

func TestGrantRequiresExactArgs(t *testing.T) {
	h := newTestHost(t)
	g, r := deployPair(t, h)

	_, err := h.Invoke(Tx{Contract: r, Function: "relay", Args: []interface{}{g, r, uint64(5), uint64(6)}})
	require.ErrorIs(t, err, ErrAuthorizationDenied)
}

func TestNoImplicitInvokerAuth(t *testing.T) {
	h := newTestHost(t)
	g, r := deployPair(t, h)

	// Being the direct caller is not an authorization.
	_, err := h.Invoke(Tx{Contract: r, Function: "relay", Args: []interface{}{g, r, false, uint64(5)}})
	require.ErrorIs(t, err, ErrAuthorizationDenied)
}

func TestGrantNotUsableDeeper(t *testing.T) {
	h := newTestHost(t)
	g, r := deployPair(t, h)
	hop, err := h.Deploy(deployer, nil, relay)
	require.NoError(t, err)

	_, err = h.Invoke(Tx{Contract: r, Function: "via", Args: []interface{}{g, hop}})
	require.ErrorIs(t, err, ErrAuthorizationDenied)
}

func TestInvocationDigest(t *testing.T) {
	c := address.ContractAddress(common.HexToHash("0x01"))
	a, err := NewInvocation(c, "transfer", alice, big.NewInt(10)).Digest()
	require.NoError(t, err)
	b, err := NewInvocation(c, "transfer", alice, big.NewInt(10)).Digest()
	require.NoError(t, err)
	require.Equal(t, a, b)

	d, err := NewInvocation(c, "transfer", alice, big.NewInt(11)).Digest()
	require.NoError(t, err)
	require.NotEqual(t, a, d)

	// Same bytes, different type.
	e, err := NewInvocation(c, "f", "ab").Digest()
	require.NoError(t, err)
	f, err := NewInvocation(c, "f", []byte("ab")).Digest()
	require.NoError(t, err)
	require.NotEqual(t, e, f)

	_, err = NewInvocation(c, "f", 3.14).Digest()
	require.ErrorIs(t, err, ErrBadArgument)
}
