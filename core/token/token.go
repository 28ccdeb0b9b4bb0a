// Package token implements a native asset ledger contract: admin-gated
// minting, authorized transfers and trustlines for account holders.
package token

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/stellar-cctp/forwarder/address"
	"github.com/stellar-cctp/forwarder/amount"
	"github.com/stellar-cctp/forwarder/core/vm"
	"github.com/stellar-cctp/forwarder/recipient"
	"github.com/stellar-cctp/forwarder/tracing"
)

// Exported contract functions.
const (
	FnBalance      = "balance"
	FnTransfer     = "transfer"
	FnMint         = "mint"
	FnAdmin        = "admin"
	FnSetAdmin     = "set_admin"
	FnName         = "name"
	FnAddTrustline = "add_trustline"
	FnTrusted      = "trusted"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNoTrustline         = errors.New("no trustline")
	ErrNegativeAmount      = errors.New("negative amount")
	ErrOverflow            = errors.New("balance overflow")
)

var (
	keyAdmin   = []byte("admin")
	keyName    = []byte("name")
	balancePfx = []byte("balance")
	trustPfx   = []byte("trust")
)

// Asset is the ledger contract. Deploy it with (admin address.Address,
// name string).
var Asset vm.Contract = ledger{}

type ledger struct{}

func (ledger) Invoke(env *vm.Env, fn string, args []interface{}) ([]interface{}, error) {
	switch fn {
	case vm.ConstructorFunction:
		return nil, construct(env, args)
	case FnBalance:
		if err := vm.ExpectArgs(fn, args, 1); err != nil {
			return nil, err
		}
		holder, err := vm.Arg[address.Address](args, 0)
		if err != nil {
			return nil, err
		}
		bal, err := balanceOf(env, holder)
		if err != nil {
			return nil, err
		}
		return []interface{}{bal}, nil
	case FnTransfer:
		return nil, transfer(env, args)
	case FnMint:
		return nil, mint(env, args)
	case FnAdmin:
		admin, err := adminOf(env)
		if err != nil {
			return nil, err
		}
		return []interface{}{admin}, nil
	case FnSetAdmin:
		return nil, setAdmin(env, args)
	case FnName:
		var name string
		if _, err := env.Storage().Get(keyName, &name); err != nil {
			return nil, err
		}
		return []interface{}{name}, nil
	case FnAddTrustline:
		holder, err := vm.Arg[address.Address](args, 0)
		if err != nil {
			return nil, err
		}
		if err := env.RequireAuth(holder); err != nil {
			return nil, err
		}
		if !holder.IsAccount() {
			return nil, fmt.Errorf("%w: trustlines are for accounts, got %s", vm.ErrBadArgument, holder)
		}
		return nil, env.Storage().Set(vm.StorageKey(trustPfx, holder.Bytes()), true)
	case FnTrusted:
		holder, err := vm.Arg[address.Address](args, 0)
		if err != nil {
			return nil, err
		}
		ok, err := authorized(env, holder)
		if err != nil {
			return nil, err
		}
		return []interface{}{ok}, nil
	}
	return nil, vm.Unknown(fn)
}

func construct(env *vm.Env, args []interface{}) error {
	if err := vm.ExpectArgs(vm.ConstructorFunction, args, 2); err != nil {
		return err
	}
	admin, err := vm.Arg[address.Address](args, 0)
	if err != nil {
		return err
	}
	name, err := vm.Arg[string](args, 1)
	if err != nil {
		return err
	}
	if err := env.Storage().Set(keyAdmin, admin); err != nil {
		return err
	}
	return env.Storage().Set(keyName, name)
}

func adminOf(env *vm.Env) (address.Address, error) {
	var admin address.Address
	ok, err := env.Storage().Get(keyAdmin, &admin)
	if err != nil {
		return address.Address{}, err
	}
	if !ok {
		return address.Address{}, errors.New("asset has no admin")
	}
	return admin, nil
}

func balanceOf(env *vm.Env, holder address.Address) (*big.Int, error) {
	bal := new(big.Int)
	if _, err := env.Storage().Get(vm.StorageKey(balancePfx, holder.Bytes()), bal); err != nil {
		return nil, err
	}
	return bal, nil
}

// authorized reports whether holder may hold a balance. Contracts always can,
// accounts need a trustline.
func authorized(env *vm.Env, holder address.Address) (bool, error) {
	if holder.IsContract() {
		return true, nil
	}
	return env.Storage().Has(vm.StorageKey(trustPfx, holder.Bytes()))
}

func setBalance(env *vm.Env, holder address.Address, prev, next *big.Int, reason tracing.BalanceChangeReason) error {
	if err := env.Storage().Set(vm.StorageKey(balancePfx, holder.Bytes()), next); err != nil {
		return err
	}
	if hooks := env.Hooks(); hooks != nil && hooks.OnBalanceChange != nil {
		hooks.OnBalanceChange(env.CurrentContractAddress(), holder, prev, next, reason)
	}
	return nil
}

func credit(env *vm.Env, holder address.Address, amt *big.Int, reason tracing.BalanceChangeReason) error {
	ok, err := authorized(env, holder)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoTrustline, holder)
	}
	prev, err := balanceOf(env, holder)
	if err != nil {
		return err
	}
	next := new(big.Int).Add(prev, amt)
	if !amount.Valid(next) {
		return fmt.Errorf("%w: %s", ErrOverflow, holder)
	}
	return setBalance(env, holder, prev, next, reason)
}

func debit(env *vm.Env, holder address.Address, amt *big.Int) error {
	prev, err := balanceOf(env, holder)
	if err != nil {
		return err
	}
	if prev.Cmp(amt) < 0 {
		return fmt.Errorf("%w: %s has %v, needs %v", ErrInsufficientBalance, holder, prev, amt)
	}
	next, err := amount.Sub(prev, amt)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrOverflow, holder)
	}
	return setBalance(env, holder, prev, next, tracing.BalanceChangeTransferOut)
}

func checkAmount(amt *big.Int) error {
	if amt.Sign() < 0 {
		return fmt.Errorf("%w: %v", ErrNegativeAmount, amt)
	}
	return nil
}

func transfer(env *vm.Env, args []interface{}) error {
	if err := vm.ExpectArgs(FnTransfer, args, 3); err != nil {
		return err
	}
	from, err := vm.Arg[address.Address](args, 0)
	if err != nil {
		return err
	}
	to, err := vm.Arg[recipient.Recipient](args, 1)
	if err != nil {
		return err
	}
	amt, err := vm.Arg[*big.Int](args, 2)
	if err != nil {
		return err
	}
	if err := checkAmount(amt); err != nil {
		return err
	}
	if err := env.RequireAuth(from); err != nil {
		return err
	}
	if err := debit(env, from, amt); err != nil {
		return err
	}
	if err := credit(env, to.Address(), amt, tracing.BalanceChangeTransferIn); err != nil {
		return err
	}
	data := map[string]interface{}{"amount": new(big.Int).Set(amt)}
	if m, ok := to.Muxed(); ok {
		data["to_muxed_id"] = m.ID
	}
	env.Emit([]interface{}{FnTransfer, from, to.Address()}, data)
	return nil
}

func mint(env *vm.Env, args []interface{}) error {
	if err := vm.ExpectArgs(FnMint, args, 2); err != nil {
		return err
	}
	to, err := vm.Arg[address.Address](args, 0)
	if err != nil {
		return err
	}
	amt, err := vm.Arg[*big.Int](args, 1)
	if err != nil {
		return err
	}
	if err := checkAmount(amt); err != nil {
		return err
	}
	admin, err := adminOf(env)
	if err != nil {
		return err
	}
	if err := env.RequireAuth(admin); err != nil {
		return err
	}
	if err := credit(env, to, amt, tracing.BalanceChangeMint); err != nil {
		return err
	}
	env.Emit([]interface{}{FnMint, admin, to}, map[string]interface{}{"amount": new(big.Int).Set(amt)})
	return nil
}

func setAdmin(env *vm.Env, args []interface{}) error {
	if err := vm.ExpectArgs(FnSetAdmin, args, 1); err != nil {
		return err
	}
	next, err := vm.Arg[address.Address](args, 0)
	if err != nil {
		return err
	}
	admin, err := adminOf(env)
	if err != nil {
		return err
	}
	if err := env.RequireAuth(admin); err != nil {
		return err
	}
	if err := env.Storage().Set(keyAdmin, next); err != nil {
		return err
	}
	env.Emit([]interface{}{FnSetAdmin, admin}, map[string]interface{}{"new_admin": next})
	return nil
}
