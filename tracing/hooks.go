// Package tracing defines hooks for observing contract calls and balance changes.
package tracing

import (
	"math/big"

	"github.com/stellar-cctp/forwarder/address"
)

// BalanceChangeReason is a description of the reason why a balance was changed.
type BalanceChangeReason int

const (
	BalanceChangeUnspecified BalanceChangeReason = iota
	BalanceChangeMint
	BalanceChangeTransferOut
	BalanceChangeTransferIn
)

// String returns a human-readable string for the reason.
func (r BalanceChangeReason) String() string {
	switch r {
	case BalanceChangeUnspecified:
		return "unspecified"
	case BalanceChangeMint:
		return "mint"
	case BalanceChangeTransferOut:
		return "transfer_out"
	case BalanceChangeTransferIn:
		return "transfer_in"
	}
	return "unknown"
}

type (
	// EnterHook is invoked when a contract call starts. depth is 0 for the
	// top-level invocation.
	EnterHook = func(depth int, contract address.Address, fn string)

	// ExitHook is invoked when a contract call returns.
	ExitHook = func(depth int, contract address.Address, fn string, err error)

	// BalanceChangeHook is invoked when an asset ledger moves a balance.
	BalanceChangeHook = func(asset, holder address.Address, prev, next *big.Int, reason BalanceChangeReason)

	// AuthHook is invoked whenever an authorization check is made.
	AuthHook = func(addr address.Address, contract address.Address, fn string, granted bool)
)

// Hooks is a set of optional callbacks the host fires while executing.
// Callbacks observe effects inside the invocation; if the invocation aborts
// those effects are discarded but the callbacks have still fired.
type Hooks struct {
	OnEnter         EnterHook
	OnExit          ExitHook
	OnBalanceChange BalanceChangeHook
	OnAuth          AuthHook
}
