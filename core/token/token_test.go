package token

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/stellar-cctp/forwarder/address"
	"github.com/stellar-cctp/forwarder/amount"
	"github.com/stellar-cctp/forwarder/core/vm"
	"github.com/stellar-cctp/forwarder/recipient"
	"github.com/stellar-cctp/forwarder/tracing"
	"github.com/stretchr/testify/require"
)

var (
	admin = address.AccountAddress(common.HexToHash("0xad"))
	alice = address.AccountAddress(common.HexToHash("0xa1"))
	bob   = address.AccountAddress(common.HexToHash("0xb0"))
	vault = address.ContractAddress(common.HexToHash("0xc0"))
)

func newAsset(t *testing.T, opts ...vm.Option) (*vm.Host, *Client) {
	t.Helper()
	h := vm.NewHost(memorydb.New(), opts...)
	addr, err := h.Deploy(admin, []byte("usdc"), Asset, admin, "USDC")
	require.NoError(t, err)
	return h, NewClient(h, addr)
}

func requireBalance(t *testing.T, c *Client, holder address.Address, want int64) {
	t.Helper()
	bal, err := c.Balance(holder)
	require.NoError(t, err)
	require.Zero(t, bal.Cmp(big.NewInt(want)), "balance of %s: have %v want %d", holder, bal, want)
}

func TestMintRequiresAdmin(t *testing.T) {
	_, c := newAsset(t)

	require.ErrorIs(t, c.Mint(alice, vault, big.NewInt(10)), vm.ErrAuthorizationDenied)
	require.NoError(t, c.Mint(admin, vault, big.NewInt(10)))
	requireBalance(t, c, vault, 10)

	require.ErrorIs(t, c.Mint(admin, vault, big.NewInt(-1)), ErrNegativeAmount)
}

func TestTrustline(t *testing.T) {
	_, c := newAsset(t)

	require.ErrorIs(t, c.Mint(admin, alice, big.NewInt(10)), ErrNoTrustline)
	trusted, err := c.Trusted(alice)
	require.NoError(t, err)
	require.False(t, trusted)

	require.NoError(t, c.AddTrustline(alice))
	trusted, err = c.Trusted(alice)
	require.NoError(t, err)
	require.True(t, trusted)

	require.NoError(t, c.Mint(admin, alice, big.NewInt(10)))
	requireBalance(t, c, alice, 10)
}

func TestTransfer(t *testing.T) {
	_, c := newAsset(t)
	require.NoError(t, c.AddTrustline(alice))
	require.NoError(t, c.AddTrustline(bob))
	require.NoError(t, c.Mint(admin, alice, big.NewInt(100)))

	require.ErrorIs(t, c.Transfer(bob, recipient.Plain(alice), big.NewInt(1)), ErrInsufficientBalance)
	require.NoError(t, c.Transfer(alice, recipient.Plain(bob), big.NewInt(40)))
	requireBalance(t, c, alice, 60)
	requireBalance(t, c, bob, 40)

	require.ErrorIs(t, c.Transfer(alice, recipient.Plain(bob), big.NewInt(61)), ErrInsufficientBalance)
	require.ErrorIs(t, c.Transfer(alice, recipient.Plain(bob), big.NewInt(-1)), ErrNegativeAmount)
	requireBalance(t, c, alice, 60)
}

func TestTransferWithoutTrustlineLeavesSender(t *testing.T) {
	_, c := newAsset(t)
	require.NoError(t, c.Mint(admin, vault, big.NewInt(5)))

	// vault is a contract, so no signer can vouch for it.
	require.ErrorIs(t, c.Transfer(vault, recipient.Plain(bob), big.NewInt(5)), vm.ErrAuthorizationDenied)

	require.NoError(t, c.AddTrustline(alice))
	require.NoError(t, c.Mint(admin, alice, big.NewInt(5)))
	require.ErrorIs(t, c.Transfer(alice, recipient.Plain(bob), big.NewInt(5)), ErrNoTrustline)
	requireBalance(t, c, alice, 5)
}

func TestTransferToMuxedCreditsBaseAccount(t *testing.T) {
	h, c := newAsset(t)
	require.NoError(t, c.AddTrustline(alice))
	require.NoError(t, c.AddTrustline(bob))
	require.NoError(t, c.Mint(admin, alice, big.NewInt(100)))

	mux, err := address.NewMuxed(bob, 42)
	require.NoError(t, err)
	rcpt, err := h.Invoke(vm.Tx{
		Signers:  []address.Address{alice},
		Contract: c.Address(),
		Function: FnTransfer,
		Args:     []interface{}{alice, recipient.Extended(mux), big.NewInt(30)},
	})
	require.NoError(t, err)
	requireBalance(t, c, bob, 30)

	events := rcpt.Filter(c.Address(), FnTransfer)
	require.Len(t, events, 1)
	require.Equal(t, uint64(42), events[0].Data["to_muxed_id"])
	require.Equal(t, bob, events[0].Topics[2])
}

func TestOverflow(t *testing.T) {
	_, c := newAsset(t)
	require.NoError(t, c.Mint(admin, vault, amount.MaxI128))
	require.ErrorIs(t, c.Mint(admin, vault, big.NewInt(1)), ErrOverflow)
}

func TestSetAdmin(t *testing.T) {
	_, c := newAsset(t)

	require.ErrorIs(t, c.SetAdmin(alice, alice), vm.ErrAuthorizationDenied)
	require.NoError(t, c.SetAdmin(admin, alice))

	got, err := c.Admin()
	require.NoError(t, err)
	require.Equal(t, alice, got)

	require.ErrorIs(t, c.Mint(admin, vault, big.NewInt(1)), vm.ErrAuthorizationDenied)
	require.NoError(t, c.Mint(alice, vault, big.NewInt(1)))
}

func TestBalanceHook(t *testing.T) {
	type change struct {
		holder address.Address
		next   int64
		reason tracing.BalanceChangeReason
	}
	var changes []change
	_, c := newAsset(t, vm.WithHooks(&tracing.Hooks{
		OnBalanceChange: func(asset, holder address.Address, prev, next *big.Int, reason tracing.BalanceChangeReason) {
			changes = append(changes, change{holder, next.Int64(), reason})
		},
	}))
	require.NoError(t, c.AddTrustline(alice))
	require.NoError(t, c.Mint(admin, alice, big.NewInt(9)))
	require.NoError(t, c.Transfer(alice, recipient.Plain(vault), big.NewInt(4)))

	require.Equal(t, []change{
		{alice, 9, tracing.BalanceChangeMint},
		{alice, 5, tracing.BalanceChangeTransferOut},
		{vault, 4, tracing.BalanceChangeTransferIn},
	}, changes)
}
