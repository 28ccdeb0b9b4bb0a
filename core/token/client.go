package token

import (
	"math/big"

	"github.com/stellar-cctp/forwarder/address"
	"github.com/stellar-cctp/forwarder/core/vm"
	"github.com/stellar-cctp/forwarder/recipient"
)

// Balance reads holder's balance of asset from inside a contract.
func Balance(env *vm.Env, asset, holder address.Address) (*big.Int, error) {
	ret, err := env.Call(asset, FnBalance, holder)
	if err != nil {
		return nil, err
	}
	return vm.Ret[*big.Int](ret, 0)
}

// TransferInvocation describes asset.transfer(from, to, amt), the call a
// contract must authorize before moving its own funds.
func TransferInvocation(asset, from address.Address, to recipient.Recipient, amt *big.Int) vm.Invocation {
	return vm.NewInvocation(asset, FnTransfer, from, to, amt)
}

// MintInvocation describes asset.mint(to, amt).
func MintInvocation(asset, to address.Address, amt *big.Int) vm.Invocation {
	return vm.NewInvocation(asset, FnMint, to, amt)
}

// Client submits ledger transactions to a host.
type Client struct {
	host  *vm.Host
	asset address.Address
}

// NewClient binds a client to the asset contract at addr.
func NewClient(host *vm.Host, addr address.Address) *Client {
	return &Client{host: host, asset: addr}
}

// Address returns the asset contract address.
func (c *Client) Address() address.Address { return c.asset }

func (c *Client) call(signers []address.Address, fn string, args ...interface{}) ([]interface{}, error) {
	rcpt, err := c.host.Invoke(vm.Tx{Signers: signers, Contract: c.asset, Function: fn, Args: args})
	if err != nil {
		return nil, err
	}
	return rcpt.Return, nil
}

// Balance returns holder's balance. It is read-only and never commits.
func (c *Client) Balance(holder address.Address) (*big.Int, error) {
	rcpt, err := c.host.Simulate(vm.Tx{Contract: c.asset, Function: FnBalance, Args: []interface{}{holder}})
	if err != nil {
		return nil, err
	}
	return vm.Ret[*big.Int](rcpt.Return, 0)
}

// Admin returns the current admin.
func (c *Client) Admin() (address.Address, error) {
	rcpt, err := c.host.Simulate(vm.Tx{Contract: c.asset, Function: FnAdmin})
	if err != nil {
		return address.Address{}, err
	}
	return vm.Ret[address.Address](rcpt.Return, 0)
}

// Trusted reports whether holder can receive the asset.
func (c *Client) Trusted(holder address.Address) (bool, error) {
	rcpt, err := c.host.Simulate(vm.Tx{Contract: c.asset, Function: FnTrusted, Args: []interface{}{holder}})
	if err != nil {
		return false, err
	}
	return vm.Ret[bool](rcpt.Return, 0)
}

// Mint credits amt to to, signed by admin.
func (c *Client) Mint(admin, to address.Address, amt *big.Int) error {
	_, err := c.call([]address.Address{admin}, FnMint, to, amt)
	return err
}

// SetAdmin hands the admin role to next, signed by the current admin.
func (c *Client) SetAdmin(admin, next address.Address) error {
	_, err := c.call([]address.Address{admin}, FnSetAdmin, next)
	return err
}

// AddTrustline lets the account holder receive the asset.
func (c *Client) AddTrustline(holder address.Address) error {
	_, err := c.call([]address.Address{holder}, FnAddTrustline, holder)
	return err
}

// Transfer moves amt from from to to, signed by from.
func (c *Client) Transfer(from address.Address, to recipient.Recipient, amt *big.Int) error {
	_, err := c.call([]address.Address{from}, FnTransfer, from, to, amt)
	return err
}
