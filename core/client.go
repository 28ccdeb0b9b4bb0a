package core

import (
	"math/big"

	"github.com/stellar-cctp/forwarder/address"
	"github.com/stellar-cctp/forwarder/core/vm"
	"github.com/stellar-cctp/forwarder/recipient"
)

// ForwardOpts carries the variant-dependent arguments of forward.
type ForwardOpts struct {
	// Attestation is passed to the transmitter by attested variants. Nil is
	// sent as an empty attestation.
	Attestation []byte
	// XDR selects serialized hook data for the flag variant.
	XDR bool
}

// ForwardResult is the outcome of a successful forward.
type ForwardResult struct {
	Amount    *big.Int
	Recipient recipient.Recipient
	Receipt   *vm.Receipt
}

// Client submits transactions to a deployed forwarder.
type Client struct {
	host    *vm.Host
	addr    address.Address
	variant Variant
}

// NewClient binds a client to the forwarder at addr running variant v.
func NewClient(host *vm.Host, addr address.Address, v Variant) *Client {
	return &Client{host: host, addr: addr, variant: v}
}

// Address returns the forwarder contract address.
func (c *Client) Address() address.Address { return c.addr }

// Initialize sets the asset and transmitter on a forwarder deployed with only
// an admin. The transaction is signed by admin. It succeeds only once.
func (c *Client) Initialize(admin, asset, tr address.Address) error {
	_, err := c.host.Invoke(vm.Tx{
		Signers:  []address.Address{admin},
		Contract: c.addr,
		Function: FnInitialize,
		Args:     []interface{}{asset, tr},
	})
	return err
}

// Asset returns the configured asset.
func (c *Client) Asset() (address.Address, error) {
	return c.view(FnAsset)
}

// Transmitter returns the configured transmitter.
func (c *Client) Transmitter() (address.Address, error) {
	return c.view(FnTransmitter)
}

func (c *Client) view(fn string) (address.Address, error) {
	rcpt, err := c.host.Simulate(vm.Tx{Contract: c.addr, Function: fn})
	if err != nil {
		return address.Address{}, err
	}
	return vm.Ret[address.Address](rcpt.Return, 0)
}

// ForwardArgs builds the forward argument list for the client's variant.
func (c *Client) ForwardArgs(msg []byte, opts ForwardOpts) []interface{} {
	args := []interface{}{msg}
	if c.variant.Attestation {
		att := opts.Attestation
		if att == nil {
			att = []byte{}
		}
		args = append(args, att)
	}
	if c.variant.Selection == SelectFlag {
		args = append(args, opts.XDR)
	}
	return args
}

// Forward submits forward(msg, ...) signed by signers.
func (c *Client) Forward(signers []address.Address, msg []byte, opts ForwardOpts) (*ForwardResult, error) {
	return c.submit(c.host.Invoke, signers, msg, opts)
}

// SimulateForward runs forward without committing.
func (c *Client) SimulateForward(signers []address.Address, msg []byte, opts ForwardOpts) (*ForwardResult, error) {
	return c.submit(c.host.Simulate, signers, msg, opts)
}

func (c *Client) submit(run func(vm.Tx) (*vm.Receipt, error), signers []address.Address, msg []byte, opts ForwardOpts) (*ForwardResult, error) {
	rcpt, err := run(vm.Tx{
		Signers:  signers,
		Contract: c.addr,
		Function: FnForward,
		Args:     c.ForwardArgs(msg, opts),
	})
	if err != nil {
		return nil, err
	}
	amt, err := vm.Ret[*big.Int](rcpt.Return, 0)
	if err != nil {
		return nil, err
	}
	to, err := vm.Ret[recipient.Recipient](rcpt.Return, 1)
	if err != nil {
		return nil, err
	}
	return &ForwardResult{Amount: amt, Recipient: to, Receipt: rcpt}, nil
}
