package transmitter

import (
	"github.com/stellar-cctp/forwarder/address"
	"github.com/stellar-cctp/forwarder/core/vm"
)

// ReceiveInvocation describes transmitter.receive_message. A nil attestation
// selects the single-argument form.
func ReceiveInvocation(transmitter address.Address, msg, attestation []byte) vm.Invocation {
	if attestation == nil {
		return vm.NewInvocation(transmitter, FnReceiveMessage, msg)
	}
	return vm.NewInvocation(transmitter, FnReceiveMessage, msg, attestation)
}

// Client submits transactions to a deployed transmitter.
type Client struct {
	host *vm.Host
	addr address.Address
}

// NewClient binds a client to the transmitter at addr.
func NewClient(host *vm.Host, addr address.Address) *Client {
	return &Client{host: host, addr: addr}
}

// Address returns the transmitter contract address.
func (c *Client) Address() address.Address { return c.addr }

// Asset returns the asset the transmitter mints.
func (c *Client) Asset() (address.Address, error) {
	rcpt, err := c.host.Simulate(vm.Tx{Contract: c.addr, Function: FnAsset})
	if err != nil {
		return address.Address{}, err
	}
	return vm.Ret[address.Address](rcpt.Return, 0)
}

// ReceiveMessage delivers msg directly, signed by signers.
func (c *Client) ReceiveMessage(signers []address.Address, msg, attestation []byte) (*vm.Receipt, error) {
	inv := ReceiveInvocation(c.addr, msg, attestation)
	return c.host.Invoke(vm.Tx{Signers: signers, Contract: inv.Contract, Function: inv.Function, Args: inv.Args})
}
