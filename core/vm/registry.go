package vm

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/stellar-cctp/forwarder/address"
)

// Registry keeps the set of contracts the host can dispatch to, keyed by
// contract address.
type Registry struct {
	contracts sync.Map // map[address.Address]Contract

	// seq yields unique salts for deployments that do not bring their own.
	seq uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register binds c to addr. Only contract addresses can host code.
func (r *Registry) Register(addr address.Address, c Contract) error {
	if !addr.IsContract() {
		return fmt.Errorf("cannot register code at %s address %s", addr.Kind, addr)
	}
	if c == nil {
		return fmt.Errorf("nil contract for %s", addr)
	}
	if _, loaded := r.contracts.LoadOrStore(addr, c); loaded {
		return fmt.Errorf("%w: %s", ErrContractExists, addr)
	}
	return nil
}

// Release removes the contract bound to addr. After this call any
// invocation of addr fails with ErrContractNotFound.
func (r *Registry) Release(addr address.Address) {
	r.contracts.Delete(addr)
}

// Lookup fetches the contract bound to addr.
func (r *Registry) Lookup(addr address.Address) (Contract, bool) {
	if v, ok := r.contracts.Load(addr); ok {
		return v.(Contract), true
	}
	return nil, false
}

// nextSalt returns a fresh 8-byte deployment salt.
func (r *Registry) nextSalt() []byte {
	return binary.BigEndian.AppendUint64(nil, atomic.AddUint64(&r.seq, 1))
}
