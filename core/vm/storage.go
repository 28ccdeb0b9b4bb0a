package vm

import (
	"github.com/stellar-cctp/forwarder/address"
	"github.com/stellar-cctp/forwarder/core/state"
)

var storagePrefix = []byte("s")

// Storage is the key-value space owned by a single contract. Values are RLP
// encoded; all writes go through the invocation's overlay.
type Storage struct {
	sdb      *state.StateDB
	contract address.Address
}

// StorageKey joins key parts into a single storage key.
func StorageKey(parts ...[]byte) []byte {
	var k []byte
	for i, p := range parts {
		if i > 0 {
			k = append(k, '/')
		}
		k = append(k, p...)
	}
	return k
}

func (s Storage) key(k []byte) []byte {
	out := make([]byte, 0, len(storagePrefix)+33+len(k))
	out = append(out, storagePrefix...)
	out = append(out, s.contract.Bytes()...)
	return append(out, k...)
}

// Get decodes the value stored under k into out.
func (s Storage) Get(k []byte, out interface{}) (bool, error) {
	return s.sdb.GetRLP(s.key(k), out)
}

// Set stores v under k.
func (s Storage) Set(k []byte, v interface{}) error {
	return s.sdb.PutRLP(s.key(k), v)
}

// Has reports whether k holds a value.
func (s Storage) Has(k []byte) (bool, error) {
	_, ok, err := s.sdb.Get(s.key(k))
	return ok, err
}

// Remove deletes k.
func (s Storage) Remove(k []byte) {
	s.sdb.Delete(s.key(k))
}
