package state

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/stretchr/testify/require"
)

// TestOverlayNotFlushed verifies that writes stay in the overlay until Commit.
func TestOverlayNotFlushed(t *testing.T) {
	db := memorydb.New()
	s := New(db)

	s.Put([]byte("a"), []byte{1})
	v, ok, err := s.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{1}, v)
	require.True(t, s.HasPending())

	has, err := db.Has([]byte("a"))
	require.NoError(t, err)
	require.False(t, has, "store was updated before flush")

	require.NoError(t, s.Commit())
	require.False(t, s.HasPending())

	raw, err := db.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte{1}, raw)
}

func TestOverlayDiscard(t *testing.T) {
	db := memorydb.New()
	require.NoError(t, db.Put([]byte("k"), []byte("old")))

	s := New(db)
	s.Put([]byte("k"), []byte("new"))
	s.Put([]byte("other"), []byte("x"))
	s.Discard()

	v, ok, err := s.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("old"), v)

	_, ok, err = s.Get([]byte("other"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOverlayDelete(t *testing.T) {
	db := memorydb.New()
	require.NoError(t, db.Put([]byte("k"), []byte("v")))

	s := New(db)
	s.Delete([]byte("k"))
	_, ok, err := s.Get([]byte("k"))
	require.NoError(t, err)
	require.False(t, ok)

	has, _ := db.Has([]byte("k"))
	require.True(t, has)

	require.NoError(t, s.Commit())
	has, _ = db.Has([]byte("k"))
	require.False(t, has)
}

func TestOverlayRLP(t *testing.T) {
	s := New(memorydb.New())

	require.NoError(t, s.PutRLP([]byte("bal"), big.NewInt(1000)))
	var out big.Int
	ok, err := s.GetRLP([]byte("bal"), &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, out.Cmp(big.NewInt(1000)))

	ok, err = s.GetRLP([]byte("missing"), &out)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOverlayReturnsCopies(t *testing.T) {
	s := New(memorydb.New())
	in := []byte{1, 2, 3}
	s.Put([]byte("k"), in)
	in[0] = 9

	v, _, _ := s.Get([]byte("k"))
	require.Equal(t, []byte{1, 2, 3}, v)
	v[1] = 9

	again, _, _ := s.Get([]byte("k"))
	require.Equal(t, []byte{1, 2, 3}, again)
}
