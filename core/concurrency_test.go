package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stellar-cctp/forwarder/core/transmitter"
	"github.com/stellar-cctp/forwarder/recipient"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// TestConcurrentForwards checks that forwards racing on one host never see
// each other's minted balance.
func TestConcurrentForwards(t *testing.T) {
	const n = 32
	d := deploy(t, withVariant(VariantInferred))

	var g errgroup.Group
	for i := 1; i <= n; i++ {
		msg := buildMessage(t, d, int64(i), []byte(contractStrkey))
		g.Go(func() error {
			res, err := d.Forwarder.Forward(nil, msg, ForwardOpts{})
			if err != nil {
				return err
			}
			if res.Amount.Int64() != int64(i) {
				return fmt.Errorf("forward %d paid %v", i, res.Amount)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	requireBalance(t, d, contractRcp, n*(n+1)/2)
	requireBalance(t, d, d.Forwarder.Address(), 0)
}

// TestConcurrentMixedOutcomes runs failing and succeeding forwards together;
// failures must leave no trace.
func TestConcurrentMixedOutcomes(t *testing.T) {
	cfg := withVariant(VariantInferred)
	cfg.RejectReplays = true
	d := deploy(t, cfg)

	good := buildMessage(t, d, 100, []byte(contractStrkey))
	bad := buildMessage(t, d, 100, []byte("garbage"))

	var g errgroup.Group
	results := make([]error, 8)
	for i := range results {
		msg := good
		if i%2 == 1 {
			msg = bad
		}
		g.Go(func() error {
			_, results[i] = d.Forwarder.Forward(nil, msg, ForwardOpts{})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var ok, replays, invalid int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, transmitter.ErrReplay):
			replays++
		case errors.Is(err, recipient.ErrInvalidEncoding):
			invalid++
		}
	}
	require.Equal(t, 1, ok, "exactly one delivery of the good message")
	require.Equal(t, 3, replays)
	// A failed forward also rolls back the replay marker, so the bad message
	// fails on its encoding every time.
	require.Equal(t, 4, invalid)
	requireBalance(t, d, contractRcp, 100)
	requireBalance(t, d, d.Forwarder.Address(), 0)
}
