package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggingToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "forwarder.log")
	root := log.Root()
	defer log.SetDefault(root)

	setupLogging(3, file, 1)
	log.Info("Forwarded", "amount", 1000)
	log.Debug("Hidden at info verbosity")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(data), "Forwarded")
	require.Contains(t, string(data), "amount=1000")
	require.NotContains(t, string(data), "Hidden")
}
