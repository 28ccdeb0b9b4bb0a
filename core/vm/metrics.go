package vm

import "github.com/ethereum/go-ethereum/metrics"

var (
	invokeMeter      = metrics.NewRegisteredMeter("host/invoke", nil)
	abortMeter       = metrics.NewRegisteredMeter("host/abort", nil)
	panicCounter     = metrics.NewRegisteredCounter("host/panic", nil)
	authDeniedMeter  = metrics.NewRegisteredMeter("host/auth/denied", nil)
	commitTimer      = metrics.NewRegisteredTimer("host/commit", nil)
	simulationsMeter = metrics.NewRegisteredMeter("host/simulate", nil)
)
