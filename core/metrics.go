package core

import "github.com/ethereum/go-ethereum/metrics"

var (
	forwardMeter         = metrics.NewRegisteredMeter("forwarder/forward", nil)
	forwardMismatchMeter = metrics.NewRegisteredMeter("forwarder/mismatch", nil)
	forwardVolumeCounter = metrics.NewRegisteredCounter("forwarder/volume", nil)
	forwardTimer         = metrics.NewRegisteredTimer("forwarder/forward/time", nil)
)
