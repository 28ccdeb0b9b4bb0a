package core

import "errors"

var (
	// ErrAmountMismatch is returned when the minted balance delta differs
	// from the amount the message declares.
	ErrAmountMismatch = errors.New("amount mismatch")

	// ErrNotInitialized is returned when the forwarder has no configuration.
	ErrNotInitialized = errors.New("forwarder not initialized")

	// ErrAlreadyInitialized is returned by a second initialize.
	ErrAlreadyInitialized = errors.New("forwarder already initialized")

	// ErrTransferFailed wraps ledger failures while paying the recipient.
	ErrTransferFailed = errors.New("transfer to recipient failed")

	// ErrUnknownVariant is returned when parsing a variant name fails.
	ErrUnknownVariant = errors.New("unknown forwarder variant")
)
