package vm

import "errors"

var (
	// ErrAuthorizationDenied is returned by RequireAuth when neither a
	// transaction signer nor a matching grant vouches for the address.
	ErrAuthorizationDenied = errors.New("authorization denied")

	// ErrContractNotFound is returned when calling an unregistered address.
	ErrContractNotFound = errors.New("contract not found")

	// ErrContractExists is returned when registering an address twice.
	ErrContractExists = errors.New("contract already exists")

	// ErrUnknownFunction is returned by contracts for unsupported functions.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrBadArgument is returned for missing or mistyped call arguments.
	ErrBadArgument = errors.New("bad argument")

	// ErrCallDepth is returned when nested calls exceed MaxCallDepth.
	ErrCallDepth = errors.New("max call depth exceeded")

	// ErrContractPanic wraps a panic recovered from contract code.
	ErrContractPanic = errors.New("contract panicked")
)
