package vm

import (
	"fmt"
)

// ConstructorFunction is invoked once, by Host.Deploy, right after a contract
// has been bound to its address.
const ConstructorFunction = "__constructor"

// Contract is native code the host can dispatch invocations to. Contracts
// must keep all state in env.Storage(); the Go value itself is shared across
// invocations and must not carry mutable fields.
type Contract interface {
	Invoke(env *Env, fn string, args []interface{}) ([]interface{}, error)
}

// ContractFunc adapts a plain function to the Contract interface.
type ContractFunc func(env *Env, fn string, args []interface{}) ([]interface{}, error)

func (f ContractFunc) Invoke(env *Env, fn string, args []interface{}) ([]interface{}, error) {
	return f(env, fn, args)
}

// Arg returns args[i] as T, or ErrBadArgument.
func Arg[T any](args []interface{}, i int) (T, error) {
	var zero T
	if i >= len(args) {
		return zero, fmt.Errorf("%w: missing argument %d", ErrBadArgument, i)
	}
	v, ok := args[i].(T)
	if !ok {
		return zero, fmt.Errorf("%w: argument %d is %T, want %T", ErrBadArgument, i, args[i], zero)
	}
	return v, nil
}

// Ret returns ret[i] as T, or ErrBadArgument. It is the caller-side mirror
// of Arg.
func Ret[T any](ret []interface{}, i int) (T, error) {
	v, err := Arg[T](ret, i)
	if err != nil {
		return v, fmt.Errorf("return value: %w", err)
	}
	return v, nil
}

// ExpectArgs checks the arity of a call.
func ExpectArgs(fn string, args []interface{}, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: %s takes %d arguments, got %d", ErrBadArgument, fn, n, len(args))
	}
	return nil
}

// Unknown is the error contracts return for functions they do not export.
func Unknown(fn string) error {
	return fmt.Errorf("%w: %q", ErrUnknownFunction, fn)
}
