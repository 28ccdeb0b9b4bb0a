package vm

import (
	"fmt"
	"strings"

	"github.com/stellar-cctp/forwarder/address"
)

// Event is a contract event. Topics identify it, Data carries the payload.
type Event struct {
	Contract address.Address
	Topics   []interface{}
	Data     map[string]interface{}
}

// Name returns the first topic when it is a string.
func (e Event) Name() string {
	if len(e.Topics) == 0 {
		return ""
	}
	s, _ := e.Topics[0].(string)
	return s
}

func (e Event) String() string {
	topics := make([]string, len(e.Topics))
	for i, t := range e.Topics {
		topics[i] = fmt.Sprint(t)
	}
	return fmt.Sprintf("%s [%s] %v", e.Contract.TerminalString(), strings.Join(topics, " "), e.Data)
}

// Receipt is the outcome of a successful top-level invocation.
type Receipt struct {
	Return []interface{}
	Events []Event
	// Committed is false for simulated invocations.
	Committed bool
}

// Filter returns the events emitted by contract with the given name.
func (r *Receipt) Filter(contract address.Address, name string) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Contract == contract && e.Name() == name {
			out = append(out, e)
		}
	}
	return out
}
