// Completion: 100% - Assertion errors and recovery complete
package ra

import (
	"fmt"

	"github.com/pkg/errors"
)

// AssertionKind classifies an internal assertion
type AssertionKind int

const (
	// CapacityViolation means more simultaneous demands of one kind than unlocked registers
	CapacityViolation AssertionKind = iota
	// ProtocolViolation means the caller broke an ordering or uniqueness contract
	ProtocolViolation
)

func (k AssertionKind) String() string {
	switch k {
	case CapacityViolation:
		return "capacity violation"
	case ProtocolViolation:
		return "protocol violation"
	default:
		return "unknown"
	}
}

// AssertionError is raised by the allocator core and recovered at the method boundary
type AssertionError struct {
	Kind AssertionKind
	Msg  string
}

// Error implements the error interface
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func capacityf(format string, args ...interface{}) {
	panic(&AssertionError{Kind: CapacityViolation, Msg: fmt.Sprintf(format, args...)})
}

func protocolf(format string, args ...interface{}) {
	panic(&AssertionError{Kind: ProtocolViolation, Msg: fmt.Sprintf(format, args...)})
}

// assertf raises a protocol violation unless cond holds
func assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		protocolf(format, args...)
	}
}

// recoverAssertion turns an *AssertionError panic into an error; other panics propagate
func recoverAssertion(errp *error, method string) {
	r := recover()
	if r == nil {
		return
	}
	ae, ok := r.(*AssertionError)
	if !ok {
		panic(r)
	}
	*errp = errors.Wrapf(ae, "allocating %s", method)
}

// AsAssertion returns the assertion behind err, if any
func AsAssertion(err error) (*AssertionError, bool) {
	ae, ok := errors.Cause(err).(*AssertionError)
	return ae, ok
}

// IsCapacityViolation reports whether err was caused by register exhaustion
func IsCapacityViolation(err error) bool {
	ae, ok := AsAssertion(err)
	return ok && ae.Kind == CapacityViolation
}

// IsProtocolViolation reports whether err was caused by a broken contract
func IsProtocolViolation(err error) bool {
	ae, ok := AsAssertion(err)
	return ok && ae.Kind == ProtocolViolation
}
