package node

import (
	"errors"
	"fmt"
)

// ErrKind classifies the errors returned by a Node.
type ErrKind uint32

const (
	// ConnectionError covers dial, accept and socket I/O failures.
	ConnectionError ErrKind = iota
	// DecodeError covers malformed frames and chains of the wrong payload
	// type.
	DecodeError
	// ProtocolViolation is returned when a peer sends a message where a
	// specific reply was required.
	ProtocolViolation
)

// String ...
func (k ErrKind) String() string {
	switch k {
	case ConnectionError:
		return "Connection Error"
	case DecodeError:
		return "Decode Error"
	case ProtocolViolation:
		return "Protocol Violation"
	default:
		return "Unknown Error"
	}
}

// Err is the error type returned by Node operations.
type Err struct {
	kind ErrKind
	op   string
	err  error
}

func newErr(kind ErrKind, op string, err error) Err {
	return Err{
		kind: kind,
		op:   op,
		err:  err,
	}
}

// Kind ...
func (e Err) Kind() ErrKind {
	return e.kind
}

// Error ...
func (e Err) Error() string {
	return fmt.Sprintf("%s, %s, %v", e.op, e.kind, e.err)
}

// Unwrap returns the underlying error.
func (e Err) Unwrap() error {
	return e.err
}

// IsErr checks that err, or an error it wraps, is a node Err of kind k.
func IsErr(err error, k ErrKind) bool {
	var nodeErr Err
	return errors.As(err, &nodeErr) && nodeErr.kind == k
}
