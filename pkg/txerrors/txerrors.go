// Package txerrors holds the closed set of outcomes a workflow step can end with.
//
// Every error leaving the transaction layer classifies into exactly one Tag:
// insufficient funds, pending timeout, transient or fatal. The retry policy
// dispatches on the tag only.
package txerrors

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Tag classifies the result of an operation
type Tag int

const (
	TagOK Tag = iota
	TagInsufficientFunds
	TagPending
	TagTransient
	TagFatal
)

func (t Tag) String() string {
	switch t {
	case TagOK:
		return "ok"
	case TagInsufficientFunds:
		return "insufficient_funds"
	case TagPending:
		return "pending"
	case TagTransient:
		return "transient"
	case TagFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ErrInsufficientFunds is returned when the network refuses to estimate or accept
// a transaction because the sender cannot pay for it
var ErrInsufficientFunds = errors.New("insufficient funds")

// PendingError reports a transaction that was sent but had no receipt within the timeout.
// The transaction may still land later.
type PendingError struct {
	Chain  string
	TxHash common.Hash
	Action string
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("%s, chain = %s, tx_hash = %s", e.Action, e.Chain, e.TxHash.Hex())
}

// ReceiptStatusError reports a mined transaction whose receipt status is not successful
type ReceiptStatusError struct {
	Status uint64
	Chain  string
	TxHash common.Hash
	Action string
}

func (e *ReceiptStatusError) Error() string {
	prefix := ""
	if e.Action != "" {
		prefix = e.Action + " - "
	}
	return fmt.Sprintf("%sTx status = %d, chain = %s, tx_hash = %s", prefix, e.Status, e.Chain, e.TxHash.Hex())
}

// Error is the generic runner error. It is retried unless Fatal is set.
type Error struct {
	Msg   string
	Cause error
	Fatal bool

	// stack is the goroutine stack where the error was created or wrapped
	stack []byte
}

// New returns a transient runner error
func New(msg string) *Error {
	return &Error{Msg: msg, stack: debug.Stack()}
}

// Wrap returns a transient runner error keeping cause in the chain
func Wrap(msg string, cause error) *Error {
	return &Error{Msg: msg, Cause: cause, stack: debug.Stack()}
}

// WrapFatal returns a runner error keeping cause in the chain that is never retried
func WrapFatal(msg string, cause error) *Error {
	return &Error{Msg: msg, Cause: cause, Fatal: true, stack: debug.Stack()}
}

// Fatalf returns a runner error that is never retried
func Fatalf(format string, args ...interface{}) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...), Fatal: true, stack: debug.Stack()}
}

// Stack returns the stack captured when the error was created, nil for literals
func (e *Error) Stack() []byte {
	return e.stack
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Classify returns the tag of err. The outermost runner error decides whether
// a failure is fatal; insufficient funds and pending timeouts win over any wrapping.
func Classify(err error) Tag {
	if err == nil {
		return TagOK
	}
	var pending *PendingError
	if errors.As(err, &pending) {
		return TagPending
	}
	if errors.Is(err, ErrInsufficientFunds) {
		return TagInsufficientFunds
	}
	var runnerErr *Error
	if errors.As(err, &runnerErr) && runnerErr.Fatal {
		return TagFatal
	}
	return TagTransient
}

// IsInsufficientFundsMessage matches node error texts meaning the sender cannot pay
func IsInsufficientFundsMessage(msg string) bool {
	return strings.Contains(msg, "insufficient funds") ||
		strings.Contains(msg, "gas required exceeds allowance")
}

// IsPendingMessage matches provider error texts meaning the receipt is not available yet
func IsPendingMessage(msg string) bool {
	return strings.Contains(msg, "transaction indexing is in progress") ||
		strings.Contains(msg, "transaction not found")
}
