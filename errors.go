package stellarrpc

import (
	"fmt"
	"time"
)

// Code identifies the class of a Error, matching the taxonomy of §7.
type Code int

const (
	// CodeInvalidInput covers malformed constructor arguments (a sequence
	// string that doesn't parse as a non-negative 63-bit integer, a
	// set_timeout call that conflicts with explicit time-bounds, ...).
	CodeInvalidInput Code = iota
	// CodeInvalidRPC covers Server construction failures: non-http(s)
	// scheme, insecure http without opt-in, or a malformed URI.
	CodeInvalidRPC
	CodeAccountNotFound
	CodeContractDataNotFound
	CodeInvalidSorobanTransaction
	CodeSimulationFailed
	CodeNoFriendbot
	CodeWaitTransactionTimeout
	CodeRPCError
	CodeTransport
	CodeProtocolViolation
	CodeCancelled
	CodeNotImplemented
)

func (c Code) String() string {
	switch c {
	case CodeInvalidInput:
		return "invalid-input"
	case CodeInvalidRPC:
		return "invalid-rpc"
	case CodeAccountNotFound:
		return "account-not-found"
	case CodeContractDataNotFound:
		return "contract-data-not-found"
	case CodeInvalidSorobanTransaction:
		return "invalid-soroban-transaction"
	case CodeSimulationFailed:
		return "simulation-failed"
	case CodeNoFriendbot:
		return "no-friendbot"
	case CodeWaitTransactionTimeout:
		return "wait-transaction-timeout"
	case CodeRPCError:
		return "rpc-error"
	case CodeTransport:
		return "transport"
	case CodeProtocolViolation:
		return "protocol-violation"
	case CodeCancelled:
		return "cancelled"
	case CodeNotImplemented:
		return "not-implemented"
	default:
		return "unknown"
	}
}

// Error is the single error type surfaced to callers of this module. It
// carries everything the caller needs (§7: "no global logging policy;
// errors carry every piece of information the caller needs"), so callers
// switch on Code rather than parsing Error().
type Error struct {
	Code Code
	Msg  string
	Err  error // wrapped underlying cause, if any

	// Populated only for CodeRPCError.
	RPCCode int64
	// Populated only for CodeWaitTransactionTimeout.
	MaxWait time.Duration
	Elapsed time.Duration
	// Populated for CodeSimulationFailed when the server attached
	// diagnostic events to the failed simulation.
	DiagnosticEvents []string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, &stellarrpc.Error{Code: stellarrpc.CodeX}) style
// checks: any *Error target with the same Code matches. Callers are expected
// to type-assert to *Error and compare Code directly; this is provided for
// convenience.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Code == e.Code
}

func newError(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Err: cause}
}

func invalidInputError(format string, args ...interface{}) *Error {
	return newError(CodeInvalidInput, fmt.Sprintf(format, args...), nil)
}

func invalidRPCError(msg string, cause error) *Error {
	return newError(CodeInvalidRPC, msg, cause)
}

func rpcError(code int64, msg string) *Error {
	e := newError(CodeRPCError, msg, nil)
	e.RPCCode = code
	return e
}

func transportError(msg string, cause error) *Error {
	return newError(CodeTransport, msg, cause)
}

func protocolViolationError(msg string, cause error) *Error {
	return newError(CodeProtocolViolation, msg, cause)
}

func cancelledError(cause error) *Error {
	return newError(CodeCancelled, "operation cancelled", cause)
}

func waitTimeoutError(maxWait, elapsed time.Duration) *Error {
	e := newError(CodeWaitTransactionTimeout, fmt.Sprintf("wait_transaction exceeded max_wait=%s after %s", maxWait, elapsed), nil)
	e.MaxWait = maxWait
	e.Elapsed = elapsed
	return e
}
