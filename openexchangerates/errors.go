package openexchangerates

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType classifies failures returned by the client.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeInvalidArgument
	ErrorTypeRemote
	ErrorTypeCancelled
	ErrorTypeDecode
	ErrorTypeTransport
)

func (errorType ErrorType) String() string {
	switch errorType {
	case ErrorTypeInvalidArgument:
		return "invalid_argument"
	case ErrorTypeRemote:
		return "remote"
	case ErrorTypeCancelled:
		return "cancelled"
	case ErrorTypeDecode:
		return "decode"
	case ErrorTypeTransport:
		return "transport"
	default:
		return "unknown"
	}
}

var (
	// ErrNotImplemented is returned when a decode-only type is asked to encode itself.
	ErrNotImplemented = errors.New("openexchangerates: not implemented")

	// ErrClientClosed is returned by operations invoked after Close.
	ErrClientClosed = errors.New("openexchangerates: client is closed")
)

// Error is the error returned by every client operation except for ErrClientClosed.
//
// For remote failures Error() is exactly the reason phrase sent by the server.
type Error struct {
	Type       ErrorType
	Op         string
	Param      string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func invalidArgument(op, param string) *Error {
	return &Error{
		Type:    ErrorTypeInvalidArgument,
		Op:      op,
		Param:   param,
		Message: fmt.Sprintf("invalid argument %q", param),
	}
}

func remoteFailure(op string, statusCode int, reason string) *Error {
	return &Error{
		Type:       ErrorTypeRemote,
		Op:         op,
		StatusCode: statusCode,
		Message:    reason,
	}
}

func decodeFailure(op string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeDecode,
		Op:      op,
		Message: "failed to decode response",
		Cause:   cause,
	}
}

// requestFailure distinguishes a cancelled context from a transport error.
func requestFailure(ctx context.Context, op string, cause error) *Error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &Error{
			Type:    ErrorTypeCancelled,
			Op:      op,
			Message: "request cancelled",
			Cause:   ctxErr,
		}
	}
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return &Error{
			Type:    ErrorTypeCancelled,
			Op:      op,
			Message: "request cancelled",
			Cause:   cause,
		}
	}
	return &Error{
		Type:    ErrorTypeTransport,
		Op:      op,
		Message: "failed to make request",
		Cause:   cause,
	}
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var clientError *Error
	if errors.As(err, &clientError) {
		return clientError.Type
	}
	return ErrorTypeUnknown
}

func IsInvalidArgument(err error) bool { return TypeOf(err) == ErrorTypeInvalidArgument }

func IsRemote(err error) bool { return TypeOf(err) == ErrorTypeRemote }

func IsCancelled(err error) bool { return TypeOf(err) == ErrorTypeCancelled }

func IsDecode(err error) bool { return TypeOf(err) == ErrorTypeDecode }
