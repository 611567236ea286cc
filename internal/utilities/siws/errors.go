package siws

import (
	"errors"
	"fmt"
)

// Error classes. Use errors.Is to branch on them.
var (
	ErrInvalidInput   = errors.New("siws: invalid input")
	ErrParseFailure   = errors.New("siws: message does not match the sign-in grammar")
	ErrMalformedInput = errors.New("siws: malformed verification input")
)

// Validation errors
var (
	ErrDomainMismatch     = errors.New("siws: domain does not match the expected domain")
	ErrAddressMismatch    = errors.New("siws: address does not match the expected address")
	ErrNonceMismatch      = errors.New("siws: nonce does not match the expected nonce")
	ErrChainIDMismatch    = errors.New("siws: Chain ID does not match the expected Chain ID")
	ErrMissingNonce       = errors.New("siws: Nonce is not specified")
	ErrMissingIssuedAt    = errors.New("siws: Issued At is not specified")
	ErrInvalidTimestamp   = errors.New("siws: timestamp is not a valid ISO8601 timestamp")
	ErrMessageExpired     = errors.New("siws: message is expired")
	ErrMessageNotYetValid = errors.New("siws: message is not valid yet")
	ErrIssuedInFuture     = errors.New("siws: message is issued in the future")
	ErrIssuedTooLongAgo   = errors.New("siws: message was issued too long ago")
)

// InvalidInputError is returned by ConstructMessage when a SignInInput cannot
// be rendered.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("siws: invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ParseError is returned by ParseMessage. Line is the zero based index of the
// offending line, or -1 when the failure is not tied to a single line.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line < 0 {
		return fmt.Sprintf("siws: unable to parse message: %s", e.Reason)
	}
	return fmt.Sprintf("siws: unable to parse message at line %d: %s", e.Line, e.Reason)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParseFailure
}

// MalformedInputError is returned when verifier preconditions do not hold.
type MalformedInputError struct {
	Reason string
}

func (e *MalformedInputError) Error() string {
	return "siws: " + e.Reason
}

func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}

func invalidInput(field, reason string) error {
	return &InvalidInputError{Field: field, Reason: reason}
}

func parseFailure(line int, format string, args ...any) error {
	return &ParseError{Line: line, Reason: fmt.Sprintf(format, args...)}
}

func malformed(format string, args ...any) error {
	return &MalformedInputError{Reason: fmt.Sprintf(format, args...)}
}
