// Package errors provides error handling for rfbridge.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints for operator-facing failures
//
// Usage:
//
//	// Wrap with context
//	if err := blk.SetArgs(args, port); err != nil {
//	    return errors.Wrap(err, "failed to set spp")
//	}
//
//	// Add hints for operators
//	return errors.WithHint(err, "check that the FPGA image contains an FFT block")
//
//	// Check errors
//	if errors.Is(err, errors.ErrConfigRejected) {
//	    // keep the previous value
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// Operator-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Common sentinel errors for use across rfbridge.
// Use these with errors.Is() and wrap them with errors.Wrap() to add context.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = New("operation timed out")
)

// Hardware and streaming sentinels.
var (
	// ErrNoDevice indicates no usable device handle was supplied
	ErrNoDevice = New("no valid device handle")

	// ErrBlockNotFound indicates no hardware block matched a discovery hint
	ErrBlockNotFound = New("hardware block not found")

	// ErrNoAvailablePort indicates the block exists but every channel is already wired
	ErrNoAvailablePort = New("no available block port")

	// ErrStreamInvalid indicates a stream handle stopped accepting or producing data
	ErrStreamInvalid = New("stream no longer valid")

	// ErrOverflow indicates the device dropped samples because the host fell behind
	ErrOverflow = New("overflow")

	// ErrConfigRejected indicates a configuration change was refused and rolled back
	ErrConfigRejected = New("configuration rejected")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound or ErrBlockNotFound
func IsNotFoundError(err error) bool {
	return err != nil && IsAny(err, ErrNotFound, ErrBlockNotFound)
}

// IsConfigRejected checks if an error is or wraps ErrConfigRejected
func IsConfigRejected(err error) bool {
	return err != nil && Is(err, ErrConfigRejected)
}

// IsFatalInit reports whether err belongs to the initialization failures that
// leave a component unusable.
func IsFatalInit(err error) bool {
	return err != nil && IsAny(err, ErrNoDevice, ErrBlockNotFound, ErrNoAvailablePort)
}

// NewConfigRejectedError creates a config-rejected error with a formatted message
func NewConfigRejectedError(format string, args ...interface{}) error {
	return Wrap(ErrConfigRejected, Newf(format, args...).Error())
}

// WrapStreamInvalid marks err as a stream-invalidating failure with context
func WrapStreamInvalid(err error, context string) error {
	return Mark(Wrap(err, context), ErrStreamInvalid)
}
