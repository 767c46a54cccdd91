// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// InputErrorCode categorizes degenerate input.
type InputErrorCode string

const (
	ErrCodeEmptyInput       InputErrorCode = "EMPTY_INPUT"
	ErrCodeNoKernels        InputErrorCode = "NO_KERNELS"
	ErrCodeUnknownDirective InputErrorCode = "UNKNOWN_DIRECTIVE"
	ErrCodeInvalidOption    InputErrorCode = "INVALID_OPTION"
)

// InputError reports an empty or degenerate document, or an unusable option.
type InputError struct {
	Code    InputErrorCode
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInputError creates an InputError with a formatted message.
func NewInputError(code InputErrorCode, format string, args ...any) *InputError {
	return &InputError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// StabilityError reports consensus agreement below the required threshold.
type StabilityError struct {
	MeanJaccard float64
	Threshold   float64
	Stability   ConsensusStability
}

func (e *StabilityError) Error() string {
	return fmt.Sprintf("STABILITY_BELOW_THRESHOLD: mean jaccard %.4g < threshold %.4g (min %.4g, max %.4g, %d comparisons)",
		e.MeanJaccard, e.Threshold, e.Stability.MinJaccard, e.Stability.MaxJaccard, e.Stability.Comparisons)
}

// OracleErrorKind categorizes oracle failures.
type OracleErrorKind string

const (
	OracleTimeout   OracleErrorKind = "timeout"
	OracleMalformed OracleErrorKind = "malformed"
	OracleUpstream  OracleErrorKind = "upstream"

	// OracleRejected is a client error from the provider, such as a bad
	// API key or an invalid request. Repeating the call cannot help.
	OracleRejected OracleErrorKind = "rejected"
)

// OracleError wraps a failed oracle call. Op names the call site
// (extract, cluster, verify, restore, press).
type OracleError struct {
	Kind OracleErrorKind
	Op   string
	Err  error
}

func (e *OracleError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("oracle %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("oracle %s (%s): %v", e.Kind, e.Op, e.Err)
}

func (e *OracleError) Unwrap() error { return e.Err }

// Temporary reports whether a retry might succeed. Malformed output and
// rejected requests are never retried.
func (e *OracleError) Temporary() bool {
	return e.Kind == OracleTimeout || e.Kind == OracleUpstream
}

// CacheError reports an on-disk cache failure. It is logged and a fresh
// computation substitutes for the missing value.
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// IsInputError reports whether err wraps an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// IsStabilityError reports whether err wraps a StabilityError.
func IsStabilityError(err error) bool {
	var se *StabilityError
	return errors.As(err, &se)
}

// IsOracleError reports whether err wraps an OracleError.
func IsOracleError(err error) bool {
	var oe *OracleError
	return errors.As(err, &oe)
}

// IsMalformed reports whether err wraps an OracleError of kind malformed.
func IsMalformed(err error) bool {
	var oe *OracleError
	if errors.As(err, &oe) {
		return oe.Kind == OracleMalformed
	}
	return false
}
