package core

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors.
var (
	// ErrNotFound indicates that no snapshot matched the query.
	ErrNotFound = errors.New("snapshot not found")

	// ErrCorruptData indicates that a stored snapshot failed to parse or
	// failed its content-hash check. It is skipped during scans, never fatal.
	ErrCorruptData = errors.New("corrupt snapshot data")

	// ErrReferentialIntegrity indicates a missing hash-chain link
	// (an ADJUSTED without its BASE, or a FINAL without its ADJUSTED).
	ErrReferentialIntegrity = errors.New("hash chain link missing")

	// ErrGateConflict indicates a loaded payload failed its stage gate
	// during read-time re-validation.
	ErrGateConflict = errors.New("payload failed gate re-validation")
)

// Validation reason codes.
const (
	CodeUnsupportedCurrency = "UNSUPPORTED_CURRENCY"
	CodeEmptyLineSet        = "EMPTY_LINE_SET"
	CodeInvalidNumericField = "INVALID_NUMERIC_FIELD"
	CodeTotalsMismatch      = "TOTALS_MISMATCH"
)

// ValidationError is a rejected input. It is surfaced synchronously to the
// caller and no document is written.
type ValidationError struct {
	Code        string
	Field       string
	Message     string
	Diagnostics []string
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Code)
	if e.Field != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Field)
		sb.WriteString(")")
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	return sb.String()
}

// StorageError is an underlying storage failure. It is fatal and surfaced
// immediately; retry policy belongs to the caller.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
