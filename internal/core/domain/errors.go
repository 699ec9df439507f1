package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a DomainError into the failure taxonomy callers branch on.
type Kind int

const (
	// KindUnknown is reported for errors that are not DomainErrors.
	KindUnknown Kind = iota
	KindNotFound
	KindAlreadyExists
	KindInvalidOptions
	KindStorage
	// KindMismatch marks a negative verification outcome. It is never
	// returned by a core operation, only derived from a result.
	KindMismatch
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindInvalidOptions:
		return "invalid_options"
	case KindStorage:
		return "storage_error"
	case KindMismatch:
		return "verification_mismatch"
	default:
		return "unknown"
	}
}

// DomainError represents a core error with a structured error code.
//
// Codes have the form WI-<AREA>-<NNNN>, where the trailing number borrows
// the nearest HTTP status for readability.
type DomainError struct {
	Kind    Kind   // Failure class
	Code    string // Error code (e.g., "WI-SNAP-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given kind, code and message.
func NewDomainError(kind Kind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithDetailsf is WithDetails with fmt.Sprintf formatting.
func (e *DomainError) WithDetailsf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// KindOf returns the Kind of err, or KindUnknown if err is not a DomainError.
func KindOf(err error) Kind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a NotFound failure.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsAlreadyExists reports whether err is an AlreadyExists failure.
func IsAlreadyExists(err error) bool { return KindOf(err) == KindAlreadyExists }

// IsInvalidOptions reports whether err is an InvalidOptions failure.
func IsInvalidOptions(err error) bool { return KindOf(err) == KindInvalidOptions }

// IsStorage reports whether err is a StorageError failure.
func IsStorage(err error) bool { return KindOf(err) == KindStorage }

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Lookup Errors
// ============================================================================

var (
	// ErrTableNotFound indicates the dataset does not exist.
	ErrTableNotFound = NewDomainError(KindNotFound, "WI-TABL-4040", "table not found")

	// ErrColumnNotFound indicates a referenced column does not exist.
	ErrColumnNotFound = NewDomainError(KindNotFound, "WI-COLM-4040", "column not found")

	// ErrSnapshotNotFound indicates no catalog entry matches (table, name).
	ErrSnapshotNotFound = NewDomainError(KindNotFound, "WI-SNAP-4040", "snapshot not found")

	// ErrSnapshotExists indicates (table, name) is already catalogued.
	ErrSnapshotExists = NewDomainError(KindAlreadyExists, "WI-SNAP-4090", "snapshot already exists")

	// ErrFingerprintNotFound indicates no fingerprint has been recorded for
	// a table.
	ErrFingerprintNotFound = NewDomainError(KindNotFound, "WI-FPRT-4040", "fingerprint not found")

	// ErrArchiveNotFound indicates no ledger backup archive matches a reference.
	ErrArchiveNotFound = NewDomainError(KindNotFound, "WI-ARCH-4040", "archive not found")
)

// ============================================================================
// Option Errors
// ============================================================================

var (
	// ErrInvalidOptions indicates a malformed algorithm, threshold or chunk size.
	ErrInvalidOptions = NewDomainError(KindInvalidOptions, "WI-OPTS-4000", "invalid options")
)

// ============================================================================
// Storage Errors
// ============================================================================

var (
	// ErrStorage indicates an I/O or transaction failure in the storage collaborator.
	ErrStorage = NewDomainError(KindStorage, "WI-STOR-5000", "storage error")
)

// ============================================================================
// Verification
// ============================================================================

var (
	// ErrVerificationMismatch describes a negative verification outcome.
	// Verify never returns it; see VerificationResult.Err.
	ErrVerificationMismatch = NewDomainError(KindMismatch, "WI-VRFY-4120", "fingerprint mismatch")

	// ErrDriftDetected describes a drift report with at least one drifted
	// column. Compare never returns it; see DriftReport.Err.
	ErrDriftDetected = NewDomainError(KindMismatch, "WI-DRFT-4120", "drift detected")

	// ErrArchiveCorrupt indicates a ledger backup archive failed its
	// checksum or format check.
	ErrArchiveCorrupt = NewDomainError(KindMismatch, "WI-ARCH-4120", "archive corrupt")
)
