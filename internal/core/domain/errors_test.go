package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError(KindNotFound, "WI-TEST-1000", "test message"),
			expected: "[WI-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError(KindNotFound, "WI-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[WI-TEST-1001] test message: extra info",
		},
		{
			name: "error with details and cause",
			err: NewDomainError(KindStorage, "WI-TEST-1002", "test message").
				WithDetails("copy orders").WithCause(errors.New("disk full")),
			expected: "[WI-TEST-1002] test message: copy orders: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError(KindNotFound, "WI-TEST-1000", "message 1")
	err2 := NewDomainError(KindNotFound, "WI-TEST-1000", "message 2") // Same code, different message
	err3 := NewDomainError(KindNotFound, "WI-TEST-1001", "message 1") // Different code

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}

	detailed := ErrSnapshotNotFound.WithDetails("pre")
	if !errors.Is(detailed, ErrSnapshotNotFound) {
		t.Error("errors.Is should match a sentinel after WithDetails")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := ErrStorage.WithCause(cause)

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
	if errors.Unwrap(ErrStorage) != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestDomainError_WithDetailsDoesNotMutate(t *testing.T) {
	withDetails := ErrInvalidOptions.WithDetails("chunk size must be positive")

	if ErrInvalidOptions.Details != "" {
		t.Error("WithDetails should not modify original error")
	}
	if withDetails.Kind != KindInvalidOptions {
		t.Errorf("Kind = %v, want %v", withDetails.Kind, KindInvalidOptions)
	}
	if withDetails.Code != ErrInvalidOptions.Code {
		t.Errorf("Code = %q, want %q", withDetails.Code, ErrInvalidOptions.Code)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"table not found", ErrTableNotFound, KindNotFound},
		{"snapshot not found", ErrSnapshotNotFound.WithDetails("pre"), KindNotFound},
		{"fingerprint not found", ErrFingerprintNotFound, KindNotFound},
		{"already exists", ErrSnapshotExists, KindAlreadyExists},
		{"invalid options", ErrInvalidOptions, KindInvalidOptions},
		{"wrapped storage", fmt.Errorf("create: %w", ErrStorage.WithCause(errors.New("io"))), KindStorage},
		{"mismatch", ErrVerificationMismatch, KindMismatch},
		{"drift", ErrDriftDetected, KindMismatch},
		{"plain error", errors.New("boom"), KindUnknown},
		{"nil", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}

	if !IsNotFound(ErrTableNotFound) || IsNotFound(ErrSnapshotExists) {
		t.Error("IsNotFound classification wrong")
	}
	if !IsAlreadyExists(ErrSnapshotExists) {
		t.Error("IsAlreadyExists classification wrong")
	}
	if !IsInvalidOptions(ErrInvalidOptions) {
		t.Error("IsInvalidOptions classification wrong")
	}
	if !IsStorage(ErrStorage) {
		t.Error("IsStorage classification wrong")
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"domain error", ErrSnapshotNotFound, "WI-SNAP-4040"},
		{"wrapped domain error", fmt.Errorf("wrapped: %w", ErrSnapshotExists), "WI-SNAP-4090"},
		{"regular error", fmt.Errorf("regular error"), ""},
		{"nil error", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	tests := map[Kind]string{
		KindUnknown:        "unknown",
		KindNotFound:       "not_found",
		KindAlreadyExists:  "already_exists",
		KindInvalidOptions: "invalid_options",
		KindStorage:        "storage_error",
		KindMismatch:       "verification_mismatch",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}
