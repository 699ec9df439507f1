// Package domain defines the core domain models for wrought.
//
// Domain models are pure value objects without any IO dependencies.
// This package contains:
//
//   - Fingerprint: digest algorithms, options and verification results
//   - Snapshot: catalog entries, rollback results and row diffs
//   - Drift: per-column verdicts and drift reports
//   - Audit: chain-of-custody log entries and stored fingerprints
//   - Errors: the failure taxonomy shared by every core operation
//
// String-typed options (algorithm names, verdict tags) are resolved into
// closed enums here, once, at the API boundary.
package domain
