// Package service provides the core services for wrought.
//
// Services orchestrate domain models over the storage collaborator
// contracts in internal/storage. They hold no state between calls and
// never retry.
//
// This package contains:
//
//   - FingerprintService: deterministic content digests and verification
//   - SnapshotService: the snapshot catalog and staged rollback
//   - DriftService: per-column Kolmogorov-Smirnov comparison against a snapshot
//
// Every error returned is a *domain.DomainError.
package service
