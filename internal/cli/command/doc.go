// Package command provides CLI command definitions for wi.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: Root command, global flags, exit codes
//   - env.go: Per-invocation configuration, stores and audit trail
//   - hash.go: Fingerprint create, verify and history
//   - snapshot.go: Snapshot create, list and delete
//   - rollback.go: Rollback and dry-run diff
//   - drift.go: Drift check against a baseline snapshot
//   - log.go: Audit log viewing, ledger maintenance and backup archives
//   - config.go: Effective configuration and its sources
//   - version.go: Build information
//
// Commands follow a consistent pattern of parsing arguments,
// calling the appropriate service, recording an audit entry
// and formatting output.
package command
