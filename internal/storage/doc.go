// Package storage defines the storage collaborator contracts for wrought.
//
// The core services never talk to a database directly. They depend on the
// interfaces in this package:
//
//   - Reader: introspection, ordered chunked scans, row counts and catalog lookups
//   - Tx: a Reader plus the mutations that must commit together
//   - TableEngine: a Reader that can run a function inside one transaction
//
// The SQLite implementation lives in storage/sqlite. The Badger-backed
// audit log and fingerprint registry live in storage/ledger, and its
// checksummed backup archives in storage/archive.
package storage
