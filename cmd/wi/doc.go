// Package main provides the entry point for wi.
//
// wi fingerprints tables in a SQLite database, keeps named snapshots of
// them, rolls tables back to a snapshot and checks numeric columns for
// statistical drift against a baseline. Every mutating or verifying
// command is recorded in a local audit ledger.
package main
