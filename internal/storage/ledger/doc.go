// Package ledger is the chain-of-custody store behind the wi CLI.
//
// It keeps two append-only collections in a Badger database: audit entries
// for every mutating or verifying command, and fingerprint records that
// later verifications can compare against. Keys carry ULID suffixes so
// reverse iteration yields the most recent records first.
package ledger
