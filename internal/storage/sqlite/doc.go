// Package sqlite implements the storage collaborator on SQLite.
//
// It uses sqlx over the pure-Go modernc.org/sqlite driver. Snapshots are
// physical tables named _wi_snap_<ulid>, catalogued in
// _wi_snapshot_catalog. Every mutation runs inside the caller's
// transaction; DDL is transactional in SQLite, so a failed snapshot create
// or rollback leaves no trace.
package sqlite
