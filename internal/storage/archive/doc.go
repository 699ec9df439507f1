// Package archive writes and reads checksummed ledger backup files.
//
// Archives live in one directory and are named by creation time:
//
//	archive-<timestamp>-<sequence>.wia
//	[magic:8 "WIARCHIV"]
//	[HeaderLen:4][HeaderJSON:HeaderLen]
//	[Payload]                    (Badger backup stream)
//	[checksum:32 SHA-256 of all bytes above]
//
// Files are written to a temporary name and renamed into place, so a crash
// never leaves a partial archive under its final name. Retention keeps the
// newest archives and removes the rest.
package archive
