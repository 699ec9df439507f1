// Package order derives the canonical row order of a table.
//
// The canonical order is the deterministic row sequence fingerprinting and
// row-by-row comparison read a table in. It is a pure function of the
// table's declared columns, the columns included in an operation and the
// declared primary key.
package order
