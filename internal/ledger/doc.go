// Package ledger records encode runs in a SQLite database so past packs can
// be listed and traced back to their source.
//
// The schema lives in schema.sql and is created on first open. Changing it
// requires bumping schemaVersion; older databases are rejected rather than
// migrated.
package ledger
