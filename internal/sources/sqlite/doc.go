// Package sqlite stores catalog targets in a SQLite database and serves them
// to the reconciler as a paged catalog.TargetSource.
//
// The schema is managed with goose migrations embedded in the binary. Writes
// go through Upsert and Delete, which back the "targets add" and
// "targets remove" commands; each Upsert mints a new version stamp.
package sqlite
