// Package ledger records which source videos the pipeline has already
// handled, keyed by path, size and modification time.
//
// The ledger is advisory. The approval store stays authoritative for request
// state; the ledger only lets the watcher's startup scan skip files that
// already produced a dry run, a pending request or an upload, and backs the
// history command.
package ledger
