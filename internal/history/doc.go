// Package history persists job transitions to a SQLite file under the state
// directory.
//
// The in-memory job store stays canonical for the running daemon; history is
// an append-only audit trail. Writes are best-effort: a failed insert is
// logged and dropped, never surfaced to the job lifecycle. The read side
// exists only for the history command.
package history
