// Package session persists therapy sessions and their per-stage state
// machines in SQLite. Each session tracks encoding, script, and analyze
// stages independently; jobs claim one READY session at a time and commit
// the outcome transactionally.
package session
