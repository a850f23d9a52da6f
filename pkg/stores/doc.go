// Package stores provides the persistence layer. The authoritative state
// lives in the in-memory registries; the store is a durable mirror written
// through on every mutation and read back in full at startup via Restore.
// The only implementation is SQLite with embedded migrations and WAL mode.
package stores
