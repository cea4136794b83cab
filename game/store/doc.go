// Package store provides the session storage backends.
//
// Three implementations of service.SessionStore are available:
//
//   - MemoryStore: in-process map, the default and the test double
//   - SQLiteStore: single-file SQLite database (the bot's original backend)
//   - RedisStore: JSON values with per-participant index sets
//
// All backends behave identically with respect to the store contract:
// lookups return (nil, nil) for absent sessions, Update fails with
// service.ErrNotFound when a session was concurrently deleted, and Delete
// of an absent session is a no-op. Mutual exclusion for read-modify-write
// sequences is the lifecycle manager's responsibility, not the store's.
package store
