// Package store defines the persistence interfaces consumed by the
// pipeline (items, generation attempts, batch jobs, vectorize jobs),
// the sentinel errors store implementations must return, and a small
// transaction helper. Concrete implementations live under
// internal/platform.
package store
