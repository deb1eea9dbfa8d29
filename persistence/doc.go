// Package persistence provides best-effort snapshot storage for state
// machines: save/load/delete of (machine id, state name, context payload)
// over memory, Redis, SQL (GORM) and MongoDB backends.
package persistence
