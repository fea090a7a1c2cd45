// Package repositories implements SQLite persistence for the local history cache.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [ConversationRepository] : Conversation cache with remote-id lookups and upserts
//   - [JobRepository] : Generation history cache with per-conversation and per-status queries
//
// Sequence numbers provide stable, human-readable ordering (e.g., conversation #4, job #27) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
