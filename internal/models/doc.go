// Package models defines domain entities and persistence interfaces for the animx animation client.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing backend API data
//   - [Conversation] : Named grouping of generation jobs belonging to a user
//   - [Job] : Server-tracked generation work with a polled [Status] lifecycle
//   - [Message] : One turn in a conversation transcript (user prompt or assistant result)
//   - [JobPage] : One page of a paginated job listing
//
// 2. Persistent Entities: Database-backed cache models with full lifecycle management
//   - [CachedConversation] : Locally cached conversations with sync metadata
//   - [CachedJob] : Locally cached jobs for offline history browsing
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
//
// [Status] models the backend's open tag set: a closed enum of known tags
// plus free-form transitional detail ("rendering (retry 2/3)") matched by
// prefix for display purposes only. Terminal decisions always use exact
// matches on completed/failed.
package models
