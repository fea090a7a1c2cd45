// Package session holds the client-side state for the animation client: the
// conversation list, the materialized message transcript, the in-flight
// generation fields, and the fallback API key gate.
//
// # Single Writer, Guarded Mutations
//
// All state lives in one [Session] and every mutation goes through a named
// operation. Generation mutators take the run token returned by
// [Session.StartGeneration] and become no-ops once a newer run supersedes
// them, so a stale polling loop can never resurrect old state.
//
// # Transcript Projection
//
// Loading a conversation replaces the whole transcript with a deterministic
// projection of its persisted jobs ([ProjectTranscript]). The transcript is
// therefore always either a fresh projection or the live append-only
// sequence of the current generation run, never a merge of both.
//
// # Key Gate
//
// A quota-exhausted submission (HTTP 402) flips the key-required flag
// instead of surfacing a failure. Supplying a key via [Session.SetAPIKey]
// clears the flag but never resubmits the prior prompt; the stored key is
// persisted through [Credentials] so it survives restarts.
package session
