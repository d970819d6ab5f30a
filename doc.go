// Package social provides the identity, session, and social-graph engine for
// a short-form video platform: a local persistent cache that is authoritative
// for reads, a pluggable remote identity provider, and best-effort mirroring
// into a remote profile store.
//
// Session lifecycle:
//   - Session is a process-local pointer in one of three modes: none, guest,
//     or authenticated. SessionManager owns every transition, persists the
//     pointer through SessionStore, and gates authenticated mode on email
//     verification and the absence of an active account ban.
//   - Moderation and delete cascades force the acting identity out through
//     the SessionRevoker seam, so a ban takes effect immediately.
//
// Profiles and follows:
//   - Directory maintains the profile set: registration with allow-list role
//     derivation, rate-limited diff-only edits, case-insensitive unique
//     usernames, pinning, and delete-with-cascade.
//   - FollowGraph keeps a directed edge set with optimistic toggles that roll
//     back when the remote mirror rejects the change.
//
// Moderation:
//   - Warnings are append-only; account and per-content bans carry an
//     optional expiry that is interpreted lazily at read time, never swept by
//     a background job.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter describing session,
//     profile, follow, and moderation events. Sinks run best-effort (errors
//     are logged) so you can forward to a database or queue without blocking
//     the calling operation.
package social
