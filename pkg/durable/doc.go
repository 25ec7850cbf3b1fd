// Package durable makes a streaming chat conversation survive an abrupt
// process restart.
//
// Every observable step of a conversation is recorded in an append-only
// journal before it is handed to the caller. After a restart the same
// calls replay deterministically from the journal instead of contacting
// the backend; when the journal runs out before the conversation finished,
// the stream reconstructs a continuation prompt from the partial response
// already delivered and resumes with a fresh live backend call, without
// re-emitting anything the caller has already seen.
//
// The journal is a capability interface: the Badger-backed implementation
// in this package is one choice, and hosts can supply their own ordered
// record/replay facility.
package durable
