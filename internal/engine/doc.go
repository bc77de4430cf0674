// Package engine implements the load order engine of one game installation.
//
// The engine owns the in-memory load order and active set, chooses nothing
// about persistence itself (an OrderStore does that) and guarantees that
// every mutation is all-or-nothing from the caller's point of view.
//
// STATES:
//
//	Uninitialized --Load--> Loaded --(any successful call)--> Loaded
//
// Mutations before the first successful Load fail with InvalidArgs. There is
// no dirty state visible to callers.
//
// MUTATION FLOW:
//  1. Snapshot the current state
//  2. Compute the complete candidate state
//  3. Validate the candidate (package validate); nothing is written before
//     this passes
//  4. Persist through the store
//  5. On failure: have the store revert every file it touched to its
//     previous content and modification time, and keep the snapshot as the
//     current state; on success: commit the candidate and journal it
//
// THREAD-SAFETY:
// An Engine is not safe for concurrent use. Callers needing concurrency must
// serialise access themselves. The engine performs no cross-process locking;
// Load re-reads everything from disk so external edits are picked up there.
package engine
