// Package store persists load orders.
//
// Two strategies implement OrderStore, one per load order method:
//
//   - TimestampStore derives the order from plugin modification times and
//     re-stamps files to change it.
//   - TextfileStore keeps the order in loadorder.txt and repairs it against
//     the active plugin list on read.
//
// Both keep the active plugin set in an ActiveList file: plugins.txt for
// most games, the [Game Files] section of Morrowind.ini for Morrowind.
//
// # Writes
//
// Text files are written to a temporary file in the target's directory and
// renamed over the target, so a reader never observes a half-written file.
// Writing two files is not atomic: if the second write fails after the
// first succeeded, the engine calls Revert, which puts back the bytes of
// every file and the modification time of every plugin the Write replaced.
//
// Callers must validate a State before passing it to Write. Stores perform
// no structural checks of their own.
package store
