// Package plugin describes the plugin files found in a game's plugin
// directory.
//
// A Record is built for every plugin file a scan finds. Records are
// immutable; a fresh scan produces fresh records. Plugin names are compared
// case-insensitively everywhere (see Key), but the on-disk case is kept for
// output.
//
// Filenames must be representable in Windows-1252, the single-byte encoding
// the game engines use for plugin names. A name that is not representable is
// still scanned and reported with a BadFilename warning, but the plugin can
// never be activated.
package plugin
