// Package harness runs load order scenarios described in YAML against a
// real game handle in a scratch directory.
//
// # Scenario Format
//
//	name: sync_repair
//	description: "Active plugins missing from loadorder.txt are appended"
//	game: skyrim
//	plugins:
//	  - { name: Skyrim.esm, master: true }
//	  - { name: A.esp }
//	  - { name: Broken.esp, invalid: true }
//	files:
//	  order: [Skyrim.esm, A.esp]
//	  active: [A.esp]
//	steps:
//	  - op: activate
//	    name: B.esp
//	    expect:
//	      code: OK
//	      active: [Skyrim.esm, A.esp, B.esp]
//	assertions:
//	  - type: final_state
//	    order: [Skyrim.esm, A.esp, B.esp]
//	  - type: file_lines
//	    file: active
//	    lines: [Skyrim.esm, A.esp, B.esp]
//
// Plugins are written in the listed order with modification times one
// minute apart. Opening the handle is always the first trace event.
//
// # Operations
//
//   - load: re-read the state from disk
//   - set_load_order: names
//   - set_active: names
//   - activate, deactivate: name
//   - move: name, index
//   - restore: entry (1-based journal sequence)
//   - touch: name, minutes (external mtime edit, relative to the first plugin)
//   - write_file: file (order|active), lines (external edit)
//
// # Determinism
//
// The journal lives in an in-memory database with sequential IDs and a
// deterministic clock, so traces and golden files are reproducible.
package harness
