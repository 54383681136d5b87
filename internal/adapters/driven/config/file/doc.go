// Package file provides the TOML-backed configuration store.
//
// Keys use dot notation ("undo.capacity", "validation.strict_parents");
// nested TOML tables are flattened on load.
package file
