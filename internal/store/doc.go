// Package store provides SQLite-backed storage for compiled catalogs.
//
// A catalog is written once per content hash (ir.CatalogHash) and can be
// read back as an ir.Catalog, which is an engine.Reader. Names are aliases
// that point at the most recently imported hash, so re-importing an edited
// catalog under the same name keeps the old version addressable by hash.
//
// Selections are never stored: a configurator session always starts from
// the catalog's initial state.
//
// # Ordering
//
// Every row carries its declaration position and reads use
// ORDER BY position ASC, so a read reproduces display order exactly.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Name lists and limit maps are stored as canonical JSON text (see
// ir.MarshalCanonical), so stored rows are byte-stable across imports.
package store
