// Package ir provides the catalog intermediate representation for moa.
//
// A Catalog is what every reader produces and what the engine consumes: four
// ordered mappings (categories, choices, options, filters) keyed by stable
// name. CUE, YAML and HCL sources and the SQLite store all compile down to
// this shape, so the engine never sees a file format.
//
// This package imports nothing internal. All other internal packages import
// ir; keeping it a leaf avoids circular dependencies.
//
// Key design constraints:
//   - Slice order is declaration order, which is also display order
//   - Names are compared after NFC normalisation (see NormalizeName)
//   - All JSON tags use snake_case
package ir
