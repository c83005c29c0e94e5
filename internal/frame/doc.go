// Package frame provides the in-memory rectangular table that specs run on.
//
// A Frame holds ordered, named columns of cells. A cell is one of nil
// (missing), int64, float64, string or bool; NaN floats are stored as nil.
// Every row carries a stable identity (RowID) that survives Filter and Take,
// so set operations on row subsets (union, complement) work by identity
// rather than by position.
//
// Frames are immutable: every operation returns a new Frame and never
// mutates its receiver. Cell slices are shared between a frame and the
// frames derived from it, which is safe because nothing writes to them.
//
// Frames are loaded from CSV (ReadCSV) or from a SQLite table
// (LoadSQLite). SQLite is only a source here; the table is read fully into
// memory.
package frame
