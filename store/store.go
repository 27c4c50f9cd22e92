// Package store defines the abstract backing tabular store collaborator
// and the per-row variable-derivation pipeline layered on top of it.
//
// The concrete tabular store (SQL connection, schema layout) is an
// external collaborator out of scope for this module; RowSource is the
// seam the Simulation/Realization tree queries through.
package store

import (
	"context"
	"time"

	"github.com/zalf-rpm/agroclimate/acd"
)

// Query describes a single request for backing-store rows: the columns
// (ACDs) to fetch for one station/location over an inclusive date range.
// Queries are always issued in calendar order with Feb-29 excluded by
// construction.
type Query struct {
	Station   string // backend row-key, station.Station.DBKey
	Scenario  string
	Realization string
	ACDs      acd.Set
	Start, End time.Time
}

// Columns holds the raw backing-store result: one ordered float64 column
// per requested ACD, in calendar order with Feb-29 removed. All columns
// have equal length.
type Columns map[acd.ACD][]float64

// RowSource is the abstract tabular backing store: a table query engine
// returning ordered rows. Implementations back onto whatever concrete
// table layout a simulation product uses (MySQL, SQLite, a columnar
// file); this module never assumes one.
type RowSource interface {
	// Execute runs q and returns one column per q.ACDs. A backing-store
	// failure must not be surfaced as an error to the caller: the
	// implementation should log and return empty columns, leaving the
	// caller's cache untouched.
	Execute(ctx context.Context, q Query) (Columns, error)
}

// RowSourceFunc adapts a function to a RowSource.
type RowSourceFunc func(ctx context.Context, q Query) (Columns, error)

// Execute calls f.
func (f RowSourceFunc) Execute(ctx context.Context, q Query) (Columns, error) { return f(ctx, q) }
