package climate

import (
	"time"

	"github.com/zalf-rpm/agroclimate/acd"
)

// DataAccessor is a read-only view over a contiguous run of daily values
// for a set of variables, returned by a Realization's cache lookup. Its
// arrays are independent copies: mutating a DataAccessor never corrupts
// the cache it was sliced from, and vice versa.
type DataAccessor struct {
	Start, End time.Time
	data       map[acd.ACD][]float64
}

// newDataAccessor builds an accessor from already-cloned arrays.
func newDataAccessor(start, end time.Time, data map[acd.ACD][]float64) DataAccessor {
	return DataAccessor{Start: start, End: end, data: data}
}

// IsEmpty reports whether the accessor carries no data, which happens when
// a fill request could not be satisfied (e.g. the backing store returned
// nothing for a brand-new cache entry).
func (da DataAccessor) IsEmpty() bool { return da.data == nil }

// Values returns the daily values for a, in calendar order over
// [Start, End] with Feb-29 omitted. The returned slice is a fresh copy;
// callers may hold and mutate it freely.
func (da DataAccessor) Values(a acd.ACD) []float64 {
	v, ok := da.data[a]
	if !ok {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// Len returns the number of daily entries this accessor covers.
func (da DataAccessor) Len() int {
	if da.data == nil {
		return 0
	}
	return daysTo365(da.Start, da.End) + 1
}

// At returns the value for a on day index i (0-based from Start). It
// panics if i is out of [0, Len()) or the accessor holds no values for a,
// since callers are expected to have validated coverage first via
// Cache.FillCacheFor.
func (da DataAccessor) At(a acd.ACD, i int) float64 {
	return da.data[a][i]
}

// IndexOf returns the 0-based day offset of d within this accessor's
// window, following the same Feb-29-excluded day count the cache uses
// internally for offsets.
func (da DataAccessor) IndexOf(d time.Time) int {
	return daysTo365(da.Start, d)
}
