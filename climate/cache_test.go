package climate

import (
	"context"
	"testing"
	"time"

	"github.com/zalf-rpm/agroclimate/acd"
	"github.com/zalf-rpm/agroclimate/geo"
	"github.com/zalf-rpm/agroclimate/store"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// constQuery returns one call-recording QueryFunc that fills every
// requested ACD with its day offset (0, 1, 2, ...) as the value, so tests
// can check both which days were fetched and how many queries it took.
func constQuery(calls *int) QueryFunc {
	return func(ctx context.Context, acds acd.Set, start, end time.Time) store.Columns {
		*calls++
		n := daysTo365(start, end) + 1
		cols := make(store.Columns, len(acds))
		for _, a := range acds {
			vals := make([]float64, n)
			for i := range vals {
				vals[i] = float64(i)
			}
			cols[a] = vals
		}
		return cols
	}
}

func TestFillCacheForNewEntry(t *testing.T) {
	c := NewCache()
	loc := geo.LatLng{Lat: 52, Lng: 13}
	var calls int
	q := constQuery(&calls)

	sd, ed := day(2000, 1, 1), day(2000, 1, 10)
	c.FillCacheFor(context.Background(), loc, acd.NewSet(acd.Tmin), sd, ed, q)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	da := c.Accessor(loc, acd.NewSet(acd.Tmin), sd, ed)
	if da.IsEmpty() || da.Len() != 10 {
		t.Fatalf("accessor len = %d, want 10", da.Len())
	}
}

func TestFillCacheForAlreadyCoveredSkipsQuery(t *testing.T) {
	c := NewCache()
	loc := geo.LatLng{Lat: 52, Lng: 13}
	var calls int
	q := constQuery(&calls)

	full := day(2000, 1, 1)
	c.FillCacheFor(context.Background(), loc, acd.NewSet(acd.Tmin), full, day(2000, 1, 31), q)
	if calls != 1 {
		t.Fatalf("calls after first fill = %d, want 1", calls)
	}
	// A fully-contained sub-window must not trigger another query.
	c.FillCacheFor(context.Background(), loc, acd.NewSet(acd.Tmin), day(2000, 1, 10), day(2000, 1, 20), q)
	if calls != 1 {
		t.Fatalf("calls after redundant fill = %d, want 1 (no new query)", calls)
	}
}

func TestFillCacheForExtendsLeftAndRight(t *testing.T) {
	c := NewCache()
	loc := geo.LatLng{Lat: 52, Lng: 13}
	var calls int
	q := constQuery(&calls)
	ctx := context.Background()

	c.FillCacheFor(ctx, loc, acd.NewSet(acd.Tmin), day(2000, 2, 1), day(2000, 2, 10), q)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	// Widen on both edges; must cover the union without losing the middle.
	// Extending both sides costs one query per side, on top of the
	// original fill.
	c.FillCacheFor(ctx, loc, acd.NewSet(acd.Tmin), day(2000, 1, 20), day(2000, 2, 20), q)
	if calls != 3 {
		t.Fatalf("calls = %d, want 3 (1 initial + 1 left + 1 right)", calls)
	}
	da := c.Accessor(loc, acd.NewSet(acd.Tmin), day(2000, 1, 20), day(2000, 2, 20))
	if da.IsEmpty() {
		t.Fatal("accessor is empty after extension")
	}
	wantLen := daysTo365(day(2000, 1, 20), day(2000, 2, 20)) + 1
	if da.Len() != wantLen {
		t.Fatalf("accessor len = %d, want %d", da.Len(), wantLen)
	}
}

func TestOffsetStableAcrossLeftExtension(t *testing.T) {
	c := NewCache()
	loc := geo.LatLng{Lat: 52, Lng: 13}
	var calls int
	q := constQuery(&calls)
	ctx := context.Background()

	c.FillCacheFor(ctx, loc, acd.NewSet(acd.Tmin), day(2000, 2, 1), day(2000, 2, 10), q)
	anchor := day(2000, 2, 5)
	off := c.NewOffset(loc, acd.Tmin, anchor)
	before := off.Index()

	// Extend the window to the left by 10 days.
	c.FillCacheFor(ctx, loc, acd.NewSet(acd.Tmin), day(2000, 1, 22), day(2000, 2, 10), q)

	after := off.Index()
	if before == after {
		t.Fatalf("offset did not shift after left extension: before=%d after=%d", before, after)
	}
	// The offset must still resolve to the same calendar date.
	da := c.Accessor(loc, acd.NewSet(acd.Tmin), day(2000, 1, 22), day(2000, 2, 10))
	if da.IndexOf(anchor) != after {
		t.Fatalf("offset %d does not match recomputed index %d for %v", after, da.IndexOf(anchor), anchor)
	}
}

func TestFillCacheForGroupsSharedWindow(t *testing.T) {
	c := NewCache()
	loc := geo.LatLng{Lat: 52, Lng: 13}
	var calls int
	q := constQuery(&calls)
	ctx := context.Background()

	// Two ACDs share the same initial window, so one extension request
	// covering both must issue a single batched query, not two.
	c.FillCacheFor(ctx, loc, acd.NewSet(acd.Tmin, acd.Tmax), day(2000, 1, 1), day(2000, 1, 10), q)
	if calls != 1 {
		t.Fatalf("calls after initial fill = %d, want 1", calls)
	}
	c.FillCacheFor(ctx, loc, acd.NewSet(acd.Tmin, acd.Tmax), day(2000, 1, 1), day(2000, 1, 20), q)
	if calls != 2 {
		t.Fatalf("calls after shared extension = %d, want 2 (batched)", calls)
	}
}

// TestFillCacheForQueriesExactlyTheGap mirrors the canonical two-step
// extension scenario: fill [Jan 1, Jan 31], then [Jan 10, Feb 15]. The
// backing store must be queried exactly for [Jan 1, Jan 31] and then
// [Feb 1, Feb 15] — never the whole [Jan 1, Feb 15] span again.
func TestFillCacheForQueriesExactlyTheGap(t *testing.T) {
	c := NewCache()
	loc := geo.LatLng{Lat: 52, Lng: 13}
	var windows [][2]time.Time
	q := func(ctx context.Context, acds acd.Set, start, end time.Time) store.Columns {
		windows = append(windows, [2]time.Time{start, end})
		n := daysTo365(start, end) + 1
		vals := make([]float64, n)
		return store.Columns{acd.Tmin: vals}
	}
	ctx := context.Background()

	c.FillCacheFor(ctx, loc, acd.NewSet(acd.Tmin), day(2000, 1, 1), day(2000, 1, 31), q)
	c.FillCacheFor(ctx, loc, acd.NewSet(acd.Tmin), day(2000, 1, 10), day(2000, 2, 15), q)

	if len(windows) != 2 {
		t.Fatalf("queried %d windows, want 2: %v", len(windows), windows)
	}
	if !windows[0][0].Equal(day(2000, 1, 1)) || !windows[0][1].Equal(day(2000, 1, 31)) {
		t.Fatalf("first window = %v, want [Jan 1, Jan 31]", windows[0])
	}
	if !windows[1][0].Equal(day(2000, 2, 1)) || !windows[1][1].Equal(day(2000, 2, 15)) {
		t.Fatalf("second window = %v, want [Feb 1, Feb 15]", windows[1])
	}

	da := c.Accessor(loc, acd.NewSet(acd.Tmin), day(2000, 1, 1), day(2000, 2, 15))
	if da.IsEmpty() {
		t.Fatal("accessor empty after the two-step extension")
	}
}

func TestFillCacheForExcludesFeb29FromLength(t *testing.T) {
	c := NewCache()
	loc := geo.LatLng{Lat: 52, Lng: 13}
	var calls int
	q := constQuery(&calls)
	ctx := context.Background()

	// 2000 is a leap year; Feb 1 through Mar 1 spans Feb-29.
	c.FillCacheFor(ctx, loc, acd.NewSet(acd.Tmin), day(2000, 2, 1), day(2000, 3, 1), q)
	da := c.Accessor(loc, acd.NewSet(acd.Tmin), day(2000, 2, 1), day(2000, 3, 1))
	if da.Len() != 29 {
		t.Fatalf("Len() = %d, want 29 (Feb has 28 non-leap days + Mar 1, Feb-29 excluded)", da.Len())
	}
}
