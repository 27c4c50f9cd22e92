package climate

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zalf-rpm/agroclimate/acd"
	"github.com/zalf-rpm/agroclimate/geo"
	"github.com/zalf-rpm/agroclimate/store"
)

// QueryFunc issues one backing-store request for the given ACDs over the
// inclusive calendar range [start, end] at a single location, returning one
// column per ACD. It must never return an error that the cache has to
// surface to its own caller: implementations built on store.RowSource
// should swallow and log backing-store failures themselves, returning
// empty Columns instead, so a transient outage degrades to "nothing new
// was fetched" rather than propagating upward.
type QueryFunc func(ctx context.Context, acds acd.Set, start, end time.Time) store.Columns

// cacheEntry holds one ACD's cached daily run for one location: the
// covered window, the values themselves, and a set of previously handed
// out day offsets that must stay anchored to the same calendar date even
// as the window grows to the left.
type cacheEntry struct {
	initialized bool
	start, end  time.Time
	values      []float64
	offsets     []int
}

// Offset is a stable reference to a calendar date inside a Cache entry,
// obtained via Cache.NewOffset. Its Index keeps pointing at the same date
// even after the entry is extended to the left by a later FillCacheFor
// call, which is the one place plain integer indices would otherwise go
// stale.
type Offset struct {
	entry *cacheEntry
	slot  int
}

// Index returns the day offset this Offset currently refers to.
func (o Offset) Index() int { return o.entry.offsets[o.slot] }

// Cache holds every ACD's daily run for every location a Realization has
// been asked about, extending the covered window on demand. It is the
// heart of the design: requests never re-fetch days already held, and a
// request spanning a wider window than what's cached fetches only the gap
// at each edge, preserving the untouched middle.
type Cache struct {
	mu         sync.Mutex
	byLocation map[geo.LatLng]map[acd.ACD]*cacheEntry
	Log        logrus.FieldLogger
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{byLocation: make(map[geo.LatLng]map[acd.ACD]*cacheEntry)}
}

func (c *Cache) entriesFor(loc geo.LatLng) map[acd.ACD]*cacheEntry {
	e, ok := c.byLocation[loc]
	if !ok {
		e = make(map[acd.ACD]*cacheEntry)
		c.byLocation[loc] = e
	}
	return e
}

// FillCacheFor ensures every ACD in acds is cached for loc over the
// inclusive window [sd, ed], issuing the minimal set of backing-store
// queries needed to cover any gap. ACDs already covered are left alone;
// ACDs sharing the same existing window are batched into a single query.
func (c *Cache) FillCacheFor(ctx context.Context, loc geo.LatLng, acds acd.Set, sd, ed time.Time, query QueryFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sd, ed = dayUTC(sd), dayUTC(ed)
	entries := c.entriesFor(loc)

	type windowKey struct {
		isNew      bool
		start, end time.Time
	}
	groups := make(map[windowKey][]acd.ACD)
	for _, a := range acds {
		e, ok := entries[a]
		if !ok {
			e = &cacheEntry{}
			entries[a] = e
		}
		if e.initialized && !sd.Before(e.start) && !ed.After(e.end) {
			continue // fully covered already
		}
		var key windowKey
		if e.initialized {
			key = windowKey{start: e.start, end: e.end}
		} else {
			key = windowKey{isNew: true}
		}
		groups[key] = append(groups[key], a)
	}

	for key, group := range groups {
		c.extendGroup(ctx, entries, group, key.isNew, key.start, key.end, sd, ed, query)
	}
}

// extendGroup computes the minimal extension window(s) for group and
// issues exactly one backing-store query per direction actually needed:
// a brand-new entry is filled with one query over [sd, ed]; an entry
// needing only a left or only a right extension is filled with one query
// over just that gap; an entry needing both gets two queries, one per
// side, so the already-cached middle is never re-fetched.
func (c *Cache) extendGroup(ctx context.Context, entries map[acd.ACD]*cacheEntry, group []acd.ACD, isNew bool, existingStart, existingEnd, sd, ed time.Time, query QueryFunc) {
	groupSet := acd.NewSet(group...)

	if isNew {
		cols := query(ctx, groupSet, sd, ed)
		n := daysTo365(sd, ed) + 1
		for _, a := range group {
			vals, ok := cols[a]
			if !ok || len(vals) != n {
				c.warnShortColumn(a)
				continue
			}
			e := entries[a]
			e.values = append([]float64(nil), vals...)
			e.start, e.end = sd, ed
			e.initialized = true
		}
		return
	}

	if sd.Before(existingStart) {
		leftEnd := dayBefore(existingStart)
		cols := query(ctx, groupSet, sd, leftEnd)
		leftCount := daysTo365(sd, leftEnd) + 1
		for _, a := range group {
			vals, ok := cols[a]
			if !ok || len(vals) != leftCount {
				c.warnShortColumn(a)
				continue
			}
			e := entries[a]
			for i := range e.offsets {
				e.offsets[i] += leftCount
			}
			extended := make([]float64, 0, leftCount+len(e.values))
			extended = append(extended, vals...)
			extended = append(extended, e.values...)
			e.values = extended
			e.start = sd
		}
	}

	if ed.After(existingEnd) {
		rightStart := dayAfter(existingEnd)
		cols := query(ctx, groupSet, rightStart, ed)
		rightCount := daysTo365(rightStart, ed) + 1
		for _, a := range group {
			vals, ok := cols[a]
			if !ok || len(vals) != rightCount {
				c.warnShortColumn(a)
				continue
			}
			e := entries[a]
			e.values = append(e.values, vals...)
			e.end = ed
		}
	}
}

func (c *Cache) warnShortColumn(a acd.ACD) {
	if c.Log != nil {
		c.Log.WithField("acd", a.String()).Warn("climate: backing store did not return the requested window, leaving cache unchanged")
	}
}

// NewOffset returns a stable Offset anchored to date d within loc/a's
// cached run. The caller must have already ensured d falls within the
// entry's covered window (e.g. via a preceding FillCacheFor); NewOffset
// returns a zero Offset if the entry does not exist yet.
func (c *Cache) NewOffset(loc geo.LatLng, a acd.ACD, d time.Time) Offset {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entriesFor(loc)[a]
	if !ok || !e.initialized {
		return Offset{}
	}
	idx := daysTo365(e.start, d)
	e.offsets = append(e.offsets, idx)
	return Offset{entry: e, slot: len(e.offsets) - 1}
}

// Accessor returns a DataAccessor over the given ACDs for loc across
// [sd, ed]. The caller must have already filled the cache for this window
// via FillCacheFor; ACDs not fully covered are silently omitted from the
// result rather than causing an error, matching the "a lookup never
// errors" contract the rest of this package follows.
func (c *Cache) Accessor(loc geo.LatLng, acds acd.Set, sd, ed time.Time) DataAccessor {
	c.mu.Lock()
	defer c.mu.Unlock()

	sd, ed = dayUTC(sd), dayUTC(ed)
	entries := c.entriesFor(loc)
	data := make(map[acd.ACD][]float64, len(acds))
	for _, a := range acds {
		e, ok := entries[a]
		if !ok || !e.initialized || sd.Before(e.start) || ed.After(e.end) {
			continue
		}
		from := daysTo365(e.start, sd)
		to := daysTo365(e.start, ed)
		vals := make([]float64, to-from+1)
		copy(vals, e.values[from:to+1])
		data[a] = vals
	}
	if len(data) == 0 {
		return DataAccessor{}
	}
	return newDataAccessor(sd, ed, data)
}
