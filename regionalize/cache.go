package regionalize

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/ctessum/requestcache"
	"github.com/zalf-rpm/agroclimate/geo"
	"github.com/zalf-rpm/agroclimate/raster"
)

// resultKey identifies one interpolated result grid: the DEM's
// georeferencing, the simulation/scenario/realization/ACD-set/reducer that
// produced it, which result id among the reducer's outputs, and which
// year. The cache key is built from ids, not display names, so renaming a
// simulation/scenario/realization never invalidates its cached grids.
type resultKey struct {
	extent   geo.RcRect
	cellSize float64
	cs       geo.CoordSystem

	simID         int
	scenarioID    int
	realizationID int
	acdLabel      string
	reducerID     string
	resultID      ResultId
	year          int

	// regionLabel is a human-readable "sim/scenario/realization" name,
	// carried only for the on-disk cache's region-name attribute. It plays
	// no part in cacheKey/seriesKey equality.
	regionLabel string
}

func (k resultKey) cacheKey() string {
	return fmt.Sprintf("%.0f_%.0f_%.0f_%.0f_%.2f_%s/%d/%d/%d/%s/%s/%s/%d",
		k.extent.TL.R, k.extent.TL.H, k.extent.BR.R, k.extent.BR.H, k.cellSize, k.cs,
		k.simID, k.scenarioID, k.realizationID, k.acdLabel, k.reducerID, k.resultID,
		k.year)
}

// seriesKey identifies everything about a resultKey except its extent: the
// same series of grids at different DEM extents (but the same cell size
// and coordinate system) share one seriesKey, letting the in-memory cache
// scan for a larger cached extent to sub-grid instead of recomputing.
func (k resultKey) seriesKey() string {
	return fmt.Sprintf("%.2f_%s/%d/%d/%d/%s/%s/%s/%d",
		k.cellSize, k.cs, k.simID, k.scenarioID, k.realizationID,
		k.acdLabel, k.reducerID, k.resultID, k.year)
}

// cacheRequest bundles a resultKey with everything process needs to resolve
// it: the disk-cache settings, and the closure that computes the grid on a
// full cache miss.
type cacheRequest struct {
	key      resultKey
	diskRoot string
	persist  bool
	compute  func() (*raster.Grid, error)
}

// extentEntry is one cached grid's extent, kept alongside the grid itself
// so a later, smaller request against the same series can be served by
// sub-grid-cloning instead of recomputing.
type extentEntry struct {
	extent geo.RcRect
	grid   *raster.Grid
}

// resultCache is an in-memory, deduplicating cache of interpolated result
// grids, backed by a two-level (memory, then disk) lookup chain:
// requestcache.Deduplicate and requestcache.Memory sit in front of the
// compute step, and that step itself consults an on-disk cdf file before
// falling through to compute.
//
// Ahead of both of those, extentsMu/extents tracks, per seriesKey, every
// extent already computed for that series: a request whose extent lies
// entirely within one of those is served by SubGrid-cloning the larger
// grid, never touching requestcache or the backing store at all.
type resultCache struct {
	rc *requestcache.Cache

	extentsMu sync.Mutex
	extents   map[string][]extentEntry
}

// newResultCache builds a resultCache holding at most maxMemory grids in
// memory, deduplicating concurrent requests for the same key and running
// misses across GOMAXPROCS workers.
func newResultCache(maxMemory int) *resultCache {
	c := &resultCache{extents: make(map[string][]extentEntry)}
	c.rc = requestcache.NewCache(c.process, runtime.GOMAXPROCS(-1),
		requestcache.Deduplicate(), requestcache.Memory(maxMemory))
	return c
}

// subGridFor looks for a cached grid from key's series whose extent
// contains key.extent, returning the sub-grid clone if one is found.
func (c *resultCache) subGridFor(key resultKey) (*raster.Grid, bool) {
	c.extentsMu.Lock()
	entries := c.extents[key.seriesKey()]
	c.extentsMu.Unlock()
	for _, e := range entries {
		if e.extent == key.extent {
			return e.grid, true
		}
		if !e.extent.ContainsRect(key.extent) {
			continue
		}
		if sub, ok := e.grid.SubGrid(key.extent); ok {
			return sub, true
		}
	}
	return nil, false
}

// rememberExtent records g as the grid computed for key, so a later
// request for a sub-rectangle of key.extent can reuse it.
func (c *resultCache) rememberExtent(key resultKey, g *raster.Grid) {
	c.extentsMu.Lock()
	defer c.extentsMu.Unlock()
	sk := key.seriesKey()
	for _, e := range c.extents[sk] {
		if e.extent == key.extent {
			return
		}
	}
	c.extents[sk] = append(c.extents[sk], extentEntry{extent: key.extent, grid: g})
}

func (c *resultCache) process(ctx context.Context, payload interface{}) (interface{}, error) {
	req := payload.(cacheRequest)
	if req.persist {
		if g, ok, err := readResultGrid(diskPath(req.diskRoot, req.key), req.key); err != nil {
			return nil, err
		} else if ok {
			return g, nil
		}
	}

	g, err := req.compute()
	if err != nil {
		return nil, err
	}

	if req.persist {
		if err := writeResultGrid(diskPath(req.diskRoot, req.key), req.key, g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// get returns the grid for key. A request whose extent is contained in an
// extent already computed for the same series is served by sub-grid
// cloning that cached grid; otherwise compute runs on a full cache miss
// (and the result is persisted to diskRoot afterward when persist is
// true).
func (c *resultCache) get(ctx context.Context, key resultKey, diskRoot string, persist bool, compute func() (*raster.Grid, error)) (*raster.Grid, error) {
	if g, ok := c.subGridFor(key); ok {
		return g, nil
	}
	req := c.rc.NewRequest(ctx, cacheRequest{key: key, diskRoot: diskRoot, persist: persist, compute: compute}, key.cacheKey())
	res, err := req.Result()
	if err != nil {
		return nil, err
	}
	g := res.(*raster.Grid)
	c.rememberExtent(key, g)
	return g, nil
}
